package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Anomaly    AnomalyConfig    `mapstructure:"anomaly"`
	Job        JobConfig        `mapstructure:"job"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// 本服务只验证上游网关签发的 Token，不负责登录与签发流程
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttendanceConfig 考勤规则默认值
// 数据库中的 attendance_policies 单行配置可在运行时覆盖这些默认值
type AttendanceConfig struct {
	ExpectedStartTime        string  `mapstructure:"expected_start_time"`         // 迟到判定截止时刻，如 "08:00"
	MinFullDayHours          float64 `mapstructure:"min_full_day_hours"`          // 计为全天的最低工时
	AbsenceRequestWindowDays int     `mapstructure:"absence_request_window_days"` // 请假允许补报的最大天数
	OpenRecordTimeoutHours   float64 `mapstructure:"open_record_timeout_hours"`   // 未签退记录判定为 incomplete 的时限
}

// AnomalyConfig 考勤异常检测阈值默认值
type AnomalyConfig struct {
	LateRatio              float64 `mapstructure:"late_ratio"`               // 迟到占出勤天数的比例阈值
	AbsenceRatio           float64 `mapstructure:"absence_ratio"`            // 无故缺勤占应出勤天数的比例阈值
	IncompleteThreshold    int     `mapstructure:"incomplete_threshold"`     // incomplete 天数绝对阈值
	ConsecutiveAbsenceDays int     `mapstructure:"consecutive_absence_days"` // 连续缺勤天数阈值
}

// JobConfig 后台任务配置
type JobConfig struct {
	AbsenceMarkerEnabled bool   `mapstructure:"absence_marker_enabled"`
	AbsenceMarkerCron    string `mapstructure:"absence_marker_cron"` // robfig/cron 标准表达式
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "placetrack")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "placetrack")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("attendance.expected_start_time", "08:00")
	v.SetDefault("attendance.min_full_day_hours", 6.0)
	v.SetDefault("attendance.absence_request_window_days", 7)
	v.SetDefault("attendance.open_record_timeout_hours", 24.0)

	v.SetDefault("anomaly.late_ratio", 0.3)
	v.SetDefault("anomaly.absence_ratio", 0.2)
	v.SetDefault("anomaly.incomplete_threshold", 3)
	v.SetDefault("anomaly.consecutive_absence_days", 3)

	v.SetDefault("job.absence_marker_enabled", true)
	v.SetDefault("job.absence_marker_cron", "5 23 * * *") // 每日 23:05 执行缺勤标记

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLACETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Attendance.MinFullDayHours <= 0 {
		return fmt.Errorf("配置校验失败: attendance.min_full_day_hours 必须大于 0")
	}
	if c.Anomaly.ConsecutiveAbsenceDays < 1 {
		return fmt.Errorf("配置校验失败: anomaly.consecutive_absence_days 必须不小于 1")
	}
	return nil
}
