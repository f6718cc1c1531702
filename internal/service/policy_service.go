package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placetrack/backend/config"
	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
)

// ── 考勤规则配置模块业务错误 ──

var ErrPolicyInvalidCutoff = errors.New("迟到截止时刻格式无效，应为 HH:MM")

// PolicyService 考勤规则配置业务接口
// 数据库单行配置可在运行时调整；行缺失时回落到进程配置默认值
type PolicyService interface {
	Get(ctx context.Context) (*dto.PolicyResponse, error)
	Update(ctx context.Context, req *dto.UpdatePolicyRequest, callerID string) (*dto.PolicyResponse, error)
	// Resolve 解析出当前生效的全部阈值，供判定与异常检测使用
	Resolve(ctx context.Context) (PolicyThresholds, error)
}

type policyService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPolicyService 创建 PolicyService 实例
func NewPolicyService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) PolicyService {
	return &policyService{cfg: cfg, repo: repo, logger: logger}
}

func (s *policyService) Get(ctx context.Context) (*dto.PolicyResponse, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.toPolicyResponse(p), nil
}

func (s *policyService) Update(ctx context.Context, req *dto.UpdatePolicyRequest, callerID string) (*dto.PolicyResponse, error) {
	p, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if req.ExpectedStartTime != nil {
		if _, err := clock.ParseClock(*req.ExpectedStartTime); err != nil {
			return nil, ErrPolicyInvalidCutoff
		}
		p.ExpectedStartTime = *req.ExpectedStartTime
	}
	if req.MinFullDayHours != nil {
		p.MinFullDayHours = *req.MinFullDayHours
	}
	if req.AbsenceRequestWindowDays != nil {
		p.AbsenceRequestWindowDays = *req.AbsenceRequestWindowDays
	}
	if req.OpenRecordTimeoutHours != nil {
		p.OpenRecordTimeoutHours = *req.OpenRecordTimeoutHours
	}
	if req.LateRatio != nil {
		p.LateRatio = *req.LateRatio
	}
	if req.AbsenceRatio != nil {
		p.AbsenceRatio = *req.AbsenceRatio
	}
	if req.IncompleteThreshold != nil {
		p.IncompleteThreshold = *req.IncompleteThreshold
	}
	if req.ConsecutiveAbsenceDays != nil {
		p.ConsecutiveAbsenceDays = *req.ConsecutiveAbsenceDays
	}
	p.UpdatedBy = &callerID

	if err := s.repo.Policy.Update(ctx, p); err != nil {
		s.logger.Error("更新考勤规则失败", zap.Error(err))
		return nil, err
	}

	return s.toPolicyResponse(p), nil
}

func (s *policyService) Resolve(ctx context.Context) (PolicyThresholds, error) {
	p, err := s.load(ctx)
	if err != nil {
		return PolicyThresholds{}, err
	}

	cutoff, err := clock.ParseClock(normalizeClock(p.ExpectedStartTime))
	if err != nil {
		// 库中存量数据异常时退回进程默认截止时刻
		s.logger.Warn("解析迟到截止时刻失败，使用配置默认值",
			zap.String("value", p.ExpectedStartTime), zap.Error(err))
		cutoff, err = clock.ParseClock(s.cfg.Attendance.ExpectedStartTime)
		if err != nil {
			return PolicyThresholds{}, err
		}
	}

	return PolicyThresholds{
		LateCutoff:               cutoff,
		MinFullDayHours:          p.MinFullDayHours,
		AbsenceRequestWindowDays: p.AbsenceRequestWindowDays,
		OpenRecordTimeoutHours:   p.OpenRecordTimeoutHours,
		LateRatio:                p.LateRatio,
		AbsenceRatio:             p.AbsenceRatio,
		IncompleteThreshold:      p.IncompleteThreshold,
		ConsecutiveAbsenceDays:   p.ConsecutiveAbsenceDays,
	}, nil
}

// load 读取配置行；行缺失时用进程配置构造默认值（不落库）
func (s *policyService) load(ctx context.Context) (*model.AttendancePolicy, error) {
	p, err := s.repo.Policy.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaults(), nil
		}
		s.logger.Error("查询考勤规则失败", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *policyService) defaults() *model.AttendancePolicy {
	a := s.cfg.Attendance
	an := s.cfg.Anomaly
	return &model.AttendancePolicy{
		Singleton:                true,
		ExpectedStartTime:        a.ExpectedStartTime,
		MinFullDayHours:          a.MinFullDayHours,
		AbsenceRequestWindowDays: a.AbsenceRequestWindowDays,
		OpenRecordTimeoutHours:   a.OpenRecordTimeoutHours,
		LateRatio:                an.LateRatio,
		AbsenceRatio:             an.AbsenceRatio,
		IncompleteThreshold:      an.IncompleteThreshold,
		ConsecutiveAbsenceDays:   an.ConsecutiveAbsenceDays,
	}
}

func (s *policyService) toPolicyResponse(p *model.AttendancePolicy) *dto.PolicyResponse {
	return &dto.PolicyResponse{
		ExpectedStartTime:        normalizeClock(p.ExpectedStartTime),
		MinFullDayHours:          p.MinFullDayHours,
		AbsenceRequestWindowDays: p.AbsenceRequestWindowDays,
		OpenRecordTimeoutHours:   p.OpenRecordTimeoutHours,
		LateRatio:                p.LateRatio,
		AbsenceRatio:             p.AbsenceRatio,
		IncompleteThreshold:      p.IncompleteThreshold,
		ConsecutiveAbsenceDays:   p.ConsecutiveAbsenceDays,
		UpdatedAt:                p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// normalizeClock PostgreSQL TIME 列可能返回 "08:00:00"，裁剪为 "HH:MM"
func normalizeClock(s string) string {
	if len(s) > 5 && strings.Count(s, ":") == 2 {
		return s[:5]
	}
	return s
}
