package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"placetrack/backend/config"
	"placetrack/backend/internal/api/handler"
	"placetrack/backend/internal/api/middleware"
	"placetrack/backend/pkg/jwt"
	"placetrack/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtMgr))
	{
		// 考勤生命周期
		attendance := authorized.Group("/attendance")
		{
			// 学生签到签退限流，防止脚本刷写
			attendance.POST("/check-in", middleware.RoleAuth("student"),
				middleware.RateLimit(rdb, 10, time.Minute), h.Attendance.CheckIn)
			attendance.POST("/check-out", middleware.RoleAuth("student"),
				middleware.RateLimit(rdb, 10, time.Minute), h.Attendance.CheckOut)
			attendance.POST("/absence-requests", middleware.RoleAuth("student"), h.Attendance.SubmitAbsenceRequest)

			attendance.GET("/records/:id", h.Attendance.GetRecord)
			attendance.GET("/records/:id/review-logs",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Attendance.ListReviewLogs)

			// 审批动作
			attendance.POST("/records/:id/acknowledge",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Attendance.Acknowledge)
			attendance.POST("/records/:id/approve",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Attendance.Approve)
			attendance.POST("/records/:id/reject",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Attendance.Reject)
			attendance.POST("/records/:id/reclassify",
				middleware.RoleAuth("coordinator", "admin"), h.Attendance.Reclassify)

			// 查询（学生仅限本人，Handler 层二次校验）
			attendance.GET("/students/:studentID/records", h.Attendance.ListStudentRecords)
			attendance.GET("/students/:studentID/summary", h.Summary.GetStudentSummary)
			attendance.GET("/placements/:placementID/records",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Attendance.ListPlacementRecords)

			// 批量缺勤标记
			attendance.POST("/mark-absentees",
				middleware.RoleAuth("coordinator", "admin"), h.Attendance.MarkAbsentees)

			// 考勤规则配置
			attendance.GET("/policy",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Policy.GetPolicy)
			attendance.PUT("/policy", middleware.RoleAuth("admin"), h.Policy.UpdatePolicy)
		}

		// 节假日日历
		holidays := authorized.Group("/holidays")
		{
			holidays.GET("", h.Holiday.ListHolidays)
			holidays.POST("", middleware.RoleAuth("coordinator", "admin"), h.Holiday.CreateHoliday)
			holidays.DELETE("/:id", middleware.RoleAuth("coordinator", "admin"), h.Holiday.DeleteHoliday)
			holidays.POST("/import-ics", middleware.RoleAuth("coordinator", "admin"), h.Holiday.ImportICS)
		}

		// 导出
		export := authorized.Group("/export")
		{
			export.GET("/attendance",
				middleware.RoleAuth("supervisor", "coordinator", "admin"), h.Export.ExportAttendance)
		}
	}

	return r
}
