package service

import (
	"go.uber.org/zap"

	"placetrack/backend/config"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Policy        PolicyService
	Attendance    AttendanceService
	AbsenceMarker AbsenceMarkerService
	Summary       SummaryService
	Holiday       HolidayService
	Export        ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil：Redis 不可用时汇总降级为直查，限流由中间件自行放行
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	policy := NewPolicyService(cfg, repo, logger)
	return &Service{
		Policy:        policy,
		Attendance:    NewAttendanceService(repo, policy, logger),
		AbsenceMarker: NewAbsenceMarkerService(repo, policy, logger),
		Summary:       NewSummaryService(repo, policy, rdb, logger),
		Holiday:       NewHolidayService(repo, logger),
		Export:        NewExportService(repo, logger),
	}
}
