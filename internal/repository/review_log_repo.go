package repository

import (
	"context"

	"gorm.io/gorm"

	"placetrack/backend/internal/model"
)

// ReviewLogRepository 审批流水数据访问接口
type ReviewLogRepository interface {
	Create(ctx context.Context, log *model.ReviewLog) error
	ListByRecord(ctx context.Context, recordID string) ([]model.ReviewLog, error)
}

// reviewLogRepo ReviewLogRepository 的 GORM 实现
type reviewLogRepo struct {
	db *gorm.DB
}

// NewReviewLogRepo 创建 ReviewLogRepository 实例
func NewReviewLogRepo(db *gorm.DB) ReviewLogRepository {
	return &reviewLogRepo{db: db}
}

func (r *reviewLogRepo) Create(ctx context.Context, log *model.ReviewLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *reviewLogRepo) ListByRecord(ctx context.Context, recordID string) ([]model.ReviewLog, error) {
	var logs []model.ReviewLog
	err := r.db.WithContext(ctx).
		Where("attendance_record_id = ?", recordID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
