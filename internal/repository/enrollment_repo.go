package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"placetrack/backend/internal/model"
)

// EnrollmentRepository 实习在册名单只读访问接口
// 名单由实习管理模块维护，本引擎不提供写入
type EnrollmentRepository interface {
	ListActiveOnDate(ctx context.Context, date time.Time) ([]model.Enrollment, error)
	ListByPlacement(ctx context.Context, placementID string) ([]model.Enrollment, error)
}

// enrollmentRepo EnrollmentRepository 的 GORM 实现
type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) ListActiveOnDate(ctx context.Context, date time.Time) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE AND start_date <= ? AND end_date >= ?", date, date).
		Find(&es).Error
	if err != nil {
		return nil, err
	}
	return es, nil
}

func (r *enrollmentRepo) ListByPlacement(ctx context.Context, placementID string) ([]model.Enrollment, error) {
	var es []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Order("student_id ASC").
		Find(&es).Error
	if err != nil {
		return nil, err
	}
	return es, nil
}
