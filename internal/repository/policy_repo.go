package repository

import (
	"context"

	"gorm.io/gorm"

	"placetrack/backend/internal/model"
)

// PolicyRepository 考勤规则配置数据访问接口
type PolicyRepository interface {
	Get(ctx context.Context) (*model.AttendancePolicy, error)
	Update(ctx context.Context, p *model.AttendancePolicy) error
}

// policyRepo PolicyRepository 的 GORM 实现
type policyRepo struct {
	db *gorm.DB
}

// NewPolicyRepo 创建 PolicyRepository 实例
func NewPolicyRepo(db *gorm.DB) PolicyRepository {
	return &policyRepo{db: db}
}

func (r *policyRepo) Get(ctx context.Context) (*model.AttendancePolicy, error) {
	var p model.AttendancePolicy
	err := r.db.WithContext(ctx).
		Where("singleton = TRUE").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepo) Update(ctx context.Context, p *model.AttendancePolicy) error {
	p.Singleton = true
	return r.db.WithContext(ctx).Save(p).Error
}
