package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Attendance AttendanceRepository
	ReviewLog  ReviewLogRepository
	Holiday    HolidayRepository
	Enrollment EnrollmentRepository
	Policy     PolicyRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Attendance: NewAttendanceRepo(db),
		ReviewLog:  NewReviewLogRepo(db),
		Holiday:    NewHolidayRepo(db),
		Enrollment: NewEnrollmentRepo(db),
		Policy:     NewPolicyRepo(db),
	}
}

// BeginTx 开启事务；db 为 nil 时（纯 mock 测试）返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到指定事务的 Repository 副本
// tx 为 nil 时返回自身（mock 测试路径）
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
