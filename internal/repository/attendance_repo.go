package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placetrack/backend/internal/model"
)

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	// CreateIfAbsent 基于 (student_id, date) 唯一约束的条件插入。
	// 返回 true 表示本次插入成功；false 表示该键已有记录（并发竞争落败方）。
	CreateIfAbsent(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	GetByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*model.AttendanceRecord, error)
	Update(ctx context.Context, rec *model.AttendanceRecord) error
	ListByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]model.AttendanceRecord, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.AttendanceRecord, error)
	ListByPlacementRange(ctx context.Context, placementID string, from, to time.Time) ([]model.AttendanceRecord, error)
}

// attendanceRepo AttendanceRepository 的 GORM 实现
type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) CreateIfAbsent(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	// 先到先得：冲突即放弃，落败方由调用侧重新读取当前状态
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("attendance_record_id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) GetByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND date = ?", studentID, date).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) Update(ctx context.Context, rec *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *attendanceRepo) ListByStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND date >= ? AND date <= ?", studentID, from, to).
		Order("date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *attendanceRepo) ListByDate(ctx context.Context, date time.Time) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("student_id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *attendanceRepo) ListByPlacementRange(ctx context.Context, placementID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var recs []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("placement_id = ? AND date >= ? AND date <= ?", placementID, from, to).
		Order("student_id ASC, date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
