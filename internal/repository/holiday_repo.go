package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"placetrack/backend/internal/model"
)

// HolidayRepository 节假日数据访问接口
type HolidayRepository interface {
	Upsert(ctx context.Context, h *model.Holiday) error
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error)
	Delete(ctx context.Context, id string) error
}

// holidayRepo HolidayRepository 的 GORM 实现
type holidayRepo struct {
	db *gorm.DB
}

// NewHolidayRepo 创建 HolidayRepository 实例
func NewHolidayRepo(db *gorm.DB) HolidayRepository {
	return &holidayRepo{db: db}
}

func (r *holidayRepo) Upsert(ctx context.Context, h *model.Holiday) error {
	// 同一日期重复导入时更新名称
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at", "updated_by"}),
		}).
		Create(h).Error
}

func (r *holidayRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Holiday, error) {
	var hs []model.Holiday
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&hs).Error
	if err != nil {
		return nil, err
	}
	return hs, nil
}

func (r *holidayRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("holiday_id = ?", id).
		Delete(&model.Holiday{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
