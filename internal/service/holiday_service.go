package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
)

// ── 节假日模块业务错误 ──

var (
	ErrHolidayNotFound  = errors.New("节假日不存在")
	ErrICSSourceMissing = errors.New("需提供 ICS 地址或内容")
	ErrICSNoEvents      = errors.New("ICS 中未找到可导入的全天事件")
)

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

// HolidayService 节假日日历维护接口
type HolidayService interface {
	Create(ctx context.Context, operatorID string, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error)
	List(ctx context.Context, from, to string) ([]dto.HolidayResponse, error)
	Delete(ctx context.Context, holidayID string) error
	ImportICS(ctx context.Context, operatorID string, req *dto.ImportHolidayICSRequest) (*dto.ImportHolidayICSResponse, error)
}

type holidayService struct {
	repo   *repository.Repository
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewHolidayService 创建 HolidayService 实例
func NewHolidayService(repo *repository.Repository, logger *zap.Logger) HolidayService {
	return &holidayService{
		repo:   repo,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (s *holidayService) Create(ctx context.Context, operatorID string, req *dto.CreateHolidayRequest) (*dto.HolidayResponse, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	h := &model.Holiday{
		Date: date,
		Name: req.Name,
	}
	h.CreatedBy = &operatorID
	h.UpdatedBy = &operatorID

	// 同日期重复提交按改名处理
	if err := s.repo.Holiday.Upsert(ctx, h); err != nil {
		s.logger.Error("保存节假日失败", zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}

	return toHolidayResponse(h), nil
}

func (s *holidayService) List(ctx context.Context, from, to string) ([]dto.HolidayResponse, error) {
	now := s.nowFn()
	// 缺省列出当年
	fromD := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	toD := time.Date(now.Year(), 12, 31, 0, 0, 0, 0, now.Location())

	var err error
	if from != "" {
		if fromD, err = clock.ParseDate(from); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if to != "" {
		if toD, err = clock.ParseDate(to); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if toD.Before(fromD) {
		return nil, ErrInvalidDateRange
	}

	hs, err := s.repo.Holiday.ListBetween(ctx, fromD, toD)
	if err != nil {
		s.logger.Error("查询节假日失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.HolidayResponse, 0, len(hs))
	for i := range hs {
		result = append(result, *toHolidayResponse(&hs[i]))
	}
	return result, nil
}

func (s *holidayService) Delete(ctx context.Context, holidayID string) error {
	if err := s.repo.Holiday.Delete(ctx, holidayID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHolidayNotFound
		}
		s.logger.Error("删除节假日失败", zap.String("holiday_id", holidayID), zap.Error(err))
		return err
	}
	return nil
}

// ImportICS 从 iCalendar (RFC 5545) 导入节假日
// 仅识别全天事件（DTSTART;VALUE=DATE），多天事件按天展开
func (s *holidayService) ImportICS(ctx context.Context, operatorID string, req *dto.ImportHolidayICSRequest) (*dto.ImportHolidayICSResponse, error) {
	var reader io.Reader
	switch {
	case req.Content != "":
		reader = strings.NewReader(req.Content)
	case req.URL != "":
		body, err := fetchICSContent(req.URL)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		reader = body
	default:
		return nil, ErrICSSourceMissing
	}

	entries, err := parseHolidayICS(reader)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrICSNoEvents
	}

	resp := &dto.ImportHolidayICSResponse{List: make([]dto.HolidayResponse, 0, len(entries))}
	for _, e := range entries {
		h := &model.Holiday{Date: e.date, Name: e.name}
		h.CreatedBy = &operatorID
		h.UpdatedBy = &operatorID
		if err := s.repo.Holiday.Upsert(ctx, h); err != nil {
			s.logger.Error("导入节假日失败",
				zap.String("date", clock.DateKey(e.date)), zap.Error(err))
			return nil, err
		}
		resp.Imported++
		resp.List = append(resp.List, *toHolidayResponse(h))
	}

	s.logger.Info("ICS 节假日导入完成", zap.Int("imported", resp.Imported))
	return resp, nil
}

// holidayEntry ICS 解析中间结构
type holidayEntry struct {
	date time.Time
	name string
}

// fetchICSContent 从 URL 获取 ICS 内容
func fetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// parseHolidayICS 解析 ICS 内容并展开为按天的节假日列表
func parseHolidayICS(reader io.Reader) ([]holidayEntry, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[string]bool)
	var entries []holidayEntry
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil || strings.TrimSpace(summary.Value) == "" {
			continue
		}
		name := strings.TrimSpace(summary.Value)

		start, ok := parseICSDate(evt, ics.ComponentPropertyDtStart)
		if !ok {
			continue
		}
		// 全天事件的 DTEND 为独占边界；缺失时视为单天
		end, ok := parseICSDate(evt, ics.ComponentPropertyDtEnd)
		if !ok {
			end = start.AddDate(0, 0, 1)
		}

		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			key := clock.DateKey(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, holidayEntry{date: d, name: name})
		}
	}
	return entries, nil
}

// parseICSDate 解析 VEVENT 的日期属性，仅关心日历日
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, bool) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false
	}

	formats := []string{
		"20060102",
		"20060102T150405Z",
		"20060102T150405",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, prop.Value); err == nil {
			return clock.Normalize(t), true
		}
	}
	return time.Time{}, false
}

func toHolidayResponse(h *model.Holiday) *dto.HolidayResponse {
	return &dto.HolidayResponse{
		ID:   h.HolidayID,
		Date: clock.DateKey(h.Date),
		Name: h.Name,
	}
}
