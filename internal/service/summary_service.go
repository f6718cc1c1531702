package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
	"placetrack/backend/pkg/redis"
)

// summaryCacheTTL 汇总缓存时长；统计信息允许短暂滞后
const summaryCacheTTL = 5 * time.Minute

// SummaryService 考勤汇总与行为异常检测接口
type SummaryService interface {
	Summarize(ctx context.Context, studentID string, from, to string) (*dto.SummaryResponse, error)
}

type summaryService struct {
	repo   *repository.Repository
	policy PolicyService
	rdb    *redis.Client // 可为 nil：Redis 不可用时降级为直查
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewSummaryService 创建 SummaryService 实例
func NewSummaryService(repo *repository.Repository, policy PolicyService, rdb *redis.Client, logger *zap.Logger) SummaryService {
	return &summaryService{
		repo:   repo,
		policy: policy,
		rdb:    rdb,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (s *summaryService) Summarize(ctx context.Context, studentID string, from, to string) (*dto.SummaryResponse, error) {
	fromD, toD, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", studentID, clock.DateKey(fromD), clock.DateKey(toD))
	if s.rdb != nil {
		if cached, err := s.rdb.GetSummaryCache(ctx, cacheKey); err != nil {
			s.logger.Warn("读取汇总缓存失败", zap.Error(err))
		} else if cached != "" {
			var resp dto.SummaryResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.repo.Attendance.ListByStudentRange(ctx, studentID, fromD, toD)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	holidays, err := s.holidaySet(ctx, fromD, toD)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	s.refreshStale(ctx, recs, p, now)

	resp := s.aggregate(studentID, fromD, toD, recs, holidays, p)

	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rdb.SetSummaryCache(ctx, cacheKey, string(payload), summaryCacheTTL); err != nil {
				s.logger.Warn("写入汇总缓存失败", zap.Error(err))
			}
		}
	}

	return resp, nil
}

// aggregate 单次有序遍历完成计数、比率与异常检测
func (s *summaryService) aggregate(studentID string, from, to time.Time, recs []model.AttendanceRecord, holidays map[string]bool, p PolicyThresholds) *dto.SummaryResponse {
	resp := &dto.SummaryResponse{
		StudentID:            studentID,
		From:                 clock.DateKey(from),
		To:                   clock.DateKey(to),
		TotalExpectedDays:    clock.WorkdaysBetween(from, to, holidays),
		DayStatusCounts:      make(map[string]int),
		ApprovalStatusCounts: make(map[string]int),
		Anomalies:            []dto.AnomalyResponse{},
	}

	var (
		onTimeDays     int
		lateDays       int
		unexcusedDays  int
		incompleteDays int
		completedDays  int

		// 连续缺勤游程：按 NextWorkday 连接，跨周末与节假日不断链
		runLen       int
		runUnexcused int
		bestRun      int
		bestRunUnexc int
		expectNext   time.Time
	)

	for i := range recs {
		rec := &recs[i]

		resp.DayStatusCounts[string(rec.DayStatus)]++
		resp.ApprovalStatusCounts[string(rec.ApprovalStatus)]++

		switch rec.DayStatus {
		case model.DayStatusPresentOnTime:
			completedDays++
			onTimeDays++
		case model.DayStatusPresentLate:
			completedDays++
			lateDays++
		case model.DayStatusHalfDay:
			completedDays++
		case model.DayStatusAbsent:
			unexcusedDays++
		case model.DayStatusIncomplete:
			incompleteDays++
		}

		// 游程推进：记录按日期升序到达
		isAbsence := rec.DayStatus == model.DayStatusAbsent || rec.DayStatus == model.DayStatusExcusedAbsence
		if isAbsence {
			if runLen > 0 && clock.SameDay(rec.Date, expectNext) {
				runLen++
			} else {
				runLen = 1
				runUnexcused = 0
			}
			if rec.DayStatus == model.DayStatusAbsent {
				runUnexcused++
			}
			if runLen > bestRun || (runLen == bestRun && runUnexcused > bestRunUnexc) {
				bestRun = runLen
				bestRunUnexc = runUnexcused
			}
			expectNext = clock.NextWorkday(rec.Date, holidays)
		} else {
			runLen = 0
			runUnexcused = 0
		}
	}

	if resp.TotalExpectedDays > 0 {
		resp.CompletionPercentage = round2(float64(completedDays) / float64(resp.TotalExpectedDays) * 100)
	}
	// 守时率只看整天出勤：准时天数 / (准时天数 + 迟到天数)
	if onTimeDays+lateDays > 0 {
		resp.PunctualityRate = round2(float64(onTimeDays) / float64(onTimeDays+lateDays) * 100)
	}

	resp.Anomalies = s.detectAnomalies(resp.TotalExpectedDays, completedDays, lateDays, unexcusedDays, incompleteDays, bestRun, bestRunUnexc, p)

	return resp
}

// detectAnomalies 比例与次数阈值取「严格大于」（恰好等于不告警）；
// 连续缺勤按「达到即告警」判定
func (s *summaryService) detectAnomalies(expectedDays, presentDays, lateDays, unexcusedDays, incompleteDays, bestRun, bestRunUnexc int, p PolicyThresholds) []dto.AnomalyResponse {
	anomalies := []dto.AnomalyResponse{}

	// 迟到比例以实际出勤天数为分母：出勤少的学生迟到占比不被稀释
	if presentDays > 0 {
		lateRatio := float64(lateDays) / float64(presentDays)
		if lateRatio > p.LateRatio {
			anomalies = append(anomalies, dto.AnomalyResponse{
				Type:     "frequent_lateness",
				Severity: ratioSeverity(lateRatio, p.LateRatio),
				Description: fmt.Sprintf("区间内迟到 %d 天，占出勤天数的 %.0f%%，超过 %.0f%% 阈值",
					lateDays, lateRatio*100, p.LateRatio*100),
			})
		}
	}

	if expectedDays > 0 {
		absenceRatio := float64(unexcusedDays) / float64(expectedDays)
		if absenceRatio > p.AbsenceRatio {
			anomalies = append(anomalies, dto.AnomalyResponse{
				Type:     "high_absence_rate",
				Severity: ratioSeverity(absenceRatio, p.AbsenceRatio),
				Description: fmt.Sprintf("区间内无故缺勤 %d 天，占应出勤天数的 %.0f%%，超过 %.0f%% 阈值",
					unexcusedDays, absenceRatio*100, p.AbsenceRatio*100),
			})
		}
	}

	if incompleteDays > p.IncompleteThreshold {
		severity := "medium"
		if incompleteDays >= 2*p.IncompleteThreshold {
			severity = "high"
		}
		anomalies = append(anomalies, dto.AnomalyResponse{
			Type:     "frequent_incomplete_days",
			Severity: severity,
			Description: fmt.Sprintf("区间内有 %d 天签到后未签退，超过 %d 天阈值",
				incompleteDays, p.IncompleteThreshold),
		})
	}

	if bestRun >= p.ConsecutiveAbsenceDays {
		// 全程均为无故缺勤时升级严重度
		severity := "medium"
		if bestRunUnexc == bestRun {
			severity = "high"
		}
		anomalies = append(anomalies, dto.AnomalyResponse{
			Type:     "consecutive_absences",
			Severity: severity,
			Description: fmt.Sprintf("连续缺勤 %d 个工作日（其中无故 %d 天），达到连续 %d 天阈值",
				bestRun, bestRunUnexc, p.ConsecutiveAbsenceDays),
		})
	}

	return anomalies
}

// ratioSeverity 比例型异常严重度分级：超出阈值 2 倍为高，1.5 倍为中，其余为低
func ratioSeverity(ratio, threshold float64) string {
	switch {
	case ratio >= 2*threshold:
		return "high"
	case ratio >= 1.5*threshold:
		return "medium"
	default:
		return "low"
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func (s *summaryService) parseRange(from, to string) (time.Time, time.Time, error) {
	now := s.nowFn()
	toD := clock.Normalize(now)
	fromD := toD.AddDate(0, 0, -30)

	var err error
	if to != "" {
		if toD, err = clock.ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDate
		}
	}
	if from != "" {
		if fromD, err = clock.ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, ErrInvalidDate
		}
	}
	if toD.Before(fromD) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return fromD, toD, nil
}

func (s *summaryService) holidaySet(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	hs, err := s.repo.Holiday.ListBetween(ctx, from, to)
	if err != nil {
		s.logger.Error("查询节假日失败", zap.Error(err))
		return nil, err
	}
	set := make(map[string]bool, len(hs))
	for _, h := range hs {
		set[clock.DateKey(h.Date)] = true
	}
	return set, nil
}

// refreshStale 读取路径的惰性修正，与生命周期服务保持同一条规则
func (s *summaryService) refreshStale(ctx context.Context, recs []model.AttendanceRecord, p PolicyThresholds, now time.Time) {
	for i := range recs {
		rec := &recs[i]
		if !StaleOpen(rec, p, now) || rec.IsIncomplete {
			continue
		}
		rec.DayStatus = model.DayStatusIncomplete
		rec.IsIncomplete = true
		if err := s.repo.Attendance.Update(ctx, rec); err != nil {
			s.logger.Warn("固化 incomplete 状态失败",
				zap.String("record_id", rec.AttendanceRecordID), zap.Error(err))
		}
	}
}
