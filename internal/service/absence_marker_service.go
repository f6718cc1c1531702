package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
)

// ── 缺勤标记业务错误 ──

var (
	ErrFutureMarkDate = errors.New("不能标记未来日期的缺勤")
	ErrNotWorkday     = errors.New("目标日期为非工作日，无需标记")
)

// AbsenceMarkerService 批量缺勤标记接口
//
// 由协调员手动触发，或由定时任务在每晚收尾时调用。
// 逐学生独立处理：单个失败不回滚其余结果。
type AbsenceMarkerService interface {
	MarkAbsentees(ctx context.Context, triggeredBy string, req *dto.MarkAbsenteesRequest) (*dto.MarkAbsenteesResponse, error)
}

type absenceMarkerService struct {
	repo   *repository.Repository
	policy PolicyService
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewAbsenceMarkerService 创建 AbsenceMarkerService 实例
func NewAbsenceMarkerService(repo *repository.Repository, policy PolicyService, logger *zap.Logger) AbsenceMarkerService {
	return &absenceMarkerService{
		repo:   repo,
		policy: policy,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (s *absenceMarkerService) MarkAbsentees(ctx context.Context, triggeredBy string, req *dto.MarkAbsenteesRequest) (*dto.MarkAbsenteesResponse, error) {
	now := s.nowFn()
	date := clock.Normalize(now)
	if req.Date != "" {
		var err error
		if date, err = clock.ParseDate(req.Date); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if date.After(clock.Normalize(now)) {
		return nil, ErrFutureMarkDate
	}

	holidays, err := s.holidaySet(ctx, date, date)
	if err != nil {
		return nil, err
	}
	if !clock.IsWorkday(date, holidays) {
		return nil, ErrNotWorkday
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	// 名单来源：显式指定优先，否则按当日在册名单扫描
	roster, err := s.resolveRoster(ctx, date, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	resp := &dto.MarkAbsenteesResponse{
		Date:    date.Format("2006-01-02"),
		Results: make([]dto.MarkResultResponse, 0, len(roster)),
	}

	for _, entry := range roster {
		result := dto.MarkResultResponse{StudentID: entry.studentID}

		if entry.err != nil {
			result.Outcome = "failed"
			result.Error = entry.err.Error()
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		rec := &model.AttendanceRecord{
			StudentID:      entry.studentID,
			PlacementID:    entry.placementID,
			Date:           date,
			AbsenceReason:  systemMarkedReason,
			DayStatus:      model.DayStatusAbsent,
			ApprovalStatus: model.ApprovalPending,
		}
		rec.CreatedBy = &triggeredBy
		rec.UpdatedBy = &triggeredBy

		created, err := s.repo.Attendance.CreateIfAbsent(ctx, rec)
		switch {
		case err != nil:
			s.logger.Error("标记缺勤失败",
				zap.String("student_id", entry.studentID),
				zap.String("date", resp.Date),
				zap.Error(err))
			result.Outcome = "failed"
			result.Error = err.Error()
			resp.Failed++
		case created:
			result.Outcome = "created"
			resp.Created++
		default:
			// 当日已有记录（已签到 / 已请假 / 已被标记）：幂等跳过
			result.Outcome = "skipped"
			resp.Skipped++
		}
		resp.Results = append(resp.Results, result)
	}

	// 顺带收尾：固化当日超时未签退的记录
	s.sweepStaleOpen(ctx, date, p)

	s.logger.Info("批量缺勤标记完成",
		zap.String("date", resp.Date),
		zap.Int("created", resp.Created),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed))

	return resp, nil
}

// rosterEntry 待标记的单个学生；err 非空表示名单解析阶段已失败
type rosterEntry struct {
	studentID   string
	placementID string
	err         error
}

func (s *absenceMarkerService) resolveRoster(ctx context.Context, date time.Time, studentIDs []string) ([]rosterEntry, error) {
	enrollments, err := s.repo.Enrollment.ListActiveOnDate(ctx, date)
	if err != nil {
		s.logger.Error("查询在册名单失败", zap.Error(err))
		return nil, err
	}

	placements := make(map[string]string, len(enrollments))
	for _, e := range enrollments {
		placements[e.StudentID] = e.PlacementID
	}

	if len(studentIDs) == 0 {
		roster := make([]rosterEntry, 0, len(enrollments))
		for _, e := range enrollments {
			roster = append(roster, rosterEntry{studentID: e.StudentID, placementID: e.PlacementID})
		}
		return roster, nil
	}

	roster := make([]rosterEntry, 0, len(studentIDs))
	for _, id := range studentIDs {
		pid, ok := placements[id]
		if !ok {
			roster = append(roster, rosterEntry{studentID: id, err: errors.New("该学生当日不在册")})
			continue
		}
		roster = append(roster, rosterEntry{studentID: id, placementID: pid})
	}
	return roster, nil
}

func (s *absenceMarkerService) holidaySet(ctx context.Context, from, to time.Time) (map[string]bool, error) {
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

func (s *absenceMarkerService) sweepStaleOpen(ctx context.Context, date time.Time, p PolicyThresholds) {
	recs, err := s.repo.Attendance.ListByDate(ctx, date)
	if err != nil {
		s.logger.Warn("查询当日记录失败，跳过超时收尾", zap.Error(err))
		return
	}
	now := s.nowFn()
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
