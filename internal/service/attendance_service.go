package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
	pkgerrors "placetrack/backend/pkg/errors"
)

// ── 考勤模块业务错误 ──

var (
	ErrAttendanceNotFound    = errors.New("考勤记录不存在")
	ErrDuplicateCheckIn      = errors.New("当日已完成签退，不可重复签到")
	ErrNoOpenCheckIn         = errors.New("当日无未签退的签到记录")
	ErrCheckOutBeforeCheckIn = errors.New("签退时间不能早于签到时间")
	ErrAbsenceDateTooOld     = errors.New("请假日期超出允许补报窗口")
	ErrRecordAlreadyExists   = errors.New("该日期已存在考勤记录")
	ErrMissingComment        = errors.New("审批意见不能为空")
	ErrInvalidDayStatus      = errors.New("无效的考勤日状态")
	ErrApprovalTransition    = errors.New("当前审批状态不允许此操作")
	ErrInvalidDate           = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidDateRange      = errors.New("日期区间无效")
)

// systemMarkedReason 批量缺勤标记写入的缺省理由
const systemMarkedReason = "系统自动标记：当日无签到记录"

// AttendanceService 考勤生命周期业务接口
//
// 签到 / 签退 / 请假由学生发起；确认 / 批准 / 驳回 / 改判由
// 指导老师或协调员发起，调用方身份已由上游认证层验证。
type AttendanceService interface {
	CheckIn(ctx context.Context, studentID string, req *dto.CheckInRequest) (*dto.AttendanceResponse, error)
	CheckOut(ctx context.Context, studentID string, req *dto.CheckOutRequest) (*dto.AttendanceResponse, error)
	SubmitAbsenceRequest(ctx context.Context, studentID string, req *dto.AbsenceRequestRequest) (*dto.AttendanceResponse, error)

	// Acknowledge 软确认：仅盖章 reviewed_by / reviewed_at，不改变审批状态，
	// 用于无需审批的普通出勤日；不能替代 Approve
	Acknowledge(ctx context.Context, recordID, reviewerID string) (*dto.AttendanceResponse, error)
	Approve(ctx context.Context, recordID, reviewerID, comment string) (*dto.AttendanceResponse, error)
	Reject(ctx context.Context, recordID, reviewerID, comment string) (*dto.AttendanceResponse, error)
	Reclassify(ctx context.Context, recordID, reviewerID string, newStatus model.DayStatus, comment string) (*dto.AttendanceResponse, error)

	GetRecord(ctx context.Context, recordID string) (*dto.AttendanceResponse, error)
	ListByStudent(ctx context.Context, studentID string, from, to string) ([]dto.AttendanceResponse, error)
	ListByPlacement(ctx context.Context, placementID string, from, to string) ([]dto.AttendanceResponse, error)
	ListReviewLogs(ctx context.Context, recordID string) ([]dto.ReviewLogResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	policy PolicyService
	logger *zap.Logger
	nowFn  func() time.Time // 测试注入
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, policy PolicyService, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:   repo,
		policy: policy,
		logger: logger,
		nowFn:  time.Now,
	}
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, studentID string, req *dto.CheckInRequest) (*dto.AttendanceResponse, error) {
	now := s.nowFn()
	today := clock.Normalize(now)

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Attendance.GetByStudentAndDate(ctx, studentID, today)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询当日考勤记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	if existing != nil {
		// 已签退：当日已关闭
		if existing.CheckOutTime != nil {
			return nil, ErrDuplicateCheckIn
		}
		// 请假或批量标记占据了当日记录：向调用方暴露冲突，由其重新查询决策
		if existing.CheckInTime == nil {
			return nil, ErrRecordAlreadyExists
		}
		// 未签退重复签到：幂等，覆盖地点与备注，保留首次签到时间
		existing.Location = req.Location
		existing.Notes = req.Notes
		existing.UpdatedBy = &studentID
		if err := s.repo.Attendance.Update(ctx, existing); err != nil {
			s.logger.Error("更新签到记录失败", zap.String("record_id", existing.AttendanceRecordID), zap.Error(err))
			return nil, err
		}
		return s.toAttendanceResponse(existing), nil
	}

	checkIn := now
	rec := &model.AttendanceRecord{
		StudentID:    studentID,
		PlacementID:  req.PlacementID,
		Date:         today,
		CheckInTime:  &checkIn,
		Location:     req.Location,
		Notes:        req.Notes,
		Punctuality:  ClassifyPunctuality(checkIn, p.LateCutoff),
		ApprovalStatus: model.ApprovalPending,
	}
	rec.DayStatus = Classify(ClassifyInput{
		Date:        today,
		CheckInTime: rec.CheckInTime,
		Now:         now,
	}, p)
	rec.IsLateEntry = rec.Punctuality == model.PunctualityLate
	rec.CreatedBy = &studentID
	rec.UpdatedBy = &studentID

	created, err := s.repo.Attendance.CreateIfAbsent(ctx, rec)
	if err != nil {
		s.logger.Error("创建签到记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if !created {
		// 与批量缺勤标记并发竞争落败：先到先得，本次不覆盖
		return nil, pkgerrors.ErrConcurrentCreate
	}

	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *attendanceService) CheckOut(ctx context.Context, studentID string, req *dto.CheckOutRequest) (*dto.AttendanceResponse, error) {
	now := s.nowFn()
	today := clock.Normalize(now)

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Attendance.GetByStudentAndDate(ctx, studentID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenCheckIn
		}
		s.logger.Error("查询当日考勤记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if !rec.IsOpen() {
		return nil, ErrNoOpenCheckIn
	}
	if now.Before(*rec.CheckInTime) {
		return nil, ErrCheckOutBeforeCheckIn
	}

	checkOut := now
	rec.CheckOutTime = &checkOut
	rec.HoursWorked = clock.ElapsedHours(*rec.CheckInTime, checkOut)
	if req.Location != "" {
		rec.Location = req.Location
	}
	if req.Notes != "" {
		rec.Notes = req.Notes
	}
	rec.DayStatus = Classify(ClassifyInput{
		Date:         rec.Date,
		CheckInTime:  rec.CheckInTime,
		CheckOutTime: rec.CheckOutTime,
		HoursWorked:  rec.HoursWorked,
		Now:          now,
	}, p)
	rec.IsIncomplete = false
	rec.IsLateEntry = rec.DayStatus == model.DayStatusPresentLate
	rec.UpdatedBy = &studentID

	if err := s.repo.Attendance.Update(ctx, rec); err != nil {
		s.logger.Error("更新签退记录失败", zap.String("record_id", rec.AttendanceRecordID), zap.Error(err))
		return nil, err
	}

	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── SubmitAbsenceRequest ──────────────────────

func (s *attendanceService) SubmitAbsenceRequest(ctx context.Context, studentID string, req *dto.AbsenceRequestRequest) (*dto.AttendanceResponse, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	// 防止超窗补报伪造历史缺勤
	earliest := clock.Normalize(now).AddDate(0, 0, -p.AbsenceRequestWindowDays)
	if date.Before(earliest) {
		return nil, ErrAbsenceDateTooOld
	}

	existing, err := s.repo.Attendance.GetByStudentAndDate(ctx, studentID, date)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询考勤记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	if existing != nil {
		// 仅允许在待审批的请假/标记记录上补充理由；其余一律冲突
		if !existing.IsAbsenceOrigin() && existing.CheckInTime != nil {
			return nil, ErrRecordAlreadyExists
		}
		if existing.ApprovalStatus != model.ApprovalPending {
			return nil, ErrRecordAlreadyExists
		}
		existing.AbsenceReason = req.Reason
		existing.UpdatedBy = &studentID
		if err := s.repo.Attendance.Update(ctx, existing); err != nil {
			s.logger.Error("更新请假记录失败", zap.String("record_id", existing.AttendanceRecordID), zap.Error(err))
			return nil, err
		}
		return s.toAttendanceResponse(existing), nil
	}

	rec := &model.AttendanceRecord{
		StudentID:      studentID,
		PlacementID:    req.PlacementID,
		Date:           date,
		AbsenceReason:  req.Reason,
		ApprovalStatus: model.ApprovalPending,
		DayStatus: Classify(ClassifyInput{
			Date:             date,
			IsAbsenceRequest: true,
			Now:              now,
		}, p),
	}
	rec.CreatedBy = &studentID
	rec.UpdatedBy = &studentID

	created, err := s.repo.Attendance.CreateIfAbsent(ctx, rec)
	if err != nil {
		s.logger.Error("创建请假记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if !created {
		return nil, pkgerrors.ErrConcurrentCreate
	}

	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── Acknowledge ──────────────────────

func (s *attendanceService) Acknowledge(ctx context.Context, recordID, reviewerID string) (*dto.AttendanceResponse, error) {
	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	rec.ReviewedBy = &reviewerID
	rec.ReviewedAt = &now
	rec.UpdatedBy = &reviewerID

	log := &model.ReviewLog{
		AttendanceRecordID: rec.AttendanceRecordID,
		ReviewerID:         reviewerID,
		Action:             model.ReviewActionAcknowledge,
		OldDayStatus:       rec.DayStatus,
		NewDayStatus:       rec.DayStatus,
		OldApprovalStatus:  rec.ApprovalStatus,
		NewApprovalStatus:  rec.ApprovalStatus,
	}

	if err := s.applyReview(ctx, rec, log); err != nil {
		return nil, err
	}
	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── Approve ──────────────────────

func (s *attendanceService) Approve(ctx context.Context, recordID, reviewerID, comment string) (*dto.AttendanceResponse, error) {
	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.ApprovalStatus.CanTransitionTo(model.ApprovalApproved) {
		return nil, ErrApprovalTransition
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	oldDay := rec.DayStatus
	oldApproval := rec.ApprovalStatus
	now := s.nowFn()

	// 批准即授予准假：请假来源的记录由 absent 转为 excused_absence
	if rec.IsAbsenceOrigin() {
		rec.DayStatus = Classify(ClassifyInput{
			Date:             rec.Date,
			IsAbsenceRequest: true,
			ExcuseGranted:    true,
			Now:              now,
		}, p)
	}
	rec.ApprovalStatus = model.ApprovalApproved
	rec.ReviewedBy = &reviewerID
	rec.ReviewedAt = &now
	rec.SupervisorComment = comment
	rec.UpdatedBy = &reviewerID

	log := &model.ReviewLog{
		AttendanceRecordID: rec.AttendanceRecordID,
		ReviewerID:         reviewerID,
		Action:             model.ReviewActionApprove,
		OldDayStatus:       oldDay,
		NewDayStatus:       rec.DayStatus,
		OldApprovalStatus:  oldApproval,
		NewApprovalStatus:  rec.ApprovalStatus,
		Comment:            comment,
	}

	if err := s.applyReview(ctx, rec, log); err != nil {
		return nil, err
	}
	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── Reject ──────────────────────

func (s *attendanceService) Reject(ctx context.Context, recordID, reviewerID, comment string) (*dto.AttendanceResponse, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrMissingComment
	}

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !rec.ApprovalStatus.CanTransitionTo(model.ApprovalRejected) {
		return nil, ErrApprovalTransition
	}

	oldApproval := rec.ApprovalStatus
	now := s.nowFn()
	rec.ApprovalStatus = model.ApprovalRejected
	rec.ReviewedBy = &reviewerID
	rec.ReviewedAt = &now
	rec.SupervisorComment = comment
	rec.UpdatedBy = &reviewerID

	log := &model.ReviewLog{
		AttendanceRecordID: rec.AttendanceRecordID,
		ReviewerID:         reviewerID,
		Action:             model.ReviewActionReject,
		OldDayStatus:       rec.DayStatus,
		NewDayStatus:       rec.DayStatus,
		OldApprovalStatus:  oldApproval,
		NewApprovalStatus:  rec.ApprovalStatus,
		Comment:            comment,
	}

	if err := s.applyReview(ctx, rec, log); err != nil {
		return nil, err
	}
	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── Reclassify ──────────────────────

func (s *attendanceService) Reclassify(ctx context.Context, recordID, reviewerID string, newStatus model.DayStatus, comment string) (*dto.AttendanceResponse, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, ErrMissingComment
	}
	if !newStatus.Valid() {
		return nil, ErrInvalidDayStatus
	}

	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	// 任何审批状态均可被改判重新打开，进入 needs_review 等待二次复核
	if !rec.ApprovalStatus.CanTransitionTo(model.ApprovalNeedsReview) {
		return nil, ErrApprovalTransition
	}

	oldDay := rec.DayStatus
	oldApproval := rec.ApprovalStatus
	now := s.nowFn()

	rec.DayStatus = newStatus
	rec.IsIncomplete = newStatus == model.DayStatusIncomplete
	rec.IsLateEntry = newStatus == model.DayStatusPresentLate
	rec.ApprovalStatus = model.ApprovalNeedsReview
	rec.ReviewedBy = &reviewerID
	rec.ReviewedAt = &now
	rec.SupervisorComment = comment
	rec.UpdatedBy = &reviewerID

	log := &model.ReviewLog{
		AttendanceRecordID: rec.AttendanceRecordID,
		ReviewerID:         reviewerID,
		Action:             model.ReviewActionReclassify,
		OldDayStatus:       oldDay,
		NewDayStatus:       newStatus,
		OldApprovalStatus:  oldApproval,
		NewApprovalStatus:  rec.ApprovalStatus,
		Comment:            comment,
	}

	if err := s.applyReview(ctx, rec, log); err != nil {
		return nil, err
	}
	return s.toAttendanceResponse(rec), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *attendanceService) GetRecord(ctx context.Context, recordID string) (*dto.AttendanceResponse, error) {
	rec, err := s.getRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	s.refreshStale(ctx, p, rec)

	return s.toAttendanceResponse(rec), nil
}

func (s *attendanceService) ListByStudent(ctx context.Context, studentID string, from, to string) ([]dto.AttendanceResponse, error) {
	fromD, toD, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}

	recs, err := s.repo.Attendance.ListByStudentRange(ctx, studentID, fromD, toD)
	if err != nil {
		s.logger.Error("查询学生考勤历史失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(recs))
	for i := range recs {
		s.refreshStale(ctx, p, &recs[i])
		result = append(result, *s.toAttendanceResponse(&recs[i]))
	}
	return result, nil
}

func (s *attendanceService) ListByPlacement(ctx context.Context, placementID string, from, to string) ([]dto.AttendanceResponse, error) {
	fromD, toD, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}

	recs, err := s.repo.Attendance.ListByPlacementRange(ctx, placementID, fromD, toD)
	if err != nil {
		s.logger.Error("查询实习单位考勤失败", zap.String("placement_id", placementID), zap.Error(err))
		return nil, err
	}

	p, err := s.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]dto.AttendanceResponse, 0, len(recs))
	for i := range recs {
		s.refreshStale(ctx, p, &recs[i])
		result = append(result, *s.toAttendanceResponse(&recs[i]))
	}
	return result, nil
}

func (s *attendanceService) ListReviewLogs(ctx context.Context, recordID string) ([]dto.ReviewLogResponse, error) {
	if _, err := s.getRecord(ctx, recordID); err != nil {
		return nil, err
	}

	logs, err := s.repo.ReviewLog.ListByRecord(ctx, recordID)
	if err != nil {
		s.logger.Error("查询审批流水失败", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ReviewLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, *toReviewLogResponse(&logs[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *attendanceService) getRecord(ctx context.Context, recordID string) (*model.AttendanceRecord, error) {
	rec, err := s.repo.Attendance.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		s.logger.Error("查询考勤记录失败", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}
	return rec, nil
}

// applyReview 在同一事务内落库记录变更与审批流水
func (s *attendanceService) applyReview(ctx context.Context, rec *model.AttendanceRecord, log *model.ReviewLog) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Attendance.Update(ctx, rec); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("更新考勤记录失败", zap.String("record_id", rec.AttendanceRecordID), zap.Error(err))
		return err
	}
	if err := txRepo.ReviewLog.Create(ctx, log); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入审批流水失败", zap.String("record_id", rec.AttendanceRecordID), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// refreshStale 惰性修正：超时未签退的记录固化为 incomplete
// 落库失败不阻断读取，仅记日志
func (s *attendanceService) refreshStale(ctx context.Context, p PolicyThresholds, rec *model.AttendanceRecord) {
	if !StaleOpen(rec, p, s.nowFn()) || rec.IsIncomplete {
		return
	}
	rec.DayStatus = model.DayStatusIncomplete
	rec.IsIncomplete = true
	if err := s.repo.Attendance.Update(ctx, rec); err != nil {
		s.logger.Warn("固化 incomplete 状态失败",
			zap.String("record_id", rec.AttendanceRecordID), zap.Error(err))
	}
}

// parseRange 解析日期区间；缺省为最近 30 天
func (s *attendanceService) parseRange(from, to string) (time.Time, time.Time, error) {
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

func (s *attendanceService) toAttendanceResponse(rec *model.AttendanceRecord) *dto.AttendanceResponse {
	return &dto.AttendanceResponse{
		ID:                rec.AttendanceRecordID,
		StudentID:         rec.StudentID,
		PlacementID:       rec.PlacementID,
		Date:              rec.Date.Format("2006-01-02"),
		CheckInTime:       formatTimePtr(rec.CheckInTime),
		CheckOutTime:      formatTimePtr(rec.CheckOutTime),
		HoursWorked:       rec.HoursWorked,
		Location:          rec.Location,
		Notes:             rec.Notes,
		Punctuality:       string(rec.Punctuality),
		DayStatus:         string(rec.DayStatus),
		Status:            rec.DayStatus.Legacy(),
		ApprovalStatus:    string(rec.ApprovalStatus),
		AbsenceReason:     rec.AbsenceReason,
		ReviewedBy:        rec.ReviewedBy,
		ReviewedAt:        formatTimePtr(rec.ReviewedAt),
		SupervisorComment: rec.SupervisorComment,
		IsLateEntry:       rec.IsLateEntry,
		IsIncomplete:      rec.IsIncomplete,
		CreatedAt:         rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         rec.UpdatedAt.Format(time.RFC3339),
	}
}

func toReviewLogResponse(log *model.ReviewLog) *dto.ReviewLogResponse {
	return &dto.ReviewLogResponse{
		ID:                log.ReviewLogID,
		ReviewerID:        log.ReviewerID,
		Action:            log.Action,
		OldDayStatus:      string(log.OldDayStatus),
		NewDayStatus:      string(log.NewDayStatus),
		OldApprovalStatus: string(log.OldApprovalStatus),
		NewApprovalStatus: string(log.NewApprovalStatus),
		Comment:           log.Comment,
		CreatedAt:         log.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
