package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"placetrack/backend/internal/dto"
	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
)

// ── 测试辅助 ──

const testCoordinatorID = "6f0c1a2b-0000-0000-0000-0000000000cc"

func setupTestMarkerService(now time.Time) (AbsenceMarkerService, *mockAttendanceRepo, *mockEnrollmentRepo, *mockHolidayRepo) {
	attRepo := newMockAttendanceRepo()
	enrRepo := newMockEnrollmentRepo()
	holRepo := newMockHolidayRepo()
	repo := &repository.Repository{
		Attendance: attRepo,
		ReviewLog:  newMockReviewLogRepo(),
		Holiday:    holRepo,
		Enrollment: enrRepo,
		Policy:     newMockPolicyRepo(),
	}
	logger := zap.NewNop()
	policy := NewPolicyService(testConfig(), repo, logger)
	svc := NewAbsenceMarkerService(repo, policy, logger)
	svc.(*absenceMarkerService).nowFn = func() time.Time { return now }
	return svc, attRepo, enrRepo, holRepo
}

func enroll(enrRepo *mockEnrollmentRepo, studentID, placementID string) {
	enrRepo.enrollments = append(enrRepo.enrollments, model.Enrollment{
		EnrollmentID: "enr-" + studentID,
		StudentID:    studentID,
		PlacementID:  placementID,
		StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:     true,
	})
}

// ── MarkAbsentees 测试 ──

func TestAbsenceMarkerService_MarkAbsentees_CreatesForMissing(t *testing.T) {
	// 2026-03-02 是周一
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, attRepo, enrRepo, _ := setupTestMarkerService(now)

	enroll(enrRepo, "stu-001", testPlacementID)
	enroll(enrRepo, "stu-002", testPlacementID)
	enroll(enrRepo, "stu-003", testPlacementID)

	// stu-001 当日已签到
	checkIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	attRepo.records["att-001"] = &model.AttendanceRecord{
		AttendanceRecordID: "att-001",
		StudentID:          "stu-001",
		PlacementID:        testPlacementID,
		Date:               clock.Normalize(now),
		CheckInTime:        &checkIn,
		DayStatus:          model.DayStatusIncomplete,
		ApprovalStatus:     model.ApprovalPending,
	}

	result, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if err != nil {
		t.Fatalf("MarkAbsentees 应成功: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("期望新建 2 条，实际 %d", result.Created)
	}
	if result.Skipped != 1 {
		t.Errorf("期望跳过 1 条，实际 %d", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("期望失败 0 条，实际 %d", result.Failed)
	}

	// 标记出的记录为 absent / pending，带系统理由
	rec, err := attRepo.GetByStudentAndDate(context.Background(), "stu-002", clock.Normalize(now))
	if err != nil {
		t.Fatalf("标记记录应存在: %v", err)
	}
	if rec.DayStatus != model.DayStatusAbsent {
		t.Errorf("期望 absent，实际 %s", rec.DayStatus)
	}
	if rec.AbsenceReason != systemMarkedReason {
		t.Errorf("系统理由不符，实际 %s", rec.AbsenceReason)
	}
}

func TestAbsenceMarkerService_MarkAbsentees_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, attRepo, enrRepo, _ := setupTestMarkerService(now)

	enroll(enrRepo, "stu-001", testPlacementID)
	enroll(enrRepo, "stu-002", testPlacementID)

	first, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if err != nil {
		t.Fatalf("首次标记应成功: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("期望新建 2 条，实际 %d", first.Created)
	}

	second, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if err != nil {
		t.Fatalf("重复标记应成功: %v", err)
	}
	if second.Created != 0 || second.Skipped != 2 {
		t.Errorf("重复标记应全部跳过，实际 created=%d skipped=%d", second.Created, second.Skipped)
	}
	if len(attRepo.records) != 2 {
		t.Errorf("期望仍为 2 条记录，实际 %d", len(attRepo.records))
	}
}

func TestAbsenceMarkerService_MarkAbsentees_PartialFailure(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, attRepo, enrRepo, _ := setupTestMarkerService(now)

	enroll(enrRepo, "stu-001", testPlacementID)
	enroll(enrRepo, "stu-002", testPlacementID)
	enroll(enrRepo, "stu-003", testPlacementID)

	// stu-002 写入失败，不应影响其余学生
	attRepo.createErrFor["stu-002"] = errors.New("connection reset")

	result, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if err != nil {
		t.Fatalf("部分失败不应中断整体: %v", err)
	}
	if result.Created != 2 {
		t.Errorf("期望新建 2 条，实际 %d", result.Created)
	}
	if result.Failed != 1 {
		t.Errorf("期望失败 1 条，实际 %d", result.Failed)
	}

	var failed *dto.MarkResultResponse
	for i := range result.Results {
		if result.Results[i].StudentID == "stu-002" {
			failed = &result.Results[i]
		}
	}
	if failed == nil || failed.Outcome != "failed" || failed.Error == "" {
		t.Error("失败学生应带 failed 结果与错误信息")
	}
}

func TestAbsenceMarkerService_MarkAbsentees_ExplicitStudents(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, _, enrRepo, _ := setupTestMarkerService(now)

	enroll(enrRepo, "stu-001", testPlacementID)

	result, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{
		StudentIDs: []string{"stu-001", "stu-unknown"},
	})
	if err != nil {
		t.Fatalf("MarkAbsentees 应成功: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("期望新建 1 条，实际 %d", result.Created)
	}
	// 不在册的学生按失败上报，而非静默忽略
	if result.Failed != 1 {
		t.Errorf("不在册学生应计为失败，实际 failed=%d", result.Failed)
	}
}

func TestAbsenceMarkerService_MarkAbsentees_SkipsNonWorkday(t *testing.T) {
	// 2026-03-01 是周日
	now := time.Date(2026, 3, 1, 23, 5, 0, 0, time.UTC)
	svc, _, enrRepo, _ := setupTestMarkerService(now)
	enroll(enrRepo, "stu-001", testPlacementID)

	_, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if !errors.Is(err, ErrNotWorkday) {
		t.Errorf("周日标记应返回 ErrNotWorkday，实际: %v", err)
	}
}

func TestAbsenceMarkerService_MarkAbsentees_SkipsHoliday(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, _, enrRepo, holRepo := setupTestMarkerService(now)
	enroll(enrRepo, "stu-001", testPlacementID)

	holRepo.holidays["2026-03-02"] = &model.Holiday{
		HolidayID: "hol-001",
		Date:      clock.Normalize(now),
		Name:      "校庆日",
	}

	_, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{})
	if !errors.Is(err, ErrNotWorkday) {
		t.Errorf("节假日标记应返回 ErrNotWorkday，实际: %v", err)
	}
}

func TestAbsenceMarkerService_MarkAbsentees_RejectsFutureDate(t *testing.T) {
	now := time.Date(2026, 3, 2, 23, 5, 0, 0, time.UTC)
	svc, _, _, _ := setupTestMarkerService(now)

	_, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{
		Date: "2026-03-03",
	})
	if !errors.Is(err, ErrFutureMarkDate) {
		t.Errorf("未来日期应返回 ErrFutureMarkDate，实际: %v", err)
	}
}

func TestAbsenceMarkerService_MarkAbsentees_SweepsStaleOpen(t *testing.T) {
	// 标记前一个工作日，此时当日未签退的记录已超时
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	svc, attRepo, enrRepo, _ := setupTestMarkerService(now)
	enroll(enrRepo, "stu-001", testPlacementID)

	checkIn := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	attRepo.records["att-stale"] = &model.AttendanceRecord{
		AttendanceRecordID: "att-stale",
		StudentID:          "stu-001",
		PlacementID:        testPlacementID,
		Date:               clock.Normalize(checkIn),
		CheckInTime:        &checkIn,
		DayStatus:          model.DayStatusIncomplete,
		ApprovalStatus:     model.ApprovalPending,
	}

	result, err := svc.MarkAbsentees(context.Background(), testCoordinatorID, &dto.MarkAbsenteesRequest{
		Date: "2026-03-03",
	})
	if err != nil {
		t.Fatalf("MarkAbsentees 应成功: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("已有记录应跳过，实际 skipped=%d", result.Skipped)
	}
	if !attRepo.records["att-stale"].IsIncomplete {
		t.Error("超时未签退记录应在收尾时固化 is_incomplete")
	}
}
