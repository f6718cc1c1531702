package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"placetrack/backend/internal/model"
	"placetrack/backend/pkg/clock"
)

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.AttendanceRecord // ID → 记录
	nextID  int

	// createErrFor 注入指定学生的 CreateIfAbsent 失败，用于部分失败场景
	createErrFor map[string]error
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{
		records:      make(map[string]*model.AttendanceRecord),
		createErrFor: make(map[string]error),
	}
}

func (m *mockAttendanceRepo) dayKey(studentID string, date time.Time) string {
	return studentID + ":" + clock.DateKey(date)
}

func (m *mockAttendanceRepo) CreateIfAbsent(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	if err, ok := m.createErrFor[rec.StudentID]; ok {
		return false, err
	}
	for _, existing := range m.records {
		if m.dayKey(existing.StudentID, existing.Date) == m.dayKey(rec.StudentID, rec.Date) {
			return false, nil
		}
	}
	if rec.AttendanceRecordID == "" {
		m.nextID++
		rec.AttendanceRecordID = fmt.Sprintf("att-%03d", m.nextID)
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = time.Now()
	m.records[rec.AttendanceRecordID] = rec
	return true, nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*model.AttendanceRecord, error) {
	if rec, ok := m.records[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetByStudentAndDate(_ context.Context, studentID string, date time.Time) (*model.AttendanceRecord, error) {
	for _, rec := range m.records {
		if rec.StudentID == studentID && clock.SameDay(rec.Date, date) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Update(_ context.Context, rec *model.AttendanceRecord) error {
	if _, ok := m.records[rec.AttendanceRecordID]; !ok {
		return gorm.ErrRecordNotFound
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.records[rec.AttendanceRecordID] = &cp
	return nil
}

func (m *mockAttendanceRepo) ListByStudentRange(_ context.Context, studentID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID != studentID {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		result = append(result, *rec)
	}
	sortRecordsByDate(result)
	return result, nil
}

func (m *mockAttendanceRepo) ListByDate(_ context.Context, date time.Time) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if clock.SameDay(rec.Date, date) {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByPlacementRange(_ context.Context, placementID string, from, to time.Time) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, rec := range m.records {
		if rec.PlacementID != placementID {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		result = append(result, *rec)
	}
	sortRecordsByDate(result)
	return result, nil
}

// sortRecordsByDate 插入排序（测试数据量小），保证与真实仓库同为日期升序
func sortRecordsByDate(recs []model.AttendanceRecord) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].Date.Before(recs[j-1].Date); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

// ── Mock ReviewLogRepository ──

type mockReviewLogRepo struct {
	logs []model.ReviewLog
}

func newMockReviewLogRepo() *mockReviewLogRepo {
	return &mockReviewLogRepo{}
}

func (m *mockReviewLogRepo) Create(_ context.Context, log *model.ReviewLog) error {
	if log.ReviewLogID == "" {
		log.ReviewLogID = fmt.Sprintf("rlog-%03d", len(m.logs)+1)
	}
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockReviewLogRepo) ListByRecord(_ context.Context, recordID string) ([]model.ReviewLog, error) {
	var result []model.ReviewLog
	for _, log := range m.logs {
		if log.AttendanceRecordID == recordID {
			result = append(result, log)
		}
	}
	return result, nil
}

// ── Mock HolidayRepository ──

type mockHolidayRepo struct {
	holidays map[string]*model.Holiday // DateKey → 节假日
}

func newMockHolidayRepo() *mockHolidayRepo {
	return &mockHolidayRepo{holidays: make(map[string]*model.Holiday)}
}

func (m *mockHolidayRepo) Upsert(_ context.Context, h *model.Holiday) error {
	key := clock.DateKey(h.Date)
	if existing, ok := m.holidays[key]; ok {
		existing.Name = h.Name
		h.HolidayID = existing.HolidayID
		return nil
	}
	if h.HolidayID == "" {
		h.HolidayID = "hol-" + key
	}
	m.holidays[key] = h
	return nil
}

func (m *mockHolidayRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Holiday, error) {
	var result []model.Holiday
	for _, h := range m.holidays {
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		result = append(result, *h)
	}
	return result, nil
}

func (m *mockHolidayRepo) Delete(_ context.Context, id string) error {
	for key, h := range m.holidays {
		if h.HolidayID == id {
			delete(m.holidays, key)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{}
}

func (m *mockEnrollmentRepo) ListActiveOnDate(_ context.Context, date time.Time) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if !e.IsActive {
			continue
		}
		if date.Before(e.StartDate) || date.After(e.EndDate) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *mockEnrollmentRepo) ListByPlacement(_ context.Context, placementID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.PlacementID == placementID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ── Mock PolicyRepository ──

type mockPolicyRepo struct {
	policy *model.AttendancePolicy // nil 表示行缺失，走进程配置默认值
}

func newMockPolicyRepo() *mockPolicyRepo {
	return &mockPolicyRepo{}
}

func (m *mockPolicyRepo) Get(_ context.Context) (*model.AttendancePolicy, error) {
	if m.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.policy
	return &cp, nil
}

func (m *mockPolicyRepo) Update(_ context.Context, p *model.AttendancePolicy) error {
	p.Singleton = true
	cp := *p
	m.policy = &cp
	return nil
}
