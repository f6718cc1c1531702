package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"placetrack/backend/internal/model"
	"placetrack/backend/internal/repository"
	"placetrack/backend/pkg/clock"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("该区间内无考勤记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 考勤导出业务接口
//
// 设计说明：
//   - 按实习单位导出月度考勤表为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel 格式：行=学生，列=当月每个工作日，单元格为日状态缩写
type ExportService interface {
	// ExportMonthly 导出某实习单位指定月份（"2024-03"）的考勤表
	ExportMonthly(ctx context.Context, placementID, month string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// dayStatusAbbrev 单元格缩写；图例行会完整列出
var dayStatusAbbrev = map[model.DayStatus]string{
	model.DayStatusPresentOnTime:  "√",
	model.DayStatusPresentLate:    "迟",
	model.DayStatusHalfDay:        "半",
	model.DayStatusAbsent:         "缺",
	model.DayStatusExcusedAbsence: "假",
	model.DayStatusIncomplete:     "?",
}

func (s *exportService) ExportMonthly(ctx context.Context, placementID, month string) (*bytes.Buffer, string, error) {
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, "", ErrInvalidDate
	}
	monthEnd := monthStart.AddDate(0, 1, -1)

	// 1. 查询区间内全部考勤记录
	recs, err := s.repo.Attendance.ListByPlacementRange(ctx, placementID, monthStart, monthEnd)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("placement_id", placementID), zap.Error(err))
		return nil, "", err
	}
	if len(recs) == 0 {
		return nil, "", ErrExportNoRecords
	}

	// 2. 节假日用于列头标注
	holidays, err := s.repo.Holiday.ListBetween(ctx, monthStart, monthEnd)
	if err != nil {
		s.logger.Error("查询节假日失败", zap.Error(err))
		return nil, "", err
	}
	holidaySet := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		holidaySet[clock.DateKey(h.Date)] = true
	}

	// 3. 构建索引: "studentID:date" → 缩写；并收集学生顺序
	cellIndex := make(map[string]string, len(recs))
	var studentOrder []string
	studentSeen := make(map[string]bool)
	for i := range recs {
		rec := &recs[i]
		cellIndex[rec.StudentID+":"+clock.DateKey(rec.Date)] = dayStatusAbbrev[rec.DayStatus]
		if !studentSeen[rec.StudentID] {
			studentSeen[rec.StudentID] = true
			studentOrder = append(studentOrder, rec.StudentID)
		}
	}

	// 4. 当月工作日列
	var workdays []time.Time
	for d := monthStart; !d.After(monthEnd); d = d.AddDate(0, 0, 1) {
		if clock.IsWorkday(d, holidaySet) {
			workdays = append(workdays, d)
		}
	}

	// 5. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤表"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 38)
	lastCol := colName(len(workdays))
	f.SetColWidth(sheetName, "B", lastCol, 5)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 月度考勤表", month))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头：学生 | 1 | 2 | …（仅工作日）
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "学生")
	for i, d := range workdays {
		f.SetCellValue(sheetName, cell(colName(1+i), row), d.Day())
	}

	// 数据行
	row = 3
	for _, studentID := range studentOrder {
		f.SetCellValue(sheetName, cell("A", row), studentID)
		for i, d := range workdays {
			abbrev, ok := cellIndex[studentID+":"+clock.DateKey(d)]
			if !ok {
				abbrev = "-"
			}
			f.SetCellValue(sheetName, cell(colName(1+i), row), abbrev)
		}
		row++
	}

	// 图例行
	row++
	f.SetCellValue(sheetName, cell("A", row),
		"图例：√ 准点出勤 / 迟 迟到 / 半 半天 / 缺 无故缺勤 / 假 准假缺勤 / ? 未签退 / - 无记录")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤表_%s_%s.xlsx", placementID, month)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
