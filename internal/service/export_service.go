package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
)

// ErrExportGenerateFail 生成文件失败
var ErrExportGenerateFail = errors.New("failed to generate spreadsheet")

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入。
// 每场答辩一行，按日期、教室、时段开始时间、序号排序。
type ExportService interface {
	// ExportSchedule 导出学期答辩安排为 Excel
	ExportSchedule(ctx context.Context, semesterID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	rule   scheduling.ReadyRule
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, rule scheduling.ReadyRule, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, rule: rule, logger: logger}
}

// exportHeaders 表头，顺序即列顺序
var exportHeaders = []string{"日期", "教室", "方向", "序号", "开始", "结束", "答辩题目", "主席", "秘书", "委员", "状态"}

// ═══════════════════════════════════════════════════════════
// ExportSchedule 导出答辩安排为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSchedule(ctx context.Context, semesterID string) (*bytes.Buffer, string, error) {
	// 1. 学期
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		err = notFound(err, ErrSemesterNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询学期失败", zap.String("semester_id", semesterID), zap.Error(err))
		}
		return nil, "", err
	}

	// 2. 学期内全部答辩（含时段、方向、委员会）
	tribunals, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{SemesterID: semesterID})
	if err != nil {
		s.logger.Error("查询答辩安排失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, "", err
	}
	sortForExport(tribunals)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "答辩安排"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{12, 10, 20, 6, 8, 8, 36, 14, 14, 28, 12}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 答辩安排", semester.Name))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range tribunals {
		values := exportRow(&tribunals[i], semester, s.rule)
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("答辩安排已导出",
		zap.String("semester_id", semesterID),
		zap.Int("rows", len(tribunals)),
	)
	filename := fmt.Sprintf("答辩安排_%s.xlsx", semester.Name)
	return buf, filename, nil
}

func sortForExport(tribunals []model.Tribunal) {
	sort.SliceStable(tribunals, func(i, j int) bool {
		a, b := tribunals[i].Slot, tribunals[j].Slot
		if a == nil || b == nil {
			return a != nil
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return tribunals[i].Index < tribunals[j].Index
	})
}

func exportRow(t *model.Tribunal, semester *model.Semester, rule scheduling.ReadyRule) []interface{} {
	var date, room, track, start, end, title string
	if t.Slot != nil {
		date = t.Slot.DateString()
		room = t.Slot.Room
		if t.Slot.Track != nil {
			track = t.Slot.Track.Title
		}
		if iv, err := tribunalInterval(t, t.Slot, semester.DurationMinutes); err == nil {
			start, end = iv.Start.String(), iv.End.String()
		}
	}
	if t.Defense != nil {
		title = t.Defense.Title
	}

	var president, secretary string
	var vocals []string
	for _, a := range t.Committees {
		name := a.UserID
		if a.User != nil {
			name = a.User.FullName
		}
		switch a.Role {
		case scheduling.RolePresident:
			president = name
		case scheduling.RoleSecretary:
			secretary = name
		default:
			vocals = append(vocals, name)
		}
	}

	state := staffingOf(t.Committees, semester).State(rule)
	return []interface{}{
		date, room, track, t.Index, start, end, title,
		president, secretary, strings.Join(vocals, "、"), stateLabel(state),
	}
}

func stateLabel(st scheduling.StaffingState) string {
	switch st {
	case scheduling.StateFull:
		return "已满员"
	case scheduling.StateReady:
		return "已就绪"
	case scheduling.StatePartiallyStaffed:
		return "部分配置"
	default:
		return "未配置"
	}
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
