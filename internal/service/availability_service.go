package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
)

// AvailabilityService 可用性查询接口，只读
//
// 查询范围：显式给定学期 ID，或按 as_of 日期（缺省今天）解析当前学期；
// 没有学期覆盖该日期时返回空结果。
type AvailabilityService interface {
	// AvailableSlots 仍有空余序号的时段
	AvailableSlots(ctx context.Context, scope *dto.AvailabilityScope) ([]dto.SlotResponse, error)
	// AvailableTribunalsFor 用户可加入委员会的答辩：未入座、未满员、时间不冲突
	AvailableTribunalsFor(ctx context.Context, req *dto.AvailableTribunalsRequest) ([]dto.TribunalResponse, error)
	// ReadyTribunals 满足就绪规则的答辩
	ReadyTribunals(ctx context.Context, req *dto.ReadyTribunalsRequest) ([]dto.TribunalResponse, error)
}

type availabilityService struct {
	repo   *repository.Repository
	rule   scheduling.ReadyRule
	now    func() time.Time
	logger *zap.Logger
}

// NewAvailabilityService 创建 AvailabilityService 实例，loc 决定"今天"的日期
func NewAvailabilityService(repo *repository.Repository, rule scheduling.ReadyRule, loc *time.Location, logger *zap.Logger) AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	now := func() time.Time { return time.Now().In(loc) }
	return &availabilityService{repo: repo, rule: rule, now: now, logger: logger}
}

// resolveSemester 解析查询范围；返回 nil 表示没有适用学期
func (s *availabilityService) resolveSemester(ctx context.Context, scope *dto.AvailabilityScope) (*model.Semester, error) {
	if scope.SemesterID != "" {
		sem, err := s.repo.Semester.GetByID(ctx, scope.SemesterID)
		if err != nil {
			return nil, notFound(err, ErrSemesterNotFound)
		}
		return sem, nil
	}

	asOf := scheduling.Day(s.now())
	if scope.AsOf != "" {
		d, err := scheduling.ParseDate(scope.AsOf)
		if err != nil {
			var fe fieldErrors
			fe.add("as_of", "invalid date, expected YYYY-MM-DD")
			return nil, fe.err()
		}
		asOf = d
	}

	sem, err := s.repo.Semester.FindCurrent(ctx, asOf)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return sem, err
}

// ────────────────────── Slots ──────────────────────

func (s *availabilityService) AvailableSlots(ctx context.Context, scope *dto.AvailabilityScope) ([]dto.SlotResponse, error) {
	sem, err := s.resolveSemester(ctx, scope)
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("解析查询学期失败", zap.Error(err))
		}
		return nil, err
	}
	result := make([]dto.SlotResponse, 0)
	if sem == nil {
		return result, nil
	}

	slots, err := s.repo.Slot.List(ctx, repository.SlotFilter{SemesterID: sem.SemesterID})
	if err != nil {
		s.logger.Error("列出时段失败", zap.String("semester_id", sem.SemesterID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(slots))
	for i := range slots {
		ids = append(ids, slots[i].SlotID)
	}
	counts, err := s.repo.Tribunal.CountBySlots(ctx, ids)
	if err != nil {
		s.logger.Error("统计时段占用失败", zap.Error(err))
		return nil, err
	}

	for i := range slots {
		occupied := counts[slots[i].SlotID]
		if occupied >= slots[i].Capacity {
			continue
		}
		result = append(result, *toSlotResponse(&slots[i], occupied, nil, nil))
	}
	return result, nil
}

// ────────────────────── Tribunals ──────────────────────

func (s *availabilityService) AvailableTribunalsFor(ctx context.Context, req *dto.AvailableTribunalsRequest) ([]dto.TribunalResponse, error) {
	if _, err := s.repo.User.GetByID(ctx, req.UserID); err != nil {
		err = notFound(err, ErrUserNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询用户失败", zap.String("user_id", req.UserID), zap.Error(err))
		}
		return nil, err
	}

	sem, err := s.resolveSemester(ctx, &req.AvailabilityScope)
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("解析查询学期失败", zap.Error(err))
		}
		return nil, err
	}
	result := make([]dto.TribunalResponse, 0)
	if sem == nil {
		return result, nil
	}

	busy, seated, err := busyIntervals(ctx, s.repo, req.UserID, "")
	if err != nil {
		s.logger.Error("查询评委已有安排失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	tribunals, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{SemesterID: sem.SemesterID})
	if err != nil {
		s.logger.Error("列出答辩失败", zap.String("semester_id", sem.SemesterID), zap.Error(err))
		return nil, err
	}

	for i := range tribunals {
		t := &tribunals[i]
		if seated[t.TribunalID] || t.Slot == nil {
			continue
		}
		if staffingOf(t.Committees, sem).Full() {
			continue
		}
		iv, err := tribunalInterval(t, t.Slot, sem.DurationMinutes)
		if err != nil {
			return nil, err
		}
		if iv.ConflictsAny(busy) {
			continue
		}
		result = append(result, toTribunalResponse(t, s.rule))
	}
	return result, nil
}

func (s *availabilityService) ReadyTribunals(ctx context.Context, req *dto.ReadyTribunalsRequest) ([]dto.TribunalResponse, error) {
	tribunals, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{
		TrackID:    req.TrackID,
		SemesterID: req.SemesterID,
	})
	if err != nil {
		s.logger.Error("列出答辩失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TribunalResponse, 0)
	for i := range tribunals {
		t := &tribunals[i]
		sem := tribunalSemester(t)
		if sem == nil {
			continue
		}
		if !staffingOf(t.Committees, sem).Ready(s.rule) {
			continue
		}
		result = append(result, toTribunalResponse(t, s.rule))
	}
	return result, nil
}
