package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/lock"
)

// SemesterService 学期答辩策略业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	// Current 返回学期范围覆盖 asOf 的学期，日期由调用方给出
	Current(ctx context.Context, asOf time.Time) (*dto.SemesterResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	Delete(ctx context.Context, id string) error
}

type semesterService struct {
	repo   *repository.Repository
	locker lock.Locker
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, locker lock.Locker, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, locker: locker, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	var fe fieldErrors
	semester := &model.Semester{
		Name:              req.Name,
		StartDate:         fe.date("start_date", req.StartDate),
		EndDate:           fe.date("end_date", req.EndDate),
		PresentationStart: fe.date("presentation_start", req.PresentationStart),
		PresentationEnd:   fe.date("presentation_end", req.PresentationEnd),
		DailyStart:        fe.clock("daily_start", req.DailyStart),
		DailyEnd:          fe.clock("daily_end", req.DailyEnd),
		DurationMinutes:   req.DurationMinutes,
		MinCommittee:      req.MinCommittee,
		MaxCommittee:      req.MaxCommittee,
	}
	if err := fe.err(); err != nil {
		return nil, err
	}
	if err := validateSemester(semester); err != nil {
		return nil, err
	}

	semester.CreatedBy = &callerID
	semester.UpdatedBy = &callerID

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("学期已创建", zap.String("semester_id", semester.SemesterID), zap.String("name", semester.Name))
	return s.toSemesterResponse(semester), nil
}

// ────────────────────── Query ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrSemesterNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *s.toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

func (s *semesterService) Current(ctx context.Context, asOf time.Time) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.FindCurrent(ctx, asOf)
	if err != nil {
		err = notFound(err, ErrNoCurrentSemester)
		if !isBusiness(err) {
			s.logger.Error("查询当前学期失败", zap.Time("as_of", asOf), zap.Error(err))
		}
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

// ────────────────────── Update ──────────────────────

func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	var result *model.Semester
	err := withLock(ctx, s.locker, []string{semesterKey(id)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			semester, err := tx.Semester.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, ErrSemesterNotFound)
			}

			oldDuration, oldMax := semester.DurationMinutes, semester.MaxCommittee
			if err := applySemesterPatch(semester, req); err != nil {
				return err
			}
			if err := validateSemester(semester); err != nil {
				return err
			}

			// 人数上限不得低于已有委员会人数
			if semester.MaxCommittee < oldMax {
				largest, err := largestCommittee(ctx, tx, repository.TribunalFilter{SemesterID: id})
				if err != nil {
					return err
				}
				if largest > semester.MaxCommittee {
					return pkgerrors.NewFieldError("max_committee",
						fmt.Sprintf("must not be less than the largest existing committee (%d)", largest))
				}
			}

			// 已有时段必须仍落在新窗口与每日时间范围内
			slots, err := tx.Slot.List(ctx, repository.SlotFilter{SemesterID: id})
			if err != nil {
				return err
			}
			changed, offending, err := revalidateSlots(ctx, tx, semester, slots, semester.DurationMinutes != oldDuration)
			if err != nil {
				return err
			}
			if len(offending) > 0 {
				return &pkgerrors.DatesError{
					Reason: "update would leave existing slots outside the allowed window",
					Dates:  offending,
				}
			}
			if semester.DurationMinutes != oldDuration {
				if err := checkDurationClashes(ctx, tx, slots, semester.DurationMinutes); err != nil {
					return err
				}
			}

			semester.UpdatedBy = &callerID
			if err := tx.Semester.Update(ctx, semester); err != nil {
				return err
			}
			for _, slot := range changed {
				slot.UpdatedBy = &callerID
				if err := tx.Slot.Update(ctx, slot); err != nil {
					return err
				}
			}
			result = semester
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.toSemesterResponse(result), nil
}

// ────────────────────── Delete ──────────────────────

func (s *semesterService) Delete(ctx context.Context, id string) error {
	err := withLock(ctx, s.locker, []string{semesterKey(id)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if _, err := tx.Semester.GetForUpdate(ctx, id); err != nil {
				return notFound(err, ErrSemesterNotFound)
			}

			count, err := tx.Track.CountBySemester(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return &pkgerrors.DependencyError{Entity: "semester", Dependents: "track", Count: count}
			}

			return tx.Semester.Delete(ctx, id)
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("删除学期失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("学期已删除", zap.String("semester_id", id))
	return nil
}

// ── 内部辅助方法 ──

func applySemesterPatch(semester *model.Semester, req *dto.UpdateSemesterRequest) error {
	var fe fieldErrors
	if req.Name != nil {
		semester.Name = *req.Name
	}
	if req.StartDate != nil {
		semester.StartDate = fe.date("start_date", *req.StartDate)
	}
	if req.EndDate != nil {
		semester.EndDate = fe.date("end_date", *req.EndDate)
	}
	if req.PresentationStart != nil {
		semester.PresentationStart = fe.date("presentation_start", *req.PresentationStart)
	}
	if req.PresentationEnd != nil {
		semester.PresentationEnd = fe.date("presentation_end", *req.PresentationEnd)
	}
	if req.DailyStart != nil {
		semester.DailyStart = fe.clock("daily_start", *req.DailyStart)
	}
	if req.DailyEnd != nil {
		semester.DailyEnd = fe.clock("daily_end", *req.DailyEnd)
	}
	if req.DurationMinutes != nil {
		semester.DurationMinutes = *req.DurationMinutes
	}
	if req.MinCommittee != nil {
		semester.MinCommittee = *req.MinCommittee
	}
	if req.MaxCommittee != nil {
		semester.MaxCommittee = *req.MaxCommittee
	}
	return fe.err()
}

// validateSemester 一次性校验全部学期不变量
func validateSemester(s *model.Semester) error {
	var fe fieldErrors

	if !s.StartDate.Before(s.EndDate) {
		fe.add("end_date", "must be after start_date")
	}
	if !s.PresentationStart.Before(s.PresentationEnd) {
		fe.add("presentation_end", "must be after presentation_start")
	}
	if !s.Covers(s.PresentationStart) {
		fe.add("presentation_start", "must lie within the term")
	}
	if !s.Covers(s.PresentationEnd) {
		fe.add("presentation_end", "must lie within the term")
	}

	for _, d := range []struct {
		field string
		value time.Time
	}{
		{"start_date", s.StartDate},
		{"end_date", s.EndDate},
		{"presentation_start", s.PresentationStart},
		{"presentation_end", s.PresentationEnd},
	} {
		if !scheduling.IsWeekday(d.value) {
			fe.add(d.field, "must fall on a weekday")
		}
	}

	if start, end, err := s.DailyBounds(); err != nil {
		fe.add("daily_start", "invalid time, expected HH:MM")
	} else if start >= end {
		fe.add("daily_end", "must be after daily_start")
	}

	if s.DurationMinutes <= 0 {
		fe.add("duration_minutes", "must be positive")
	}
	if s.MinCommittee < 1 {
		fe.add("min_committee", "must be at least 1")
	}
	if s.MinCommittee > s.MaxCommittee {
		fe.add("max_committee", "must not be less than min_committee")
	}

	return fe.err()
}

func (s *semesterService) toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:                semester.SemesterID,
		Name:              semester.Name,
		StartDate:         scheduling.FormatDate(semester.StartDate),
		EndDate:           scheduling.FormatDate(semester.EndDate),
		PresentationStart: scheduling.FormatDate(semester.PresentationStart),
		PresentationEnd:   scheduling.FormatDate(semester.PresentationEnd),
		DailyStart:        clockString(semester.DailyStart),
		DailyEnd:          clockString(semester.DailyEnd),
		DurationMinutes:   semester.DurationMinutes,
		MinCommittee:      semester.MinCommittee,
		MaxCommittee:      semester.MaxCommittee,
		Version:           semester.Version,
		CreatedAt:         semester.CreatedAt.Format(timestampLayout),
		UpdatedAt:         semester.UpdatedAt.Format(timestampLayout),
	}
}
