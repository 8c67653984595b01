package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/lock"
)

// TrackService 答辩分组业务接口
type TrackService interface {
	Create(ctx context.Context, req *dto.CreateTrackRequest, callerID string) (*dto.TrackResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TrackResponse, error)
	List(ctx context.Context, req *dto.TrackListRequest) ([]dto.TrackResponse, error)
	// Update 迁移到其他学期时按新策略重新校验该分组下的全部时段
	Update(ctx context.Context, id string, req *dto.UpdateTrackRequest, callerID string) (*dto.TrackResponse, error)
	Delete(ctx context.Context, id string) error
}

type trackService struct {
	repo   *repository.Repository
	locker lock.Locker
	logger *zap.Logger
}

// NewTrackService 创建 TrackService 实例
func NewTrackService(repo *repository.Repository, locker lock.Locker, logger *zap.Logger) TrackService {
	return &trackService{repo: repo, locker: locker, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *trackService) Create(ctx context.Context, req *dto.CreateTrackRequest, callerID string) (*dto.TrackResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, req.SemesterID)
	if err != nil {
		err = notFound(err, ErrSemesterNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询学期失败", zap.String("semester_id", req.SemesterID), zap.Error(err))
		}
		return nil, err
	}

	track := &model.Track{
		Title:      req.Title,
		SemesterID: req.SemesterID,
	}
	track.CreatedBy = &callerID
	track.UpdatedBy = &callerID

	if err := s.repo.Track.Create(ctx, track); err != nil {
		s.logger.Error("创建分组失败", zap.Error(err))
		return nil, err
	}

	track.Semester = semester
	return s.toTrackResponse(track), nil
}

// ────────────────────── Query ──────────────────────

func (s *trackService) GetByID(ctx context.Context, id string) (*dto.TrackResponse, error) {
	track, err := s.repo.Track.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrTrackNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询分组失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return s.toTrackResponse(track), nil
}

func (s *trackService) List(ctx context.Context, req *dto.TrackListRequest) ([]dto.TrackResponse, error) {
	tracks, err := s.repo.Track.List(ctx, req.SemesterID)
	if err != nil {
		s.logger.Error("列出分组失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TrackResponse, 0, len(tracks))
	for i := range tracks {
		result = append(result, *s.toTrackResponse(&tracks[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *trackService) Update(ctx context.Context, id string, req *dto.UpdateTrackRequest, callerID string) (*dto.TrackResponse, error) {
	current, err := s.repo.Track.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrTrackNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询分组失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	keys := []string{trackKey(id), semesterKey(current.SemesterID)}
	if req.SemesterID != nil {
		keys = append(keys, semesterKey(*req.SemesterID))
	}

	var result *model.Track
	err = withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			track, err := tx.Track.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, ErrTrackNotFound)
			}
			if track.SemesterID != current.SemesterID {
				return pkgerrors.ErrOptimisticLock
			}

			if req.Title != nil {
				track.Title = *req.Title
			}

			var changed []*model.Slot
			if req.SemesterID != nil && *req.SemesterID != track.SemesterID {
				oldSemester, err := tx.Semester.GetByID(ctx, track.SemesterID)
				if err != nil {
					return err
				}
				target, err := tx.Semester.GetForUpdate(ctx, *req.SemesterID)
				if err != nil {
					return notFound(err, ErrSemesterNotFound)
				}

				slots, err := tx.Slot.List(ctx, repository.SlotFilter{TrackID: id})
				if err != nil {
					return err
				}
				var offending []string
				changed, offending, err = revalidateSlots(ctx, tx, target, slots,
					target.DurationMinutes != oldSemester.DurationMinutes)
				if err != nil {
					return err
				}
				if len(offending) > 0 {
					return &pkgerrors.DatesError{
						Reason: "target semester does not admit existing slots",
						Dates:  offending,
					}
				}
				largest, err := largestCommittee(ctx, tx, repository.TribunalFilter{TrackID: id})
				if err != nil {
					return err
				}
				if largest > target.MaxCommittee {
					return pkgerrors.NewFieldError("semester_id",
						fmt.Sprintf("target semester allows at most %d committee members, a tribunal has %d",
							target.MaxCommittee, largest))
				}
				if target.DurationMinutes != oldSemester.DurationMinutes {
					if err := checkDurationClashes(ctx, tx, slots, target.DurationMinutes); err != nil {
						return err
					}
				}
				track.SemesterID = target.SemesterID
				track.Semester = target
			}

			track.UpdatedBy = &callerID
			if err := tx.Track.Update(ctx, track); err != nil {
				return err
			}
			for _, slot := range changed {
				slot.UpdatedBy = &callerID
				if err := tx.Slot.Update(ctx, slot); err != nil {
					return err
				}
			}
			result = track
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("更新分组失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.toTrackResponse(result), nil
}

// ────────────────────── Delete ──────────────────────

func (s *trackService) Delete(ctx context.Context, id string) error {
	err := withLock(ctx, s.locker, []string{trackKey(id)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if _, err := tx.Track.GetForUpdate(ctx, id); err != nil {
				return notFound(err, ErrTrackNotFound)
			}

			count, err := tx.Slot.CountByTrack(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return &pkgerrors.DependencyError{Entity: "track", Dependents: "slot", Count: count}
			}

			return tx.Track.Delete(ctx, id)
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("删除分组失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *trackService) toTrackResponse(track *model.Track) *dto.TrackResponse {
	resp := &dto.TrackResponse{
		ID:         track.TrackID,
		Title:      track.Title,
		SemesterID: track.SemesterID,
		CreatedAt:  track.CreatedAt.Format(timestampLayout),
		UpdatedAt:  track.UpdatedAt.Format(timestampLayout),
	}
	if track.Semester != nil {
		resp.Semester = &dto.SemesterBrief{ID: track.Semester.SemesterID, Name: track.Semester.Name}
	}
	return resp
}
