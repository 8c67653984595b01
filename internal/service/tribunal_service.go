package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/lock"
)

// TribunalService 答辩放置业务接口
//
// 每次放置变更都在同一事务内重算受影响时段的结束时间：
// end_time = start_time + 最大序号 × 标准时长。
type TribunalService interface {
	// Place 将答辩放入时段；index 缺省时取最小空闲序号
	Place(ctx context.Context, req *dto.CreateTribunalRequest, callerID string) (*dto.TribunalResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TribunalResponse, error)
	List(ctx context.Context, req *dto.TribunalListRequest) ([]dto.TribunalResponse, error)
	// UpdatePlacement 调整序号和/或迁移时段，迁移时新旧时段均重算
	UpdatePlacement(ctx context.Context, id string, req *dto.UpdateTribunalRequest, callerID string) (*dto.TribunalResponse, error)
	Move(ctx context.Context, id, newSlotID, callerID string) (*dto.TribunalResponse, error)
	Remove(ctx context.Context, id, callerID string) error
}

type tribunalService struct {
	repo   *repository.Repository
	locker lock.Locker
	rule   scheduling.ReadyRule
	logger *zap.Logger
}

// NewTribunalService 创建 TribunalService 实例
func NewTribunalService(repo *repository.Repository, locker lock.Locker, rule scheduling.ReadyRule, logger *zap.Logger) TribunalService {
	return &tribunalService{repo: repo, locker: locker, rule: rule, logger: logger}
}

// ────────────────────── Place ──────────────────────

func (s *tribunalService) Place(ctx context.Context, req *dto.CreateTribunalRequest, callerID string) (*dto.TribunalResponse, error) {
	pre, err := s.repo.Slot.GetByID(ctx, req.SlotID)
	if err != nil {
		err = notFound(err, ErrSlotNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询时段失败", zap.String("slot_id", req.SlotID), zap.Error(err))
		}
		return nil, err
	}

	keys := []string{slotKey(req.SlotID), roomKey(pre.Date, pre.Room)}

	var tribunalID string
	err = withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			slot, err := s.lockSlot(ctx, tx, req.SlotID, pre)
			if err != nil {
				return err
			}

			if _, err := tx.Defense.GetByID(ctx, req.DefenseID); err != nil {
				return notFound(err, ErrDefenseNotFound)
			}
			if _, err := tx.Tribunal.GetByDefense(ctx, req.DefenseID); err == nil {
				return ErrDefenseAlreadyPlaced
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			semester, err := semesterOfSlot(ctx, tx, slot)
			if err != nil {
				return err
			}

			siblings, err := tx.Tribunal.ListBySlot(ctx, slot.SlotID)
			if err != nil {
				return err
			}
			occupied := occupiedIndices(siblings, "")
			index, err := resolveIndex(req.Index, occupied, slot.Capacity)
			if err != nil {
				return err
			}

			tribunal := &model.Tribunal{
				DefenseID: req.DefenseID,
				SlotID:    slot.SlotID,
				Index:     index,
			}
			tribunal.CreatedBy = &callerID
			tribunal.UpdatedBy = &callerID
			if err := tx.Tribunal.Create(ctx, tribunal); err != nil {
				return duplicate(err, ErrPlacementConflict)
			}

			if err := recomputeSlotEnd(ctx, tx, slot, semester, append(occupied, index), callerID); err != nil {
				return err
			}
			tribunalID = tribunal.TribunalID
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("放置答辩失败",
				zap.String("defense_id", req.DefenseID),
				zap.String("slot_id", req.SlotID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("答辩已放置", zap.String("tribunal_id", tribunalID), zap.String("slot_id", req.SlotID))
	return s.GetByID(ctx, tribunalID)
}

// ────────────────────── Query ──────────────────────

func (s *tribunalService) GetByID(ctx context.Context, id string) (*dto.TribunalResponse, error) {
	tribunal, err := s.repo.Tribunal.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrTribunalNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询答辩失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	resp := toTribunalResponse(tribunal, s.rule)
	return &resp, nil
}

func (s *tribunalService) List(ctx context.Context, req *dto.TribunalListRequest) ([]dto.TribunalResponse, error) {
	tribunals, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{
		SlotID:     req.SlotID,
		TrackID:    req.TrackID,
		SemesterID: req.SemesterID,
	})
	if err != nil {
		s.logger.Error("列出答辩失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TribunalResponse, 0, len(tribunals))
	for i := range tribunals {
		result = append(result, toTribunalResponse(&tribunals[i], s.rule))
	}
	return result, nil
}

// ────────────────────── Update / Move ──────────────────────

func (s *tribunalService) Move(ctx context.Context, id, newSlotID, callerID string) (*dto.TribunalResponse, error) {
	return s.UpdatePlacement(ctx, id, &dto.UpdateTribunalRequest{SlotID: &newSlotID}, callerID)
}

func (s *tribunalService) UpdatePlacement(ctx context.Context, id string, req *dto.UpdateTribunalRequest, callerID string) (*dto.TribunalResponse, error) {
	current, err := s.repo.Tribunal.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrTribunalNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询答辩失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	if current.Slot == nil {
		return nil, ErrSlotNotFound
	}

	target := current.Slot
	if req.SlotID != nil && *req.SlotID != current.SlotID {
		target, err = s.repo.Slot.GetByID(ctx, *req.SlotID)
		if err != nil {
			err = notFound(err, ErrSlotNotFound)
			if !isBusiness(err) {
				s.logger.Error("查询目标时段失败", zap.String("slot_id", *req.SlotID), zap.Error(err))
			}
			return nil, err
		}
	}

	keys := []string{
		tribunalKey(id),
		slotKey(current.SlotID), roomKey(current.Slot.Date, current.Slot.Room),
		slotKey(target.SlotID), roomKey(target.Date, target.Room),
	}
	for _, c := range current.Committees {
		keys = append(keys, userKey(c.UserID))
	}

	err = withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			tribunal, err := tx.Tribunal.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, ErrTribunalNotFound)
			}
			if tribunal.SlotID != current.SlotID {
				return pkgerrors.ErrOptimisticLock
			}

			oldSlot, err := s.lockSlot(ctx, tx, current.SlotID, current.Slot)
			if err != nil {
				return err
			}
			newSlot := oldSlot
			moving := target.SlotID != oldSlot.SlotID
			if moving {
				if newSlot, err = s.lockSlot(ctx, tx, target.SlotID, target); err != nil {
					return err
				}
			}

			newSemester, err := semesterOfSlot(ctx, tx, newSlot)
			if err != nil {
				return err
			}

			siblings, err := tx.Tribunal.ListBySlot(ctx, newSlot.SlotID)
			if err != nil {
				return err
			}
			occupied := occupiedIndices(siblings, id)

			index := tribunal.Index
			if req.Index != nil || moving {
				if index, err = resolveIndex(req.Index, occupied, newSlot.Capacity); err != nil {
					return err
				}
			}

			tribunal.SlotID = newSlot.SlotID
			tribunal.Index = index
			if err := s.checkCommitteeFree(ctx, tx, tribunal, newSlot, newSemester); err != nil {
				return err
			}

			tribunal.UpdatedBy = &callerID
			if err := tx.Tribunal.Update(ctx, tribunal); err != nil {
				return duplicate(err, ErrPlacementConflict)
			}
			if err := recomputeSlotEnd(ctx, tx, newSlot, newSemester, append(occupied, index), callerID); err != nil {
				return err
			}

			if moving {
				oldSemester, err := semesterOfSlot(ctx, tx, oldSlot)
				if err != nil {
					return err
				}
				remaining, err := tx.Tribunal.ListBySlot(ctx, oldSlot.SlotID)
				if err != nil {
					return err
				}
				if err := recomputeSlotEnd(ctx, tx, oldSlot, oldSemester, occupiedIndices(remaining, id), callerID); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("调整答辩放置失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Remove ──────────────────────

func (s *tribunalService) Remove(ctx context.Context, id, callerID string) error {
	current, err := s.repo.Tribunal.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrTribunalNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询答辩失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	err = withLock(ctx, s.locker, []string{tribunalKey(id), slotKey(current.SlotID)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			tribunal, err := tx.Tribunal.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, ErrTribunalNotFound)
			}
			if tribunal.SlotID != current.SlotID {
				return pkgerrors.ErrOptimisticLock
			}

			count, err := tx.Committee.CountByTribunal(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return &pkgerrors.DependencyError{Entity: "tribunal", Dependents: "committee assignment", Count: count}
			}

			slot, err := tx.Slot.GetForUpdate(ctx, tribunal.SlotID)
			if err != nil {
				return err
			}
			semester, err := semesterOfSlot(ctx, tx, slot)
			if err != nil {
				return err
			}

			if err := tx.Tribunal.Delete(ctx, id); err != nil {
				return err
			}
			remaining, err := tx.Tribunal.ListBySlot(ctx, slot.SlotID)
			if err != nil {
				return err
			}
			return recomputeSlotEnd(ctx, tx, slot, semester, occupiedIndices(remaining, id), callerID)
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("移除答辩失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("答辩已移除", zap.String("tribunal_id", id), zap.String("slot_id", current.SlotID))
	return nil
}

// ── 内部辅助方法 ──

// lockSlot 行锁读取时段，并确认教室 / 日期与加锁前一致
func (s *tribunalService) lockSlot(ctx context.Context, tx *repository.Repository, id string, pre *model.Slot) (*model.Slot, error) {
	slot, err := tx.Slot.GetForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrSlotNotFound)
	}
	if slot.Room != pre.Room || !scheduling.Day(slot.Date).Equal(scheduling.Day(pre.Date)) {
		return nil, pkgerrors.ErrOptimisticLock
	}
	return slot, nil
}

// checkCommitteeFree 答辩时间变化后，现有委员不得与其其他答辩时间冲突
func (s *tribunalService) checkCommitteeFree(ctx context.Context, tx *repository.Repository, tribunal *model.Tribunal, slot *model.Slot, semester *model.Semester) error {
	assignments, err := tx.Committee.ListByTribunal(ctx, tribunal.TribunalID)
	if err != nil || len(assignments) == 0 {
		return err
	}

	iv, err := tribunalInterval(tribunal, slot, semester.DurationMinutes)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		busy, _, err := busyIntervals(ctx, tx, a.UserID, tribunal.TribunalID)
		if err != nil {
			return err
		}
		if iv.ConflictsAny(busy) {
			return ErrEvaluatorBusy
		}
	}
	return nil
}

// semesterOfSlot 共享锁读取时段所属学期
func semesterOfSlot(ctx context.Context, tx *repository.Repository, slot *model.Slot) (*model.Semester, error) {
	track, err := tx.Track.GetByID(ctx, slot.TrackID)
	if err != nil {
		return nil, notFound(err, ErrTrackNotFound)
	}
	semester, err := tx.Semester.GetForShare(ctx, track.SemesterID)
	if err != nil {
		return nil, notFound(err, ErrSemesterNotFound)
	}
	return semester, nil
}

// resolveIndex explicit 为空时自动分配最小空闲序号
func resolveIndex(explicit *int, occupied []int, capacity int) (int, error) {
	if explicit == nil {
		index, ok := scheduling.NextFreeIndex(occupied, capacity)
		if !ok {
			return 0, ErrSlotAtCapacity
		}
		return index, nil
	}

	if !scheduling.IndexInRange(*explicit, capacity) {
		return 0, ErrIndexOutOfRange
	}
	for _, o := range occupied {
		if o == *explicit {
			return 0, ErrIndexTaken
		}
	}
	return *explicit, nil
}

// recomputeSlotEnd 按当前占用序号重算并回写时段结束时间
// 窗口变长时不得越过每日结束时间，也不得与同教室同日其他时段重叠
func recomputeSlotEnd(ctx context.Context, tx *repository.Repository, slot *model.Slot, semester *model.Semester, occupied []int, callerID string) error {
	start, end, err := slot.Window()
	if err != nil {
		return err
	}

	newEnd := scheduling.RecomputedEnd(start, occupied, semester.DurationMinutes)
	if newEnd == end {
		return nil
	}

	slot.EndTime = newEnd.String()
	if newEnd > end {
		_, dailyEnd, err := semester.DailyBounds()
		if err != nil {
			return err
		}
		if newEnd > dailyEnd {
			return ErrSlotWindowPastDay
		}
		if err := checkRoomOverlap(ctx, tx, slot, ErrSlotWindowOverlap); err != nil {
			return err
		}
	}

	slot.UpdatedBy = &callerID
	return tx.Slot.Update(ctx, slot)
}
