package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/lock"
)

// SlotService 时段分配业务接口
type SlotService interface {
	Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error)
	// GetByID 返回时段及其已放置的答辩
	GetByID(ctx context.Context, id string) (*dto.SlotResponse, error)
	List(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, error)
	// Update 部分更新，基于合并后的最终状态校验
	Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error)
	Delete(ctx context.Context, id string) error
}

type slotService struct {
	repo            *repository.Repository
	locker          lock.Locker
	defaultCapacity int
	logger          *zap.Logger
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(repo *repository.Repository, locker lock.Locker, defaultCapacity int, logger *zap.Logger) SlotService {
	return &slotService{repo: repo, locker: locker, defaultCapacity: defaultCapacity, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *slotService) Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	var fe fieldErrors
	slot := &model.Slot{
		TrackID:   req.TrackID,
		Date:      fe.date("date", req.Date),
		StartTime: fe.clock("start_time", req.StartTime),
		EndTime:   fe.clock("end_time", req.EndTime),
		Room:      req.Room,
		Capacity:  s.defaultCapacity,
	}
	if req.Capacity != nil {
		slot.Capacity = *req.Capacity
	}
	if err := fe.err(); err != nil {
		return nil, err
	}
	slot.CreatedBy = &callerID
	slot.UpdatedBy = &callerID

	var semester *model.Semester
	err := withLock(ctx, s.locker, []string{roomKey(slot.Date, slot.Room)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			track, err := tx.Track.GetByID(ctx, slot.TrackID)
			if err != nil {
				return notFound(err, ErrTrackNotFound)
			}
			semester, err = tx.Semester.GetForShare(ctx, track.SemesterID)
			if err != nil {
				return err
			}

			if err := validateSlotPolicy(semester, slot, true); err != nil {
				return err
			}
			if err := checkRoomOverlap(ctx, tx, slot, ErrSlotOverlap); err != nil {
				return err
			}

			if err := tx.Slot.Create(ctx, slot); err != nil {
				return err
			}
			slot.Track = track
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("创建时段失败", zap.String("track_id", req.TrackID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("时段已创建",
		zap.String("slot_id", slot.SlotID),
		zap.String("room", slot.Room),
		zap.String("date", slot.DateString()),
	)
	return toSlotResponse(slot, 0, nil, semester), nil
}

// ────────────────────── Query ──────────────────────

func (s *slotService) GetByID(ctx context.Context, id string) (*dto.SlotResponse, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrSlotNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	semesterID := ""
	if slot.Track != nil {
		semesterID = slot.Track.SemesterID
	}
	semester, err := s.repo.Semester.GetByID(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询时段所属学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	tribunals, err := s.repo.Tribunal.ListBySlot(ctx, id)
	if err != nil {
		s.logger.Error("查询时段答辩失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot, len(tribunals), tribunals, semester), nil
}

func (s *slotService) List(ctx context.Context, req *dto.SlotListRequest) ([]dto.SlotResponse, error) {
	filter := repository.SlotFilter{
		SemesterID: req.SemesterID,
		TrackID:    req.TrackID,
		Room:       req.Room,
	}
	if req.Date != "" {
		d, err := scheduling.ParseDate(req.Date)
		if err != nil {
			return nil, pkgerrors.NewFieldError("date", "invalid date, expected YYYY-MM-DD")
		}
		filter.Date = &d
	}

	slots, err := s.repo.Slot.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出时段失败", zap.Error(err))
		return nil, err
	}

	counts, err := s.countOccupancy(ctx, slots)
	if err != nil {
		return nil, err
	}

	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i], counts[slots[i].SlotID], nil, nil))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *slotService) Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	current, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrSlotNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	var fe fieldErrors
	date, room := current.Date, current.Room
	if req.Date != nil {
		date = fe.date("date", *req.Date)
	}
	if req.Room != nil {
		room = *req.Room
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	keys := []string{slotKey(id), roomKey(current.Date, current.Room), roomKey(date, room)}
	// 时段移动会改变其中答辩的时间，锁住这些答辩及其评委
	seated, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{SlotID: id})
	if err != nil {
		s.logger.Error("查询时段答辩失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	for i := range seated {
		keys = append(keys, tribunalKey(seated[i].TribunalID))
		for _, a := range seated[i].Committees {
			keys = append(keys, userKey(a.UserID))
		}
	}

	var (
		result    *model.Slot
		semester  *model.Semester
		tribunals []model.Tribunal
	)
	err = withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			slot, err := tx.Slot.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, ErrSlotNotFound)
			}
			// 加锁前读到的教室 / 日期已被并发修改，锁键失效
			if slot.Room != current.Room || !scheduling.Day(slot.Date).Equal(scheduling.Day(current.Date)) {
				return pkgerrors.ErrOptimisticLock
			}

			if err := applySlotPatch(slot, req, date); err != nil {
				return err
			}

			track, err := tx.Track.GetByID(ctx, slot.TrackID)
			if err != nil {
				return notFound(err, ErrTrackNotFound)
			}
			semester, err = tx.Semester.GetForShare(ctx, track.SemesterID)
			if err != nil {
				return err
			}

			tribunals, err = tx.Tribunal.ListBySlot(ctx, id)
			if err != nil {
				return err
			}
			if slot.Capacity < scheduling.MaxIndex(occupiedIndices(tribunals, "")) {
				return ErrCapacityBelowOccupied
			}

			// 结束时间可能已由放置重算，仅在窗口相关字段变化时校验容量时长
			windowPatched := req.StartTime != nil || req.EndTime != nil || req.Capacity != nil
			if len(tribunals) > 0 {
				// 已有答辩时结束时间由最大序号推导，不接受直接修改
				start, err := scheduling.ParseClock(slot.StartTime)
				if err != nil {
					return err
				}
				slot.EndTime = scheduling.RecomputedEnd(start, occupiedIndices(tribunals, ""), semester.DurationMinutes).String()
				windowPatched = false
			}
			if err := validateSlotPolicy(semester, slot, windowPatched); err != nil {
				return err
			}
			if err := checkRoomOverlap(ctx, tx, slot, ErrSlotOverlap); err != nil {
				return err
			}

			moved := req.StartTime != nil || req.Date != nil || req.TrackID != nil
			if len(tribunals) > 0 && moved {
				clashes, err := evaluatorClashes(ctx, tx, map[string]projectedSlot{
					id: {slot: slot, duration: semester.DurationMinutes},
				})
				if err != nil {
					return err
				}
				if len(clashes) > 0 {
					return ErrEvaluatorBusy
				}
			}

			slot.UpdatedBy = &callerID
			if err := tx.Slot.Update(ctx, slot); err != nil {
				return err
			}
			slot.Track = track
			result = slot
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("更新时段失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toSlotResponse(result, len(tribunals), tribunals, semester), nil
}

// ────────────────────── Delete ──────────────────────

func (s *slotService) Delete(ctx context.Context, id string) error {
	err := withLock(ctx, s.locker, []string{slotKey(id)}, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if _, err := tx.Slot.GetForUpdate(ctx, id); err != nil {
				return notFound(err, ErrSlotNotFound)
			}

			count, err := tx.Tribunal.CountBySlot(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return &pkgerrors.DependencyError{Entity: "slot", Dependents: "tribunal", Count: count}
			}

			return tx.Slot.Delete(ctx, id)
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("删除时段失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("时段已删除", zap.String("slot_id", id))
	return nil
}

// ── 内部辅助方法 ──

// applySlotPatch date 为已解析的目标日期
func applySlotPatch(slot *model.Slot, req *dto.UpdateSlotRequest, date time.Time) error {
	var fe fieldErrors
	if req.TrackID != nil {
		slot.TrackID = *req.TrackID
	}
	if req.Date != nil {
		slot.Date = date
	}
	if req.StartTime != nil {
		slot.StartTime = fe.clock("start_time", *req.StartTime)
	}
	if req.EndTime != nil {
		slot.EndTime = fe.clock("end_time", *req.EndTime)
	}
	if req.Room != nil {
		slot.Room = *req.Room
	}
	if req.Capacity != nil {
		slot.Capacity = *req.Capacity
	}
	return fe.err()
}

func (s *slotService) countOccupancy(ctx context.Context, slots []model.Slot) (map[string]int, error) {
	ids := make([]string, 0, len(slots))
	for i := range slots {
		ids = append(ids, slots[i].SlotID)
	}
	counts, err := s.repo.Tribunal.CountBySlots(ctx, ids)
	if err != nil {
		s.logger.Error("统计时段占用失败", zap.Error(err))
		return nil, err
	}
	return counts, nil
}

// toSlotResponse semester 为空时不输出答辩的派生时间
func toSlotResponse(slot *model.Slot, occupied int, tribunals []model.Tribunal, semester *model.Semester) *dto.SlotResponse {
	resp := &dto.SlotResponse{
		ID:        slot.SlotID,
		TrackID:   slot.TrackID,
		Date:      slot.DateString(),
		StartTime: clockString(slot.StartTime),
		EndTime:   clockString(slot.EndTime),
		Room:      slot.Room,
		Capacity:  slot.Capacity,
		Occupied:  occupied,
		IsFull:    occupied >= slot.Capacity,
		Version:   slot.Version,
		CreatedAt: slot.CreatedAt.Format(timestampLayout),
		UpdatedAt: slot.UpdatedAt.Format(timestampLayout),
	}
	if slot.Track != nil {
		resp.Track = &dto.TrackBrief{ID: slot.Track.TrackID, Title: slot.Track.Title}
	}

	for i := range tribunals {
		t := &tribunals[i]
		brief := dto.TribunalBrief{ID: t.TribunalID, DefenseID: t.DefenseID, Index: t.Index}
		if semester != nil {
			if iv, err := tribunalInterval(t, slot, semester.DurationMinutes); err == nil {
				brief.StartTime = iv.Start.String()
				brief.EndTime = iv.End.String()
			}
		}
		resp.Tribunals = append(resp.Tribunals, brief)
	}
	return resp
}
