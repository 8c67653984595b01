package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
)

// validateSlotPolicy 按顺序校验日期、每日时间范围、起止先后与容量时长
// checkWindow=false 时跳过起止先后与容量时长（结束时间已由放置重算的场景）
func validateSlotPolicy(sem *model.Semester, slot *model.Slot, checkWindow bool) error {
	var fields []pkgerrors.FieldError
	add := func(field, msg string) {
		fields = append(fields, pkgerrors.FieldError{Field: field, Message: msg})
	}

	if !scheduling.IsWeekday(slot.Date) {
		add("date", "must fall on a weekday")
	}
	if !sem.InPresentationWindow(slot.Date) {
		add("date", "outside the presentation window")
	}

	dailyStart, dailyEnd, err := sem.DailyBounds()
	if err != nil {
		return fmt.Errorf("学期每日时间范围无效: %w", err)
	}
	start, err := scheduling.ParseClock(slot.StartTime)
	if err != nil {
		add("start_time", "invalid time, expected HH:MM")
	}
	end, endErr := scheduling.ParseClock(slot.EndTime)
	if endErr != nil {
		add("end_time", "invalid time, expected HH:MM")
	}
	if err != nil || endErr != nil {
		return &pkgerrors.ValidationError{Fields: fields}
	}

	if start < dailyStart {
		add("start_time", "before allowed daily start")
	}
	if end > dailyEnd {
		add("end_time", "after allowed daily end")
	}
	if checkWindow {
		if end <= start {
			add("end_time", "must be after start_time")
		} else if !scheduling.CapacityFits(start, end, slot.Capacity, sem.DurationMinutes) {
			add("capacity", fmt.Sprintf("%d defenses of %d minutes do not fit in the slot window",
				slot.Capacity, sem.DurationMinutes))
		}
	}

	if len(fields) > 0 {
		return &pkgerrors.ValidationError{Fields: fields}
	}
	return nil
}

// checkRoomOverlap 同教室同日期不得有重叠时段（排除自身）
func checkRoomOverlap(ctx context.Context, tx *repository.Repository, slot *model.Slot, conflict error) error {
	start, end, err := slot.Window()
	if err != nil {
		return err
	}
	siblings, err := tx.Slot.ListByRoomDate(ctx, slot.Room, slot.Date, slot.SlotID)
	if err != nil {
		return err
	}
	for i := range siblings {
		s, e, err := siblings[i].Window()
		if err != nil {
			return err
		}
		if scheduling.Overlaps(start, end, s, e) {
			return conflict
		}
	}
	return nil
}

// occupiedIndices 时段内已占用的序号
func occupiedIndices(tribunals []model.Tribunal, excludeID string) []int {
	out := make([]int, 0, len(tribunals))
	for _, t := range tribunals {
		if t.TribunalID == excludeID {
			continue
		}
		out = append(out, t.Index)
	}
	return out
}

// revalidateSlots 在新策略下重新校验已有时段
//
// 已有答辩的时段按新标准时长重算结束时间；返回需要回写的时段，以及越界时段的日期（去重排序）。
// 不删除也不移动任何时段。
func revalidateSlots(ctx context.Context, tx *repository.Repository, sem *model.Semester, slots []model.Slot, durationChanged bool) ([]*model.Slot, []string, error) {
	dailyStart, dailyEnd, err := sem.DailyBounds()
	if err != nil {
		return nil, nil, err
	}

	var changed []*model.Slot
	offending := make(map[string]bool)
	for i := range slots {
		slot := &slots[i]
		start, end, err := slot.Window()
		if err != nil {
			return nil, nil, err
		}

		tribunals, err := tx.Tribunal.ListBySlot(ctx, slot.SlotID)
		if err != nil {
			return nil, nil, err
		}

		bad := !scheduling.IsWeekday(slot.Date) || !sem.InPresentationWindow(slot.Date) || start < dailyStart

		if durationChanged {
			if len(tribunals) > 0 {
				newEnd := scheduling.RecomputedEnd(start, occupiedIndices(tribunals, ""), sem.DurationMinutes)
				if newEnd != end {
					grown := newEnd > end
					slot.EndTime = newEnd.String()
					end = newEnd
					changed = append(changed, slot)
					if grown {
						if err := checkRoomOverlap(ctx, tx, slot, ErrSlotWindowOverlap); err != nil {
							if !errors.Is(err, ErrSlotWindowOverlap) {
								return nil, nil, err
							}
							bad = true
						}
					}
				}
			} else if end > start && !scheduling.CapacityFits(start, end, slot.Capacity, sem.DurationMinutes) {
				bad = true
			}
		}

		if end > dailyEnd {
			bad = true
		}
		if bad {
			offending[slot.DateString()] = true
		}
	}

	return changed, sortedDates(offending), nil
}

// projectedSlot 变更后的时段及其生效的标准时长
type projectedSlot struct {
	slot     *model.Slot
	duration int
}

// evaluatorClashes 按变更后的时段重建相关评委的全部席位区间，返回出现重叠的日期（去重排序）
//
// 相关评委为 projected 中各时段内答辩的委员会成员；未出现在 projected 中的答辩沿用库中时段与所属学期时长。
func evaluatorClashes(ctx context.Context, tx *repository.Repository, projected map[string]projectedSlot) ([]string, error) {
	users := make(map[string]bool)
	for slotID := range projected {
		tribunals, err := tx.Tribunal.List(ctx, repository.TribunalFilter{SlotID: slotID})
		if err != nil {
			return nil, err
		}
		for i := range tribunals {
			for _, a := range tribunals[i].Committees {
				users[a.UserID] = true
			}
		}
	}

	clashes := make(map[string]bool)
	for userID := range users {
		assignments, err := tx.Committee.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.TribunalID)
		}
		seats, err := tx.Tribunal.List(ctx, repository.TribunalFilter{IDs: ids})
		if err != nil {
			return nil, err
		}

		intervals := make([]scheduling.Interval, 0, len(seats))
		for i := range seats {
			t := &seats[i]
			slot, duration := t.Slot, 0
			if p, ok := projected[t.SlotID]; ok {
				slot, duration = p.slot, p.duration
			} else if sem := tribunalSemester(t); sem != nil {
				duration = sem.DurationMinutes
			}
			if slot == nil || duration <= 0 {
				continue
			}
			iv, err := tribunalInterval(t, slot, duration)
			if err != nil {
				return nil, err
			}
			if iv.ConflictsAny(intervals) {
				clashes[scheduling.FormatDate(iv.Date)] = true
			}
			intervals = append(intervals, iv)
		}
	}
	return sortedDates(clashes), nil
}

// checkDurationClashes 时段改用新标准时长后，评委席位不得互相重叠
func checkDurationClashes(ctx context.Context, tx *repository.Repository, slots []model.Slot, duration int) error {
	projected := make(map[string]projectedSlot, len(slots))
	for i := range slots {
		projected[slots[i].SlotID] = projectedSlot{slot: &slots[i], duration: duration}
	}
	dates, err := evaluatorClashes(ctx, tx, projected)
	if err != nil {
		return err
	}
	if len(dates) > 0 {
		return &pkgerrors.DatesError{
			Reason: "update would double-book evaluators",
			Dates:  dates,
		}
	}
	return nil
}

// largestCommittee 范围内答辩的最大委员会人数
func largestCommittee(ctx context.Context, tx *repository.Repository, filter repository.TribunalFilter) (int, error) {
	tribunals, err := tx.Tribunal.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	largest := 0
	for i := range tribunals {
		if n := len(tribunals[i].Committees); n > largest {
			largest = n
		}
	}
	return largest, nil
}

func sortedDates(set map[string]bool) []string {
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
