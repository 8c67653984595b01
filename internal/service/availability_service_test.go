package service

import (
	"errors"
	"testing"
	"time"

	"defense-scheduler/internal/dto"
)

func TestAvailabilityService_AvailableSlots(t *testing.T) {
	f := newFixture(t, "")
	full := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	open := f.createSlot("2025-06-17", "09:00", "10:30", "A1", 2)
	f.mustPlace("d1", full.ID)
	f.mustPlace("d2", full.ID)
	f.mustPlace("d3", open.ID)

	slots, err := f.svc.Availability.AvailableSlots(f.ctx, &dto.AvailabilityScope{SemesterID: f.semesterID})
	if err != nil {
		t.Fatalf("AvailableSlots 应成功: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != open.ID || slots[0].Occupied != 1 {
		t.Errorf("期望仅返回未满时段 %s，实际 %+v", open.ID, slots)
	}
}

func TestAvailabilityService_ScopeResolution(t *testing.T) {
	f := newFixture(t, "")
	f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)

	// 按日期解析当前学期
	slots, err := f.svc.Availability.AvailableSlots(f.ctx, &dto.AvailabilityScope{AsOf: "2025-05-01"})
	if err != nil || len(slots) != 1 {
		t.Errorf("期望按日期解析到 1 个时段，实际 %d, err=%v", len(slots), err)
	}

	// 没有学期覆盖该日期时返回空结果而不是错误
	slots, err = f.svc.Availability.AvailableSlots(f.ctx, &dto.AvailabilityScope{AsOf: "2025-10-01"})
	if err != nil || len(slots) != 0 {
		t.Errorf("期望空结果，实际 %d, err=%v", len(slots), err)
	}

	// 缺省使用当天日期
	svc := f.svc.Availability.(*availabilityService)
	svc.now = func() time.Time { return time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC) }
	slots, _ = svc.AvailableSlots(f.ctx, &dto.AvailabilityScope{})
	if len(slots) != 1 {
		t.Errorf("期望当天解析到 1 个时段，实际 %d", len(slots))
	}

	if _, err := f.svc.Availability.AvailableSlots(f.ctx, &dto.AvailabilityScope{SemesterID: "missing"}); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

func TestAvailabilityService_AvailableTribunalsFor(t *testing.T) {
	f := newFixture(t, "")
	f.addTeachers("u1", "u2", "u3", "u4", "u5", "u6")
	a := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	b := f.createSlot("2025-06-16", "09:30", "11:00", "B1", 2)
	c := f.createSlot("2025-06-17", "09:00", "10:30", "A1", 2)

	x := f.mustPlace("x", a.ID)         // 06-16 09:00-09:45
	later := f.mustPlace("later", a.ID) // 06-16 09:45-10:30
	clash := f.mustPlace("clash", b.ID) // 06-16 09:30-10:15
	nextDay := f.mustPlace("next", c.ID)
	crowded := f.mustPlace("crowded", c.ID)

	f.mustAssign(x.ID, "u1", "vocal")
	for _, u := range []string{"u2", "u3", "u4", "u5", "u6"} {
		f.mustAssign(crowded.ID, u, "vocal")
	}

	got, err := f.svc.Availability.AvailableTribunalsFor(f.ctx, &dto.AvailableTribunalsRequest{
		UserID:            "u1",
		AvailabilityScope: dto.AvailabilityScope{SemesterID: f.semesterID},
	})
	if err != nil {
		t.Fatalf("AvailableTribunalsFor 应成功: %v", err)
	}

	ids := make(map[string]bool)
	for _, tr := range got {
		ids[tr.ID] = true
	}
	if ids[x.ID] {
		t.Error("已入座的答辩不应返回")
	}
	if ids[clash.ID] {
		t.Error("与已有安排时间重叠的答辩不应返回")
	}
	if ids[crowded.ID] {
		t.Error("满员答辩不应返回")
	}
	if !ids[later.ID] || !ids[nextDay.ID] {
		t.Errorf("首尾相接与次日的答辩应返回，实际 %v", ids)
	}
	if len(got) != 2 {
		t.Errorf("期望 2 场可加入答辩，实际 %d", len(got))
	}

	_, err = f.svc.Availability.AvailableTribunalsFor(f.ctx, &dto.AvailableTribunalsRequest{UserID: "ghost"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestAvailabilityService_ReadyTribunals(t *testing.T) {
	f := newFixture(t, "")
	f.addTeachers("u1", "u2", "u3")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	ready := f.mustPlace("d1", slot.ID)
	f.mustPlace("d2", slot.ID)
	for _, u := range []string{"u1", "u2", "u3"} {
		f.mustAssign(ready.ID, u, "vocal")
	}

	got, err := f.svc.Availability.ReadyTribunals(f.ctx, &dto.ReadyTribunalsRequest{TrackID: f.trackID})
	if err != nil {
		t.Fatalf("ReadyTribunals 应成功: %v", err)
	}
	if len(got) != 1 || got[0].ID != ready.ID {
		t.Fatalf("期望仅返回 %s，实际 %+v", ready.ID, got)
	}
	if !got[0].Staffing.Ready || got[0].Staffing.Count != 3 {
		t.Errorf("配备状态不符: %+v", got[0].Staffing)
	}
}
