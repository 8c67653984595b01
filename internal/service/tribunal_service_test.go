package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"defense-scheduler/internal/dto"
	pkgerrors "defense-scheduler/pkg/errors"
)

// ── Place 测试 ──

func TestTribunalService_Place_AutoIndex(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)

	first := f.mustPlace("d1", slot.ID)
	if first.Index != 1 || first.StartTime != "09:00" || first.EndTime != "09:45" {
		t.Errorf("第一场期望 #1 09:00-09:45，实际 #%d %s-%s", first.Index, first.StartTime, first.EndTime)
	}
	if end := f.slotEnd(slot.ID); end != "09:45" {
		t.Errorf("第一场后时段结束期望 09:45，实际 %s", end)
	}

	second := f.mustPlace("d2", slot.ID)
	if second.Index != 2 || second.StartTime != "09:45" || second.EndTime != "10:30" {
		t.Errorf("第二场期望 #2 09:45-10:30，实际 #%d %s-%s", second.Index, second.StartTime, second.EndTime)
	}
	if end := f.slotEnd(slot.ID); end != "10:30" {
		t.Errorf("第二场后时段结束期望 10:30，实际 %s", end)
	}

	if _, err := f.place("d3", slot.ID, nil); !errors.Is(err, ErrSlotAtCapacity) {
		t.Errorf("期望 ErrSlotAtCapacity，实际: %v", err)
	}
	if !errors.Is(ErrSlotAtCapacity, pkgerrors.ErrConflict) {
		t.Error("容量已满应归类为冲突")
	}
}

func TestTribunalService_Place_ExplicitIndex(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "11:15", "A1", 3)

	tr, err := f.place("d1", slot.ID, intPtr(3))
	if err != nil {
		t.Fatalf("Place 应成功: %v", err)
	}
	if tr.StartTime != "10:30" || tr.EndTime != "11:15" {
		t.Errorf("#3 期望 10:30-11:15，实际 %s-%s", tr.StartTime, tr.EndTime)
	}
	if end := f.slotEnd(slot.ID); end != "11:15" {
		t.Errorf("时段结束期望 11:15，实际 %s", end)
	}

	if _, err := f.place("d2", slot.ID, intPtr(3)); !errors.Is(err, ErrIndexTaken) {
		t.Errorf("期望 ErrIndexTaken，实际: %v", err)
	}
	if _, err := f.place("d3", slot.ID, intPtr(4)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("期望 ErrIndexOutOfRange，实际: %v", err)
	}

	// 自动分配取最小空闲序号
	auto := f.mustPlace("d4", slot.ID)
	if auto.Index != 1 {
		t.Errorf("期望自动分配 #1，实际 #%d", auto.Index)
	}
}

func TestTribunalService_Place_DefenseChecks(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	f.mustPlace("d1", slot.ID)

	if _, err := f.place("d1", slot.ID, nil); !errors.Is(err, ErrDefenseAlreadyPlaced) {
		t.Errorf("期望 ErrDefenseAlreadyPlaced，实际: %v", err)
	}

	_, err := f.svc.Tribunal.Place(f.ctx, &dto.CreateTribunalRequest{DefenseID: "ghost", SlotID: slot.ID}, "admin-001")
	if !errors.Is(err, ErrDefenseNotFound) {
		t.Errorf("期望 ErrDefenseNotFound，实际: %v", err)
	}
	if _, err := f.place("d9", "missing-slot", nil); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
}

func TestTribunalService_Place_GrowthBlockedByNeighbour(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	f.mustPlace("d1", slot.ID)

	// 第一场放入后时段收缩到 09:45，随后在空出的区间建了新时段
	f.createSlot("2025-06-16", "09:45", "10:30", "A1", 1)

	if _, err := f.place("d2", slot.ID, nil); !errors.Is(err, ErrSlotWindowOverlap) {
		t.Errorf("期望 ErrSlotWindowOverlap，实际: %v", err)
	}
}

// 并发放置：同一时段容量 2，只能成功 2 次
func TestTribunalService_Place_Concurrent(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	for i := 0; i < 8; i++ {
		f.addDefense(fmt.Sprintf("c%d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Tribunal.Place(f.ctx, &dto.CreateTribunalRequest{
				DefenseID: fmt.Sprintf("c%d", i),
				SlotID:    slot.ID,
			}, "admin-001")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSlotAtCapacity):
				full++
			default:
				t.Errorf("意外错误: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 2 || full != 6 {
		t.Errorf("期望成功 2 次、容量已满 6 次，实际 %d / %d", succeeded, full)
	}
	if end := f.slotEnd(slot.ID); end != "10:30" {
		t.Errorf("时段结束期望 10:30，实际 %s", end)
	}
}

// ── Remove 测试 ──

func TestTribunalService_Remove_RecomputesEnd(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	first := f.mustPlace("d1", slot.ID)
	second := f.mustPlace("d2", slot.ID)

	if err := f.svc.Tribunal.Remove(f.ctx, first.ID, "admin-001"); err != nil {
		t.Fatalf("Remove 应成功: %v", err)
	}
	if end := f.slotEnd(slot.ID); end != "10:30" {
		t.Errorf("剩余 #2 时结束期望保持 10:30，实际 %s", end)
	}

	if err := f.svc.Tribunal.Remove(f.ctx, second.ID, "admin-001"); err != nil {
		t.Fatalf("Remove 应成功: %v", err)
	}
	if end := f.slotEnd(slot.ID); end != "09:00" {
		t.Errorf("全部移除后结束期望等于开始 09:00，实际 %s", end)
	}
}

func TestTribunalService_Remove_BlockedByCommittee(t *testing.T) {
	f := newFixture(t, "")
	f.addTeachers("u1")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	tr := f.mustPlace("d1", slot.ID)
	f.mustAssign(tr.ID, "u1", "vocal")

	err := f.svc.Tribunal.Remove(f.ctx, tr.ID, "admin-001")
	if !errors.Is(err, pkgerrors.ErrDependency) {
		t.Fatalf("期望依赖错误，实际: %v", err)
	}
	if err.Error() != "Cannot delete tribunal: referenced by 1 committee assignment(s)" {
		t.Errorf("依赖错误消息不符: %s", err.Error())
	}
}

// ── UpdatePlacement / Move 测试 ──

func TestTribunalService_Move_RecomputesBothSlots(t *testing.T) {
	f := newFixture(t, "")
	from := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	to := f.createSlot("2025-06-17", "14:00", "15:30", "B2", 2)
	f.mustPlace("d1", from.ID)
	second := f.mustPlace("d2", from.ID)

	moved, err := f.svc.Tribunal.Move(f.ctx, second.ID, to.ID, "admin-001")
	if err != nil {
		t.Fatalf("Move 应成功: %v", err)
	}
	if moved.SlotID != to.ID || moved.Index != 1 {
		t.Errorf("期望迁入 %s #1，实际 %s #%d", to.ID, moved.SlotID, moved.Index)
	}
	if moved.Date != "2025-06-17" || moved.StartTime != "14:00" || moved.EndTime != "14:45" {
		t.Errorf("期望 2025-06-17 14:00-14:45，实际 %s %s-%s", moved.Date, moved.StartTime, moved.EndTime)
	}
	if end := f.slotEnd(from.ID); end != "09:45" {
		t.Errorf("原时段结束期望 09:45，实际 %s", end)
	}
	if end := f.slotEnd(to.ID); end != "14:45" {
		t.Errorf("新时段结束期望 14:45，实际 %s", end)
	}
}

func TestTribunalService_UpdatePlacement_Reindex(t *testing.T) {
	f := newFixture(t, "")
	slot := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	tr := f.mustPlace("d1", slot.ID)

	got, err := f.svc.Tribunal.UpdatePlacement(f.ctx, tr.ID, &dto.UpdateTribunalRequest{Index: intPtr(2)}, "admin-001")
	if err != nil {
		t.Fatalf("UpdatePlacement 应成功: %v", err)
	}
	if got.Index != 2 || got.StartTime != "09:45" {
		t.Errorf("期望 #2 09:45，实际 #%d %s", got.Index, got.StartTime)
	}
	if end := f.slotEnd(slot.ID); end != "10:30" {
		t.Errorf("时段结束期望 10:30，实际 %s", end)
	}
}

func TestTribunalService_Move_CommitteeDoubleBooked(t *testing.T) {
	f := newFixture(t, "")
	f.addTeachers("u1")
	a := f.createSlot("2025-06-16", "09:00", "10:30", "A1", 2)
	b := f.createSlot("2025-06-17", "09:00", "10:30", "B1", 2)
	ta := f.mustPlace("d1", a.ID)
	tb := f.mustPlace("d2", b.ID)
	f.mustAssign(ta.ID, "u1", "vocal")
	f.mustAssign(tb.ID, "u1", "vocal")

	// tb 迁到同日同时间的 C1 时段会与 ta 冲突；迁到 a 时段 #2（09:45-10:30）则不冲突
	c := f.createSlot("2025-06-16", "09:00", "10:30", "C1", 2)
	if _, err := f.svc.Tribunal.Move(f.ctx, tb.ID, c.ID, "admin-001"); !errors.Is(err, ErrEvaluatorBusy) {
		t.Errorf("期望 ErrEvaluatorBusy，实际: %v", err)
	}
	if _, err := f.svc.Tribunal.Move(f.ctx, tb.ID, a.ID, "admin-001"); err != nil {
		t.Errorf("错开时间的迁移应成功: %v", err)
	}
}
