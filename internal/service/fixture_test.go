package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"defense-scheduler/config"
	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/pkg/lock"
)

// ── 测试辅助 ──

var adminCaller = Caller{UserID: "admin-1", Role: model.RoleAdmin}

// fixture 学期：答辩窗口 2025-06-16（周一）至 2025-06-20（周五），09:00-18:00，每场 45 分钟，委员会 3-5 人
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memStore
	svc   *Service

	semesterID string
	trackID    string
}

func newFixture(t *testing.T, rule string) *fixture {
	t.Helper()
	repo, store := newMockRepository()
	cfg := &config.Config{
		Scheduling: config.SchedulingConfig{
			ReadyRule:       rule,
			DefaultCapacity: 2,
			Timezone:        "UTC",
		},
	}
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		svc:   NewService(cfg, repo, lock.NewLocal(2*time.Second), zap.NewNop()),
	}

	sem, err := f.svc.Semester.Create(f.ctx, defaultSemesterRequest(), adminCaller.UserID)
	if err != nil {
		t.Fatalf("创建学期失败: %v", err)
	}
	track, err := f.svc.Track.Create(f.ctx, &dto.CreateTrackRequest{Title: "人工智能", SemesterID: sem.ID}, adminCaller.UserID)
	if err != nil {
		t.Fatalf("创建分组失败: %v", err)
	}
	f.semesterID = sem.ID
	f.trackID = track.ID
	return f
}

func defaultSemesterRequest() *dto.CreateSemesterRequest {
	return &dto.CreateSemesterRequest{
		Name:              "2024-2025学年第二学期",
		StartDate:         "2025-02-17",
		EndDate:           "2025-07-11",
		PresentationStart: "2025-06-16",
		PresentationEnd:   "2025-06-20",
		DailyStart:        "09:00",
		DailyEnd:          "18:00",
		DurationMinutes:   45,
		MinCommittee:      3,
		MaxCommittee:      5,
	}
}

func (f *fixture) addUser(id, role string) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.users[id] = &model.User{UserID: id, FullName: "用户" + id, Email: id + "@example.edu", Role: role}
}

func (f *fixture) addTeachers(ids ...string) {
	for _, id := range ids {
		f.addUser(id, model.RoleTeacher)
	}
}

func (f *fixture) addDefense(id string) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.defenses[id] = &model.Defense{DefenseID: id, Title: "论文" + id}
}

func (f *fixture) createSlot(date, start, end, room string, capacity int) *dto.SlotResponse {
	f.t.Helper()
	slot, err := f.svc.Slot.Create(f.ctx, &dto.CreateSlotRequest{
		TrackID:   f.trackID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Room:      room,
		Capacity:  intPtr(capacity),
	}, adminCaller.UserID)
	if err != nil {
		f.t.Fatalf("创建时段失败: %v", err)
	}
	return slot
}

func (f *fixture) place(defenseID, slotID string, index *int) (*dto.TribunalResponse, error) {
	f.addDefense(defenseID)
	return f.svc.Tribunal.Place(f.ctx, &dto.CreateTribunalRequest{
		DefenseID: defenseID,
		SlotID:    slotID,
		Index:     index,
	}, adminCaller.UserID)
}

func (f *fixture) mustPlace(defenseID, slotID string) *dto.TribunalResponse {
	f.t.Helper()
	tr, err := f.place(defenseID, slotID, nil)
	if err != nil {
		f.t.Fatalf("放置答辩失败: %v", err)
	}
	return tr
}

func (f *fixture) assign(tribunalID, userID, role string) (*dto.CommitteeResponse, error) {
	return f.svc.Committee.Assign(f.ctx, &dto.AssignRoleRequest{
		TribunalID: tribunalID,
		UserID:     userID,
		Role:       role,
	}, adminCaller)
}

func (f *fixture) mustAssign(tribunalID, userID, role string) *dto.CommitteeResponse {
	f.t.Helper()
	a, err := f.assign(tribunalID, userID, role)
	if err != nil {
		f.t.Fatalf("分配角色失败: %v", err)
	}
	return a
}

// slotEnd 存储中时段当前的结束时间
func (f *fixture) slotEnd(slotID string) string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return clockString(f.store.slots[slotID].EndTime)
}

func intPtr(i int) *int { return &i }

func strRef(s string) *string { return &s }
