package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
)

// ── 内存存储 ──
//
// 所有 mock repo 共享一个 memStore，以便模拟预加载关联。
// 读取一律返回副本，写入前的修改不会污染存储；唯一索引与乐观锁按数据库约束模拟。

type memStore struct {
	mu  sync.Mutex
	seq int

	semesters  map[string]*model.Semester
	tracks     map[string]*model.Track
	slots      map[string]*model.Slot
	tribunals  map[string]*model.Tribunal
	committees map[string]*model.CommitteeAssignment
	users      map[string]*model.User
	defenses   map[string]*model.Defense
}

func newMemStore() *memStore {
	return &memStore{
		semesters:  make(map[string]*model.Semester),
		tracks:     make(map[string]*model.Track),
		slots:      make(map[string]*model.Slot),
		tribunals:  make(map[string]*model.Tribunal),
		committees: make(map[string]*model.CommitteeAssignment),
		users:      make(map[string]*model.User),
		defenses:   make(map[string]*model.Defense),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// newMockRepository 未绑定数据库的 Repository，Transaction 直接执行回调
func newMockRepository() (*repository.Repository, *memStore) {
	store := newMemStore()
	return &repository.Repository{
		Semester:  &mockSemesterRepo{s: store},
		Track:     &mockTrackRepo{s: store},
		Slot:      &mockSlotRepo{s: store},
		Tribunal:  &mockTribunalRepo{s: store},
		Committee: &mockCommitteeRepo{s: store},
		User:      &mockUserRepo{s: store},
		Defense:   &mockDefenseRepo{s: store},
	}, store
}

// ── 副本与预加载（调用方持有 mu） ──

func (m *memStore) semesterCopy(id string) *model.Semester {
	s, ok := m.semesters[id]
	if !ok {
		return nil
	}
	c := *s
	return &c
}

func (m *memStore) trackCopy(id string, withSemester bool) *model.Track {
	t, ok := m.tracks[id]
	if !ok {
		return nil
	}
	c := *t
	c.Semester = nil
	if withSemester {
		c.Semester = m.semesterCopy(t.SemesterID)
	}
	return &c
}

func (m *memStore) slotCopy(id string, withSemester bool) *model.Slot {
	s, ok := m.slots[id]
	if !ok {
		return nil
	}
	c := *s
	c.Tribunals = nil
	c.Track = m.trackCopy(s.TrackID, withSemester)
	return &c
}

func (m *memStore) userCopy(id string) *model.User {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

func (m *memStore) committeesOf(tribunalID string) []model.CommitteeAssignment {
	var out []model.CommitteeAssignment
	for _, a := range m.committees {
		if a.TribunalID != tribunalID {
			continue
		}
		c := *a
		c.User = m.userCopy(a.UserID)
		c.Tribunal = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].AssignmentID < out[j].AssignmentID
	})
	return out
}

// tribunalFull 预加载 Slot.Track.Semester、Defense、Committees.User
func (m *memStore) tribunalFull(t *model.Tribunal) model.Tribunal {
	c := *t
	c.Slot = m.slotCopy(t.SlotID, true)
	if d, ok := m.defenses[t.DefenseID]; ok {
		dc := *d
		c.Defense = &dc
	}
	c.Committees = m.committeesOf(t.TribunalID)
	return c
}

func (m *memStore) tribunalPlain(t *model.Tribunal) model.Tribunal {
	c := *t
	c.Slot = nil
	c.Defense = nil
	c.Committees = nil
	return c
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct{ s *memStore }

func (r *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if semester.SemesterID == "" {
		semester.SemesterID = r.s.nextID("sem")
	}
	semester.Version = 1
	semester.CreatedAt = time.Now()
	semester.UpdatedAt = semester.CreatedAt
	c := *semester
	r.s.semesters[c.SemesterID] = &c
	return nil
}

func (r *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s := r.s.semesterCopy(id); s != nil {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSemesterRepo) GetForUpdate(ctx context.Context, id string) (*model.Semester, error) {
	return r.GetByID(ctx, id)
}

func (r *mockSemesterRepo) GetForShare(ctx context.Context, id string) (*model.Semester, error) {
	return r.GetByID(ctx, id)
}

func (r *mockSemesterRepo) FindCurrent(_ context.Context, asOf time.Time) (*model.Semester, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.Semester
	for _, s := range r.s.semesters {
		if !s.Covers(asOf) {
			continue
		}
		if best == nil || s.StartDate.After(best.StartDate) {
			best = s
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	c := *best
	return &c, nil
}

func (r *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Semester
	for _, s := range r.s.semesters {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

func (r *mockSemesterRepo) Update(_ context.Context, semester *model.Semester) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.semesters[semester.SemesterID]
	if !ok || cur.Version != semester.Version {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version++
	semester.UpdatedAt = time.Now()
	c := *semester
	r.s.semesters[c.SemesterID] = &c
	return nil
}

func (r *mockSemesterRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.semesters, id)
	return nil
}

// ── Mock TrackRepository ──

type mockTrackRepo struct{ s *memStore }

func (r *mockTrackRepo) Create(_ context.Context, track *model.Track) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if track.TrackID == "" {
		track.TrackID = r.s.nextID("track")
	}
	track.CreatedAt = time.Now()
	track.UpdatedAt = track.CreatedAt
	c := *track
	c.Semester = nil
	r.s.tracks[c.TrackID] = &c
	return nil
}

func (r *mockTrackRepo) GetByID(_ context.Context, id string) (*model.Track, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t := r.s.trackCopy(id, true); t != nil {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTrackRepo) GetForUpdate(_ context.Context, id string) (*model.Track, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t := r.s.trackCopy(id, false); t != nil {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTrackRepo) List(_ context.Context, semesterID string) ([]model.Track, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Track
	for id, t := range r.s.tracks {
		if semesterID != "" && t.SemesterID != semesterID {
			continue
		}
		result = append(result, *r.s.trackCopy(id, true))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

func (r *mockTrackRepo) Update(_ context.Context, track *model.Track) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tracks[track.TrackID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *track
	c.Semester = nil
	c.UpdatedAt = time.Now()
	r.s.tracks[c.TrackID] = &c
	return nil
}

func (r *mockTrackRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tracks, id)
	return nil
}

func (r *mockTrackRepo) CountBySemester(_ context.Context, semesterID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tracks {
		if t.SemesterID == semesterID {
			n++
		}
	}
	return n, nil
}

// ── Mock SlotRepository ──

type mockSlotRepo struct{ s *memStore }

func (r *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if slot.SlotID == "" {
		slot.SlotID = r.s.nextID("slot")
	}
	slot.Version = 1
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt
	c := *slot
	c.Track = nil
	c.Tribunals = nil
	r.s.slots[c.SlotID] = &c
	return nil
}

func (r *mockSlotRepo) GetByID(_ context.Context, id string) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s := r.s.slotCopy(id, false); s != nil {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockSlotRepo) GetForUpdate(_ context.Context, id string) (*model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s := r.s.slotCopy(id, false)
	if s == nil {
		return nil, gorm.ErrRecordNotFound
	}
	s.Track = nil
	return s, nil
}

func (r *mockSlotRepo) List(_ context.Context, filter repository.SlotFilter) ([]model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Slot
	for id, s := range r.s.slots {
		if filter.TrackID != "" && s.TrackID != filter.TrackID {
			continue
		}
		if filter.SemesterID != "" {
			t, ok := r.s.tracks[s.TrackID]
			if !ok || t.SemesterID != filter.SemesterID {
				continue
			}
		}
		if filter.Room != "" && s.Room != filter.Room {
			continue
		}
		if filter.Date != nil && !scheduling.Day(s.Date).Equal(scheduling.Day(*filter.Date)) {
			continue
		}
		result = append(result, *r.s.slotCopy(id, false))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.Room < b.Room
	})
	return result, nil
}

func (r *mockSlotRepo) ListByRoomDate(_ context.Context, room string, date time.Time, excludeID string) ([]model.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Slot
	for _, s := range r.s.slots {
		if s.SlotID == excludeID || s.Room != room || !scheduling.Day(s.Date).Equal(scheduling.Day(date)) {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

func (r *mockSlotRepo) Update(_ context.Context, slot *model.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.slots[slot.SlotID]
	if !ok || cur.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version++
	slot.UpdatedAt = time.Now()
	c := *slot
	c.Track = nil
	c.Tribunals = nil
	r.s.slots[c.SlotID] = &c
	return nil
}

func (r *mockSlotRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.slots, id)
	return nil
}

func (r *mockSlotRepo) CountByTrack(_ context.Context, trackID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, s := range r.s.slots {
		if s.TrackID == trackID {
			n++
		}
	}
	return n, nil
}

// ── Mock TribunalRepository ──

type mockTribunalRepo struct{ s *memStore }

// checkUnique 模拟 uq_tribunals_defense 与 uq_tribunals_slot_index
func (r *mockTribunalRepo) checkUnique(t *model.Tribunal) error {
	for _, o := range r.s.tribunals {
		if o.TribunalID == t.TribunalID {
			continue
		}
		if o.DefenseID == t.DefenseID || (o.SlotID == t.SlotID && o.Index == t.Index) {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func (r *mockTribunalRepo) Create(_ context.Context, tribunal *model.Tribunal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkUnique(tribunal); err != nil {
		return err
	}
	if tribunal.TribunalID == "" {
		tribunal.TribunalID = r.s.nextID("tribunal")
	}
	tribunal.CreatedAt = time.Now()
	tribunal.UpdatedAt = tribunal.CreatedAt
	c := r.s.tribunalPlain(tribunal)
	r.s.tribunals[c.TribunalID] = &c
	return nil
}

func (r *mockTribunalRepo) GetByID(_ context.Context, id string) (*model.Tribunal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tribunals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := r.s.tribunalFull(t)
	return &c, nil
}

func (r *mockTribunalRepo) GetForUpdate(_ context.Context, id string) (*model.Tribunal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tribunals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := r.s.tribunalPlain(t)
	return &c, nil
}

func (r *mockTribunalRepo) GetByDefense(_ context.Context, defenseID string) (*model.Tribunal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tribunals {
		if t.DefenseID == defenseID {
			c := r.s.tribunalPlain(t)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTribunalRepo) List(_ context.Context, filter repository.TribunalFilter) ([]model.Tribunal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Tribunal
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return result, nil
	}
	ids := make(map[string]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = true
	}

	for _, t := range r.s.tribunals {
		if filter.IDs != nil && !ids[t.TribunalID] {
			continue
		}
		if filter.SlotID != "" && t.SlotID != filter.SlotID {
			continue
		}
		slot := r.s.slots[t.SlotID]
		if filter.TrackID != "" && (slot == nil || slot.TrackID != filter.TrackID) {
			continue
		}
		if filter.SemesterID != "" {
			if slot == nil {
				continue
			}
			track, ok := r.s.tracks[slot.TrackID]
			if !ok || track.SemesterID != filter.SemesterID {
				continue
			}
		}
		result = append(result, r.s.tribunalFull(t))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Slot, result[j].Slot
		if a != nil && b != nil && !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a != nil && b != nil && a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if result[i].SlotID != result[j].SlotID {
			return result[i].SlotID < result[j].SlotID
		}
		return result[i].Index < result[j].Index
	})
	return result, nil
}

func (r *mockTribunalRepo) ListBySlot(_ context.Context, slotID string) ([]model.Tribunal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.Tribunal
	for _, t := range r.s.tribunals {
		if t.SlotID == slotID {
			result = append(result, r.s.tribunalPlain(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

func (r *mockTribunalRepo) Update(_ context.Context, tribunal *model.Tribunal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tribunals[tribunal.TribunalID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := r.checkUnique(tribunal); err != nil {
		return err
	}
	tribunal.UpdatedAt = time.Now()
	c := r.s.tribunalPlain(tribunal)
	r.s.tribunals[c.TribunalID] = &c
	return nil
}

func (r *mockTribunalRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tribunals, id)
	return nil
}

func (r *mockTribunalRepo) CountBySlot(_ context.Context, slotID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.tribunals {
		if t.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *mockTribunalRepo) CountBySlots(_ context.Context, slotIDs []string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[string]bool, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(slotIDs))
	for _, t := range r.s.tribunals {
		if wanted[t.SlotID] {
			counts[t.SlotID]++
		}
	}
	return counts, nil
}

// ── Mock CommitteeRepository ──

type mockCommitteeRepo struct{ s *memStore }

func (r *mockCommitteeRepo) Create(_ context.Context, a *model.CommitteeAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// uq_committee_tribunal_user 与 uq_committee_unique_roles
	for _, o := range r.s.committees {
		if o.TribunalID != a.TribunalID {
			continue
		}
		if o.UserID == a.UserID || (a.Role.Unique() && o.Role == a.Role) {
			return gorm.ErrDuplicatedKey
		}
	}
	if a.AssignmentID == "" {
		a.AssignmentID = r.s.nextID("assignment")
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	c := *a
	c.User = nil
	c.Tribunal = nil
	r.s.committees[c.AssignmentID] = &c
	return nil
}

func (r *mockCommitteeRepo) GetByID(_ context.Context, id string) (*model.CommitteeAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.committees[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *a
	c.User = r.s.userCopy(a.UserID)
	return &c, nil
}

func (r *mockCommitteeRepo) ListByTribunal(_ context.Context, tribunalID string) ([]model.CommitteeAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.committeesOf(tribunalID), nil
}

func (r *mockCommitteeRepo) ListByUser(_ context.Context, userID string) ([]model.CommitteeAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []model.CommitteeAssignment
	for _, a := range r.s.committees {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *mockCommitteeRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.committees, id)
	return nil
}

func (r *mockCommitteeRepo) CountByTribunal(_ context.Context, tribunalID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.committees {
		if a.TribunalID == tribunalID {
			n++
		}
	}
	return n, nil
}

// ── Mock UserRepository / DefenseRepository ──

type mockUserRepo struct{ s *memStore }

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.s.userCopy(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockDefenseRepo struct{ s *memStore }

func (r *mockDefenseRepo) GetByID(_ context.Context, id string) (*model.Defense, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.defenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *d
	return &c, nil
}
