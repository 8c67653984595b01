package service

import (
	"context"
	"fmt"
	"time"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
	"defense-scheduler/pkg/lock"
)

const timestampLayout = "2006-01-02T15:04:05Z"

// Caller 当前调用方身份，由 JWT 中间件解析
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// ── 锁键 ──

func slotKey(id string) string     { return "slot:" + id }
func tribunalKey(id string) string { return "tribunal:" + id }
func semesterKey(id string) string { return "semester:" + id }
func trackKey(id string) string    { return "track:" + id }
func userKey(id string) string     { return "user:" + id }

func roomKey(date time.Time, room string) string {
	return fmt.Sprintf("room:%s:%s", scheduling.FormatDate(date), room)
}

// withLock 持有全部键期间执行 fn
func withLock(ctx context.Context, locker lock.Locker, keys []string, fn func() error) error {
	unlock, err := locker.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// clockString 数据库返回 HH:MM:SS，统一输出 HH:MM
func clockString(s string) string {
	c, err := scheduling.ParseClock(s)
	if err != nil {
		return s
	}
	return c.String()
}

// ── 派生时间 ──

// tribunalInterval 根据所属时段与学期标准时长计算答辩区间
func tribunalInterval(t *model.Tribunal, slot *model.Slot, durationMinutes int) (scheduling.Interval, error) {
	start, err := scheduling.ParseClock(slot.StartTime)
	if err != nil {
		return scheduling.Interval{}, err
	}
	s, e := scheduling.TribunalWindow(start, t.Index, durationMinutes)
	return scheduling.Interval{Date: slot.Date, Start: s, End: e}, nil
}

// tribunalSemester 从预加载的 Slot.Track.Semester 取学期
func tribunalSemester(t *model.Tribunal) *model.Semester {
	if t.Slot == nil || t.Slot.Track == nil {
		return nil
	}
	return t.Slot.Track.Semester
}

func staffingOf(assignments []model.CommitteeAssignment, sem *model.Semester) scheduling.Staffing {
	roles := make([]scheduling.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	return scheduling.Tally(roles, sem.MinCommittee, sem.MaxCommittee)
}

func toStaffingResponse(st scheduling.Staffing, rule scheduling.ReadyRule) dto.StaffingResponse {
	return dto.StaffingResponse{
		Count: st.Count,
		Min:   st.Min,
		Max:   st.Max,
		Ready: st.Ready(rule),
		Full:  st.Full(),
		State: string(st.State(rule)),
		Rule:  string(rule),
	}
}

func toCommitteeResponse(a *model.CommitteeAssignment) dto.CommitteeResponse {
	resp := dto.CommitteeResponse{
		ID:         a.AssignmentID,
		TribunalID: a.TribunalID,
		UserID:     a.UserID,
		Role:       string(a.Role),
		CreatedAt:  a.CreatedAt.Format(timestampLayout),
	}
	if a.User != nil {
		resp.UserName = a.User.FullName
	}
	return resp
}

// toTribunalResponse 需预加载 Slot.Track.Semester；缺失时派生字段留空
func toTribunalResponse(t *model.Tribunal, rule scheduling.ReadyRule) dto.TribunalResponse {
	resp := dto.TribunalResponse{
		ID:        t.TribunalID,
		DefenseID: t.DefenseID,
		SlotID:    t.SlotID,
		Index:     t.Index,
		Committee: make([]dto.CommitteeResponse, 0, len(t.Committees)),
		CreatedAt: t.CreatedAt.Format(timestampLayout),
		UpdatedAt: t.UpdatedAt.Format(timestampLayout),
	}
	if t.Defense != nil {
		resp.Title = t.Defense.Title
	}
	for i := range t.Committees {
		resp.Committee = append(resp.Committee, toCommitteeResponse(&t.Committees[i]))
	}

	sem := tribunalSemester(t)
	if sem == nil {
		return resp
	}
	resp.Date = t.Slot.DateString()
	resp.Room = t.Slot.Room
	if iv, err := tribunalInterval(t, t.Slot, sem.DurationMinutes); err == nil {
		resp.StartTime = iv.Start.String()
		resp.EndTime = iv.End.String()
	}
	resp.Staffing = toStaffingResponse(staffingOf(t.Committees, sem), rule)
	return resp
}

// fieldErrors 收集字段级校验错误
type fieldErrors []pkgerrors.FieldError

func (f *fieldErrors) add(field, msg string) {
	*f = append(*f, pkgerrors.FieldError{Field: field, Message: msg})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &pkgerrors.ValidationError{Fields: f}
}

func (f *fieldErrors) date(field, value string) time.Time {
	d, err := scheduling.ParseDate(value)
	if err != nil {
		f.add(field, "invalid date, expected YYYY-MM-DD")
	}
	return d
}

func (f *fieldErrors) clock(field, value string) string {
	c, err := scheduling.ParseClock(value)
	if err != nil {
		f.add(field, "invalid time, expected HH:MM")
		return value
	}
	return c.String()
}

// busyIntervals 用户已担任委员的答辩区间，excludeTribunalID 对应的答辩不计入
func busyIntervals(ctx context.Context, repo *repository.Repository, userID, excludeTribunalID string) ([]scheduling.Interval, map[string]bool, error) {
	assignments, err := repo.Committee.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	seated := make(map[string]bool, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		seated[a.TribunalID] = true
		if a.TribunalID != excludeTribunalID {
			ids = append(ids, a.TribunalID)
		}
	}
	if len(ids) == 0 {
		return nil, seated, nil
	}

	tribunals, err := repo.Tribunal.List(ctx, repository.TribunalFilter{IDs: ids})
	if err != nil {
		return nil, nil, err
	}

	busy := make([]scheduling.Interval, 0, len(tribunals))
	for i := range tribunals {
		t := &tribunals[i]
		sem := tribunalSemester(t)
		if sem == nil {
			continue
		}
		iv, err := tribunalInterval(t, t.Slot, sem.DurationMinutes)
		if err != nil {
			return nil, nil, err
		}
		busy = append(busy, iv)
	}
	return busy, seated, nil
}
