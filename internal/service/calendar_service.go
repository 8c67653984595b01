package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	pkgerrors "defense-scheduler/pkg/errors"
)

// ErrCalendarForbidden 非管理员只能导出自己的日历
var ErrCalendarForbidden = pkgerrors.Forbidden("only administrators may export other users' calendars")

const calendarProductID = "-//defense-scheduler//committee calendar//ZH"

// CalendarService 评委日历导出接口（iCalendar, RFC 5545）
type CalendarService interface {
	// Export 每个委员会席位生成一个 VEVENT；semester 为空时导出全部学期
	Export(ctx context.Context, req *dto.CalendarRequest, caller Caller) (string, string, error)
}

type calendarService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例，loc 为答辩所在地时区
func NewCalendarService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &calendarService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

func (s *calendarService) Export(ctx context.Context, req *dto.CalendarRequest, caller Caller) (string, string, error) {
	userID := req.UserID
	if userID == "" {
		userID = caller.UserID
	}
	if userID != caller.UserID && !caller.IsAdmin() {
		return "", "", ErrCalendarForbidden
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		err = notFound(err, ErrUserNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		}
		return "", "", err
	}

	assignments, err := s.repo.Committee.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询委员会席位失败", zap.String("user_id", userID), zap.Error(err))
		return "", "", err
	}
	roles := make(map[string]scheduling.Role, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		roles[a.TribunalID] = a.Role
		ids = append(ids, a.TribunalID)
	}

	// IDs 为空切片时 List 直接返回空
	tribunals, err := s.repo.Tribunal.List(ctx, repository.TribunalFilter{
		SemesterID: req.SemesterID,
		IDs:        ids,
	})
	if err != nil {
		s.logger.Error("查询答辩安排失败", zap.String("user_id", userID), zap.Error(err))
		return "", "", err
	}
	sortForExport(tribunals)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(fmt.Sprintf("%s 答辩安排", user.FullName))

	stamp := s.now().UTC()
	for i := range tribunals {
		t := &tribunals[i]
		sem := tribunalSemester(t)
		if sem == nil {
			continue
		}
		iv, err := tribunalInterval(t, t.Slot, sem.DurationMinutes)
		if err != nil {
			return "", "", err
		}
		s.addEvent(cal, t, iv, roles[t.TribunalID], stamp)
	}

	filename := fmt.Sprintf("defenses_%s.ics", userID)
	return cal.Serialize(), filename, nil
}

func (s *calendarService) addEvent(cal *ics.Calendar, t *model.Tribunal, iv scheduling.Interval, role scheduling.Role, stamp time.Time) {
	event := cal.AddEvent(t.TribunalID + "@defense-scheduler")
	event.SetDtStampTime(stamp)
	event.SetStartAt(s.at(iv.Date, iv.Start))
	event.SetEndAt(s.at(iv.Date, iv.End))

	summary := "答辩"
	if t.Defense != nil {
		summary = t.Defense.Title
	}
	event.SetSummary(summary)
	event.SetLocation(t.Slot.Room)
	event.SetDescription(fmt.Sprintf("角色: %s，序号: %d", role, t.Index))
}

// at 将日期与分钟数组合为本地时间
func (s *calendarService) at(date time.Time, c scheduling.Clock) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc).Add(time.Duration(c) * time.Minute)
}
