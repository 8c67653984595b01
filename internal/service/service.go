package service

import (
	"time"

	"go.uber.org/zap"

	"defense-scheduler/config"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	"defense-scheduler/pkg/lock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Semester     SemesterService
	Track        TrackService
	Slot         SlotService
	Tribunal     TribunalService
	Committee    CommitteeService
	Availability AvailabilityService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合，所有写操作共享同一个 Locker
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker lock.Locker,
	logger *zap.Logger,
) *Service {
	rule, err := scheduling.ParseReadyRule(cfg.Scheduling.ReadyRule)
	if err != nil {
		logger.Warn("未知就绪规则，使用 quorum", zap.String("ready_rule", cfg.Scheduling.ReadyRule))
		rule = scheduling.ReadyQuorum
	}
	loc, err := time.LoadLocation(cfg.Scheduling.Timezone)
	if err != nil {
		logger.Warn("时区加载失败，使用 UTC", zap.String("timezone", cfg.Scheduling.Timezone), zap.Error(err))
		loc = time.UTC
	}

	return &Service{
		Semester:     NewSemesterService(repo, locker, logger),
		Track:        NewTrackService(repo, locker, logger),
		Slot:         NewSlotService(repo, locker, cfg.Scheduling.DefaultCapacity, logger),
		Tribunal:     NewTribunalService(repo, locker, rule, logger),
		Committee:    NewCommitteeService(repo, locker, rule, logger),
		Availability: NewAvailabilityService(repo, rule, loc, logger),
		Export:       NewExportService(repo, rule, logger),
		Calendar:     NewCalendarService(repo, loc, logger),
	}
}
