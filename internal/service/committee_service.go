package service

import (
	"context"

	"go.uber.org/zap"

	"defense-scheduler/internal/dto"
	"defense-scheduler/internal/model"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/scheduling"
	"defense-scheduler/pkg/lock"
)

// CommitteeService 委员会分配业务接口
type CommitteeService interface {
	// Assign 校验顺序：重复分配、唯一角色、账号能力、人数上限、评委时间冲突
	Assign(ctx context.Context, req *dto.AssignRoleRequest, caller Caller) (*dto.CommitteeResponse, error)
	Unassign(ctx context.Context, id string, caller Caller) error
	List(ctx context.Context, tribunalID string) ([]dto.CommitteeResponse, error)
	Staffing(ctx context.Context, tribunalID string) (*dto.StaffingResponse, error)
	IsReady(ctx context.Context, tribunalID string) (bool, error)
	IsFull(ctx context.Context, tribunalID string) (bool, error)
}

type committeeService struct {
	repo   *repository.Repository
	locker lock.Locker
	rule   scheduling.ReadyRule
	logger *zap.Logger
}

// NewCommitteeService 创建 CommitteeService 实例
func NewCommitteeService(repo *repository.Repository, locker lock.Locker, rule scheduling.ReadyRule, logger *zap.Logger) CommitteeService {
	return &committeeService{repo: repo, locker: locker, rule: rule, logger: logger}
}

// ────────────────────── Assign ──────────────────────

func (s *committeeService) Assign(ctx context.Context, req *dto.AssignRoleRequest, caller Caller) (*dto.CommitteeResponse, error) {
	// 非管理员只能为自己认领角色
	if !caller.IsAdmin() && req.UserID != caller.UserID {
		return nil, ErrAssignSelfOnly
	}
	role := scheduling.Role(req.Role)

	var assignment *model.CommitteeAssignment
	keys := []string{tribunalKey(req.TribunalID), userKey(req.UserID)}
	err := withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			tribunal, err := tx.Tribunal.GetForUpdate(ctx, req.TribunalID)
			if err != nil {
				return notFound(err, ErrTribunalNotFound)
			}
			user, err := tx.User.GetByID(ctx, req.UserID)
			if err != nil {
				return notFound(err, ErrUserNotFound)
			}

			existing, err := tx.Committee.ListByTribunal(ctx, tribunal.TribunalID)
			if err != nil {
				return err
			}
			for _, a := range existing {
				if a.UserID == user.UserID {
					return ErrUserAlreadyAssigned
				}
			}
			if role.Unique() {
				for _, a := range existing {
					if a.Role == role {
						return ErrRoleTaken
					}
				}
			}

			if user.IsPrivileged() {
				return ErrPrivilegedAccount
			}
			if !user.CanEvaluate() {
				return ErrNotEvaluator
			}

			slot, err := tx.Slot.GetByID(ctx, tribunal.SlotID)
			if err != nil {
				return err
			}
			semester, err := semesterOfSlot(ctx, tx, slot)
			if err != nil {
				return err
			}
			if len(existing) >= semester.MaxCommittee {
				return ErrCommitteeFull
			}

			iv, err := tribunalInterval(tribunal, slot, semester.DurationMinutes)
			if err != nil {
				return err
			}
			busy, _, err := busyIntervals(ctx, tx, user.UserID, tribunal.TribunalID)
			if err != nil {
				return err
			}
			if iv.ConflictsAny(busy) {
				return ErrEvaluatorBusy
			}

			assignment = &model.CommitteeAssignment{
				TribunalID: tribunal.TribunalID,
				UserID:     user.UserID,
				Role:       role,
			}
			assignment.CreatedBy = &caller.UserID
			assignment.UpdatedBy = &caller.UserID
			if err := tx.Committee.Create(ctx, assignment); err != nil {
				return duplicate(err, ErrAssignmentConflict)
			}
			assignment.User = user
			return nil
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("分配委员会角色失败",
				zap.String("tribunal_id", req.TribunalID),
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("委员会角色已分配",
		zap.String("assignment_id", assignment.AssignmentID),
		zap.String("tribunal_id", assignment.TribunalID),
		zap.String("role", req.Role),
	)
	resp := toCommitteeResponse(assignment)
	return &resp, nil
}

// ────────────────────── Unassign ──────────────────────

func (s *committeeService) Unassign(ctx context.Context, id string, caller Caller) error {
	assignment, err := s.repo.Committee.GetByID(ctx, id)
	if err != nil {
		err = notFound(err, ErrAssignmentNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询委员会分配失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}
	if !caller.IsAdmin() && assignment.UserID != caller.UserID {
		return ErrUnassignForbidden
	}

	keys := []string{tribunalKey(assignment.TribunalID), userKey(assignment.UserID)}
	err = withLock(ctx, s.locker, keys, func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if _, err := tx.Tribunal.GetForUpdate(ctx, assignment.TribunalID); err != nil {
				return notFound(err, ErrTribunalNotFound)
			}
			return tx.Committee.Delete(ctx, id)
		})
	})
	if err != nil {
		if !isBusiness(err) {
			s.logger.Error("取消委员会分配失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

// ────────────────────── Query ──────────────────────

func (s *committeeService) List(ctx context.Context, tribunalID string) ([]dto.CommitteeResponse, error) {
	if _, err := s.repo.Tribunal.GetByID(ctx, tribunalID); err != nil {
		return nil, notFound(err, ErrTribunalNotFound)
	}

	assignments, err := s.repo.Committee.ListByTribunal(ctx, tribunalID)
	if err != nil {
		s.logger.Error("列出委员会失败", zap.String("tribunal_id", tribunalID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CommitteeResponse, 0, len(assignments))
	for i := range assignments {
		result = append(result, toCommitteeResponse(&assignments[i]))
	}
	return result, nil
}

func (s *committeeService) Staffing(ctx context.Context, tribunalID string) (*dto.StaffingResponse, error) {
	st, err := s.staffing(ctx, tribunalID)
	if err != nil {
		return nil, err
	}
	resp := toStaffingResponse(st, s.rule)
	return &resp, nil
}

func (s *committeeService) IsReady(ctx context.Context, tribunalID string) (bool, error) {
	st, err := s.staffing(ctx, tribunalID)
	if err != nil {
		return false, err
	}
	return st.Ready(s.rule), nil
}

func (s *committeeService) IsFull(ctx context.Context, tribunalID string) (bool, error) {
	st, err := s.staffing(ctx, tribunalID)
	if err != nil {
		return false, err
	}
	return st.Full(), nil
}

func (s *committeeService) staffing(ctx context.Context, tribunalID string) (scheduling.Staffing, error) {
	tribunal, err := s.repo.Tribunal.GetByID(ctx, tribunalID)
	if err != nil {
		err = notFound(err, ErrTribunalNotFound)
		if !isBusiness(err) {
			s.logger.Error("查询答辩失败", zap.String("id", tribunalID), zap.Error(err))
		}
		return scheduling.Staffing{}, err
	}

	semester := tribunalSemester(tribunal)
	if semester == nil {
		return scheduling.Staffing{}, ErrSemesterNotFound
	}
	return staffingOf(tribunal.Committees, semester), nil
}
