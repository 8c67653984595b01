package service

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "defense-scheduler/pkg/errors"
)

// ── 不存在 ──

var (
	ErrSemesterNotFound   = pkgerrors.NotFound("semester not found")
	ErrNoCurrentSemester  = pkgerrors.NotFound("no semester covers the given date")
	ErrTrackNotFound      = pkgerrors.NotFound("track not found")
	ErrSlotNotFound       = pkgerrors.NotFound("slot not found")
	ErrTribunalNotFound   = pkgerrors.NotFound("tribunal not found")
	ErrAssignmentNotFound = pkgerrors.NotFound("committee assignment not found")
	ErrDefenseNotFound    = pkgerrors.NotFound("defense not found")
	ErrUserNotFound       = pkgerrors.NotFound("user not found")
)

// ── 时段 ──

var (
	ErrSlotOverlap           = pkgerrors.Validation("slot overlaps another slot in the same room and date")
	ErrCapacityBelowOccupied = pkgerrors.Validation("capacity is below the highest occupied index")
)

// ── 放置 ──

var (
	ErrSlotAtCapacity       = pkgerrors.Conflict("slot at capacity")
	ErrIndexTaken           = pkgerrors.Conflict("index already taken")
	ErrIndexOutOfRange      = pkgerrors.Validation("index out of range for slot capacity")
	ErrDefenseAlreadyPlaced = pkgerrors.Conflict("defense already has a tribunal")
	ErrSlotWindowOverlap    = pkgerrors.Conflict("slot window overlaps another slot")
	ErrSlotWindowPastDay    = pkgerrors.Validation("slot window exceeds allowed daily end")
)

// ── 委员会 ──

var (
	ErrUserAlreadyAssigned = pkgerrors.Validation("user already assigned")
	ErrRoleTaken           = pkgerrors.Validation("role already taken")
	ErrPrivilegedAccount   = pkgerrors.Validation("privileged accounts cannot be assigned")
	ErrNotEvaluator        = pkgerrors.Validation("user cannot act as an evaluator")
	ErrCommitteeFull       = pkgerrors.Validation("committee is full")
	ErrEvaluatorBusy       = pkgerrors.Validation("user sits on another defense at the same time")
	ErrAssignSelfOnly      = pkgerrors.Forbidden("only administrators may assign other users")
	ErrUnassignForbidden   = pkgerrors.Forbidden("only administrators or the assignee may unassign")
	ErrAssignmentConflict  = pkgerrors.Conflict("committee changed concurrently, reload and retry")
)

// ErrPlacementConflict 唯一索引兜底触发
var ErrPlacementConflict = pkgerrors.Conflict("placement changed concurrently, reload and retry")

// notFound 将 gorm.ErrRecordNotFound 替换为业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// duplicate 将唯一索引冲突替换为业务冲突错误
func duplicate(err error, target error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}

// isBusiness 业务错误不记录 Error 日志
func isBusiness(err error) bool {
	return errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrConflict) ||
		errors.Is(err, pkgerrors.ErrDependency) ||
		errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrForbidden)
}
