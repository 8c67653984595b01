package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ── 错误分类 ──
//
// 业务错误通过 Unwrap 归入以下类别之一，Handler 层据此映射 HTTP 状态码。

var (
	// ErrValidation 输入不合法或违反学期策略（客户端可修正）
	ErrValidation = errors.New("validation failed")
	// ErrConflict 并发修改与不变量冲突（可重新读取后重试一次）
	ErrConflict = errors.New("conflict")
	// ErrDependency 删除被仍在引用的下游记录阻止
	ErrDependency = errors.New("dependency")
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("not found")
	// ErrForbidden 调用方无权对该对象执行操作
	ErrForbidden = errors.New("forbidden")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = Conflict("record was modified by another request, reload and retry")

// ErrLockTimeout 等待排期锁超时
var ErrLockTimeout = Conflict("resource is busy, retry shortly")

// ── 分类错误 ──

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Validation 创建校验类错误（无字段归属）
func Validation(msg string) error { return &kindError{kind: ErrValidation, msg: msg} }

// Conflict 创建冲突类错误
func Conflict(msg string) error { return &kindError{kind: ErrConflict, msg: msg} }

// NotFound 创建不存在类错误
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// Forbidden 创建越权类错误
func Forbidden(msg string) error { return &kindError{kind: ErrForbidden, msg: msg} }

// ── 字段级校验错误 ──

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 字段级校验错误集合
type ValidationError struct {
	Fields []FieldError
}

// NewFieldError 创建单字段校验错误
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FieldMap 转换为 field → message，同一字段保留第一条
func (e *ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := m[f.Field]; !ok {
			m[f.Field] = f.Message
		}
	}
	return m
}

// ── 依赖错误 ──

// DependencyError 删除被引用阻止，消息只给出数量摘要
type DependencyError struct {
	Entity     string // slot
	Dependents string // tribunal
	Count      int64
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("Cannot delete %s: referenced by %d %s(s)", e.Entity, e.Count, e.Dependents)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// ── 日期越界错误 ──

// maxListedDates 错误消息中最多列出的日期数
const maxListedDates = 20

// DatesError 学期更新会使已有时段落在窗口之外
type DatesError struct {
	Reason string
	Dates  []string // 已排序去重
}

func (e *DatesError) Error() string {
	listed := e.Dates
	suffix := ""
	if len(listed) > maxListedDates {
		suffix = fmt.Sprintf(" and %d more", len(listed)-maxListedDates)
		listed = listed[:maxListedDates]
	}
	return fmt.Sprintf("%s: %s%s", e.Reason, strings.Join(listed, ", "), suffix)
}

func (e *DatesError) Unwrap() error { return ErrValidation }
