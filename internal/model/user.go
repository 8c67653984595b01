package model

import "time"

// 用户角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User 用户表，对应 users，由外部账号系统维护，本服务只读
type User struct {
	UserID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	FullName  string    `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Email     string    `gorm:"type:varchar(255);not null"                     json:"email"`
	Role      string    `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsPrivileged 管理员账号，不可担任委员会角色
func (u *User) IsPrivileged() bool { return u.Role == RoleAdmin }

// CanEvaluate 可担任评委
func (u *User) CanEvaluate() bool { return u.Role == RoleTeacher }
