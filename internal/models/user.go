package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleTeacher UserRole = "Teacher"
	RoleStudent UserRole = "Student"
)

// User represents an application user stored in the users table. Students
// are identified by index number instead of email; the guardian code hash is
// only set for students whose guardian has been issued an access code.
type User struct {
	ID               string     `db:"id" json:"id"`
	Email            *string    `db:"email" json:"email,omitempty"`
	IndexNumber      *string    `db:"index_number" json:"index_number,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	FullName         string     `db:"full_name" json:"full_name"`
	Role             UserRole   `db:"role" json:"role"`
	ClassID          *string    `db:"class_id" json:"class_id,omitempty"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	GuardianCodeHash *string    `db:"guardian_code_hash" json:"-"`
	Active           bool       `db:"active" json:"active"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	ClassID   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
