package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. The identifier
// is an email for admins and teachers, an index number for students.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// SignupRequest registers a new student or teacher account.
type SignupRequest struct {
	Role            UserRole `json:"role" validate:"required,oneof=Student Teacher"`
	FullName        string   `json:"full_name" validate:"required,min=3"`
	Identifier      string   `json:"identifier" validate:"required"`
	Password        string   `json:"password" validate:"required,min=6"`
	ConfirmPassword string   `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginResponse returns the issued access token and user info. The rotated
// refresh token travels separately in an http-only cookie.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`

	RefreshToken string `json:"-"`
}

// RefreshResponse returns a fresh access token after a silent refresh.
type RefreshResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`

	RefreshToken string `json:"-"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated principal in responses. Exactly one
// of Role or Guardian is populated: a guardian carries a student linkage
// instead of a role.
type UserInfo struct {
	ID          string   `json:"id,omitempty"`
	FullName    string   `json:"full_name,omitempty"`
	Role        UserRole `json:"role,omitempty"`
	IndexNumber string   `json:"index_number,omitempty"`

	StudentID   string `json:"student_id,omitempty"`
	StudentName string `json:"student_name,omitempty"`
}

// IsGuardian reports whether the principal is a guardian linkage rather than
// a role-holding account.
func (u UserInfo) IsGuardian() bool {
	return u.StudentID != ""
}

// JWTClaims represents the JWT payload for access tokens. Guardian tokens
// have an empty Role and carry the linked student instead.
type JWTClaims struct {
	UserID      string   `json:"user_id,omitempty"`
	Role        UserRole `json:"role,omitempty"`
	FullName    string   `json:"full_name,omitempty"`
	StudentID   string   `json:"student_id,omitempty"`
	StudentName string   `json:"student_name,omitempty"`
	jwt.RegisteredClaims
}

// IsGuardian reports whether the claims belong to a guardian session.
func (c *JWTClaims) IsGuardian() bool {
	return c.StudentID != ""
}
