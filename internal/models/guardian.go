package models

import "time"

// GuardianLoginRequest authenticates a guardian with the student's index
// number and the school-issued access code.
type GuardianLoginRequest struct {
	IndexNumber string `json:"index_number" validate:"required"`
	AccessCode  string `json:"access_code" validate:"required"`
	IP          string `json:"-"`
	UserAgent   string `json:"-"`
}

// GuardianSession is returned from guardian login and refresh. Unlike the
// standard flow, the refresh token is part of the body: guardians persist it
// themselves since they have no cookie-backed session.
type GuardianSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}
