package models

import "time"

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "All"
	AnnouncementAudienceTeachers AnnouncementAudience = "Teachers"
	AnnouncementAudienceStudents AnnouncementAudience = "Students"
)

// Announcement represents a persisted announcement row.
type Announcement struct {
	ID        string               `db:"id" json:"id"`
	Title     string               `db:"title" json:"title"`
	Content   string               `db:"content" json:"content"`
	Audience  AnnouncementAudience `db:"audience" json:"audience"`
	CreatedBy string               `db:"created_by" json:"created_by"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter narrows the feed to what a role may see.
type AnnouncementFilter struct {
	ViewerRole UserRole
	Page       int
	PageSize   int
}
