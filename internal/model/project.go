package model

import "time"

// Project is a course. Rows are owned by the course management side of the
// system; this service only reads them.
type Project struct {
	ID        string    `gorm:"primaryKey;size:64" json:"project_id"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
