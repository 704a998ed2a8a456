package model

import "time"

// File is an uploaded course document. Path is relative to the upload root.
type File struct {
	ID          string    `gorm:"primaryKey;size:64" json:"file_id"`
	Path        string    `gorm:"size:512;not null" json:"file_path"`
	Size        int64     `gorm:"not null" json:"file_size"`
	ContentType string    `gorm:"size:128" json:"file_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ProjectFile attaches a file to a project.
type ProjectFile struct {
	ProjectID string `gorm:"primaryKey;size:64" json:"project_id"`
	FileID    string `gorm:"primaryKey;size:64;index" json:"file_id"`
}
