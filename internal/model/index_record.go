package model

import "time"

// IndexRecord proves that one content hash of a file was uploaded into the
// project's memory thread. Rows are append-only; a changed file produces a
// new row and the old one stays as history.
type IndexRecord struct {
	ProjectID   string    `gorm:"primaryKey;size:64" json:"project_id"`
	FileID      string    `gorm:"primaryKey;size:64" json:"file_id"`
	ContentHash string    `gorm:"primaryKey;size:64" json:"content_hash"`
	IndexedAt   time.Time `gorm:"not null" json:"indexed_at"`
}

func (IndexRecord) TableName() string { return "indexed_files" }
