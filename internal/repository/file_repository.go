package repository

import (
	"fmt"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// ListByProjectID returns every file attached to the project, oldest first.
func (r *FileRepository) ListByProjectID(projectID string) ([]model.File, error) {
	var files []model.File
	err := r.db.
		Joins("JOIN project_files pf ON pf.file_id = files.id").
		Where("pf.project_id = ?", projectID).
		Order("files.uploaded_at ASC, files.id ASC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list project files failed: %w", err)
	}
	return files, nil
}

// ListByIDs returns the files with the given ids; unknown ids are skipped.
func (r *FileRepository) ListByIDs(ids []string) ([]model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var files []model.File
	if err := r.db.Where("id IN ?", ids).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files by ids failed: %w", err)
	}
	return files, nil
}
