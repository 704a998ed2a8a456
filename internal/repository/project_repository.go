package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"copium-tutor/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) GetByID(id string) (*model.Project, error) {
	var project model.Project
	if err := r.db.Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project failed: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) ListByIDs(ids []string) ([]model.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var projects []model.Project
	if err := r.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects failed: %w", err)
	}
	return projects, nil
}
