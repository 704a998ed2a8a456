package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copium-tutor/internal/model"
)

type MemorySessionRepository struct {
	db *gorm.DB
}

func NewMemorySessionRepository(db *gorm.DB) *MemorySessionRepository {
	return &MemorySessionRepository{db: db}
}

// WithContext returns a copy whose statements run under ctx.
func (r *MemorySessionRepository) WithContext(ctx context.Context) *MemorySessionRepository {
	return &MemorySessionRepository{db: r.db.WithContext(ctx)}
}

func (r *MemorySessionRepository) GetByProjectID(projectID string) (*model.MemorySession, error) {
	var session model.MemorySession
	if err := r.db.Where("project_id = ?", projectID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get memory session failed: %w", err)
	}
	return &session, nil
}

// Replace stores a freshly created session for the project and drops every
// index record, since nothing has been uploaded into the new thread yet.
func (r *MemorySessionRepository) Replace(session *model.MemorySession) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(session).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ?", session.ProjectID).Delete(&model.IndexRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("replace memory session failed: %w", err)
	}
	return nil
}

// ReplaceThread points the session at a new thread under the same assistant
// and drops the project's index records in the same transaction.
func (r *MemorySessionRepository) ReplaceThread(projectID, threadID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.MemorySession{}).
			Where("project_id = ?", projectID).
			Updates(map[string]any{"thread_id": threadID, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("project_id = ?", projectID).Delete(&model.IndexRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("replace memory thread failed: %w", err)
	}
	return nil
}

// Delete removes the session row and its index records.
func (r *MemorySessionRepository) Delete(projectID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&model.MemorySession{}).Error; err != nil {
			return err
		}
		return tx.Where("project_id = ?", projectID).Delete(&model.IndexRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete memory session failed: %w", err)
	}
	return nil
}
