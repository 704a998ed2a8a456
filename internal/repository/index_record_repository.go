package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"copium-tutor/internal/model"
)

type IndexRecordRepository struct {
	db *gorm.DB
}

func NewIndexRecordRepository(db *gorm.DB) *IndexRecordRepository {
	return &IndexRecordRepository{db: db}
}

func (r *IndexRecordRepository) Exists(projectID, fileID, contentHash string) (bool, error) {
	var count int64
	err := r.db.Model(&model.IndexRecord{}).
		Where("project_id = ? AND file_id = ? AND content_hash = ?", projectID, fileID, contentHash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check index record failed: %w", err)
	}
	return count > 0, nil
}

// InsertIfAbsent inserts rec unless the same (project, file, hash) triple is
// already recorded. It reports whether a row was written.
func (r *IndexRecordRepository) InsertIfAbsent(rec *model.IndexRecord) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return false, fmt.Errorf("insert index record failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountIndexedFiles counts how many of fileIDs have at least one record for
// the project, whatever the hash.
func (r *IndexRecordRepository) CountIndexedFiles(projectID string, fileIDs []string) (int, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&model.IndexRecord{}).
		Where("project_id = ? AND file_id IN ?", projectID, fileIDs).
		Distinct("file_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count indexed files failed: %w", err)
	}
	return int(count), nil
}

func (r *IndexRecordRepository) ListByProjectID(projectID string) ([]model.IndexRecord, error) {
	var records []model.IndexRecord
	if err := r.db.Where("project_id = ?", projectID).Order("indexed_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list index records failed: %w", err)
	}
	return records, nil
}
