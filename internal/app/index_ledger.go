package app

import (
	"time"

	"copium-tutor/internal/model"
	"copium-tutor/internal/repository"
)

// IndexLedger tracks which content hashes of which documents were uploaded
// into a project's memory thread.
type IndexLedger struct {
	repo *repository.IndexRecordRepository
}

func NewIndexLedger(repo *repository.IndexRecordRepository) *IndexLedger {
	return &IndexLedger{repo: repo}
}

// ShouldUpload is true unless this exact content of the document is already
// recorded for the project.
func (l *IndexLedger) ShouldUpload(projectID, fileID, contentHash string) (bool, error) {
	indexed, err := l.repo.Exists(projectID, fileID, contentHash)
	if err != nil {
		return false, err
	}
	return !indexed, nil
}

// RecordIndexed appends a record. Recording the same triple twice is a no-op.
func (l *IndexLedger) RecordIndexed(projectID, fileID, contentHash string, at time.Time) error {
	_, err := l.repo.InsertIfAbsent(&model.IndexRecord{
		ProjectID:   projectID,
		FileID:      fileID,
		ContentHash: contentHash,
		IndexedAt:   at.UTC(),
	})
	return err
}

// AllIndexed reports whether every id in fileIDs has at least one record for
// the project, whatever its hash.
func (l *IndexLedger) AllIndexed(projectID string, fileIDs []string) (bool, error) {
	unique := uniqueStrings(fileIDs)
	if len(unique) == 0 {
		return false, nil
	}
	n, err := l.repo.CountIndexedFiles(projectID, unique)
	if err != nil {
		return false, err
	}
	return n == len(unique), nil
}

func (l *IndexLedger) History(projectID string) ([]model.IndexRecord, error) {
	return l.repo.ListByProjectID(projectID)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
