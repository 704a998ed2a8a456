package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/gorm"

	"copium-tutor/internal/cache"
	"copium-tutor/internal/config"
	"copium-tutor/internal/metrics"
	"copium-tutor/internal/model"
	"copium-tutor/internal/pdfsplit"
	"copium-tutor/internal/pkg/pdfinspect"
	"copium-tutor/internal/repository"
)

// IngestResult counts what one ingestion pass did.
type IngestResult struct {
	ThreadID           string `json:"thread_id"`
	Uploaded           int    `json:"uploaded_documents"`
	UploadedSplitParts int    `json:"uploaded_split_documents"`
	Skipped            int    `json:"skipped_files"`
	Failed             int    `json:"failed_files"`
}

type ingestOutcome string

const (
	outcomeUploaded ingestOutcome = "uploaded"
	outcomeSplit    ingestOutcome = "split"
	outcomeSkipped  ingestOutcome = "skipped"
	outcomeFailed   ingestOutcome = "failed"
)

// IngestService pushes a project's documents into its memory thread.
type IngestService struct {
	db       *gorm.DB
	client   MemoryService
	sessions *MemorySessionManager
	lock     ProjectLocker
	cfg      config.IngestConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewIngestService(
	db *gorm.DB,
	client MemoryService,
	sessions *MemorySessionManager,
	lock ProjectLocker,
	cfg config.IngestConfig,
	logger *slog.Logger,
) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		db:       db,
		client:   client,
		sessions: sessions,
		lock:     lock,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// IngestProject uploads every attached document whose current content is not
// yet recorded. A failure on one document is counted and the pass continues.
func (s *IngestService) IngestProject(ctx context.Context, userID, projectID string) (*IngestResult, error) {
	if !s.client.Configured() {
		return nil, ErrServiceNotConfigured
	}

	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	project, err := store.Projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, ErrProjectNotFound
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, projectID)
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, ErrIngestInProgress
		}
		if err != nil {
			return nil, goerr.Wrap(err, "acquire ingest lock failed", goerr.V("project_id", projectID))
		}
		defer release()
	}

	handle, err := s.sessions.Resolve(ctx, store.Sessions, projectID)
	if err != nil {
		return nil, err
	}

	files, err := store.Files.ListByProjectID(projectID)
	if err != nil {
		return nil, err
	}

	ledger := NewIndexLedger(store.IndexRecords)
	result := &IngestResult{ThreadID: handle.ThreadID}
	for _, file := range files {
		outcome, parts, err := s.ingestOne(ctx, ledger, handle.ThreadID, projectID, file)
		result.UploadedSplitParts += parts
		metrics.IngestSplitParts.Add(float64(parts))
		metrics.IngestDocuments.WithLabelValues(string(outcome)).Inc()

		switch outcome {
		case outcomeUploaded:
			result.Uploaded++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
			s.logger.Warn("document ingestion failed",
				"project_id", projectID, "document_id", file.ID, "error", err)
		}
	}

	s.logger.Info("project ingested",
		"project_id", projectID,
		"uploaded", result.Uploaded,
		"split_parts", result.UploadedSplitParts,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// ingestOne handles a single document. parts counts split parts that reached
// the service, including parts sent before a later part failed.
func (s *IngestService) ingestOne(ctx context.Context, ledger *IndexLedger, threadID, projectID string, file model.File) (outcome ingestOutcome, parts int, err error) {
	path := s.resolvePath(file.Path)
	info, err := os.Stat(path)
	if err != nil {
		return outcomeFailed, 0, err
	}
	if info.IsDir() {
		return outcomeFailed, 0, fmt.Errorf("document path %s is a directory", path)
	}

	hash, err := hashFile(path)
	if err != nil {
		return outcomeFailed, 0, err
	}

	upload, err := ledger.ShouldUpload(projectID, file.ID, hash)
	if err != nil {
		return outcomeFailed, 0, err
	}
	if !upload {
		return outcomeSkipped, 0, nil
	}

	outcome = outcomeUploaded
	if info.Size() <= s.cfg.MaxUploadBytes {
		if _, err := s.client.UploadDocument(ctx, threadID, path); err != nil {
			return outcomeFailed, 0, err
		}
	} else {
		outcome = outcomeSplit
		parts, err = s.uploadSplit(ctx, threadID, path)
		if err != nil {
			return outcomeFailed, parts, err
		}
	}

	if err := ledger.RecordIndexed(projectID, file.ID, hash, s.now()); err != nil {
		return outcomeFailed, parts, err
	}
	return outcome, parts, nil
}

func (s *IngestService) uploadSplit(ctx context.Context, threadID, path string) (int, error) {
	isPDF, err := pdfinspect.IsPDF(path)
	if err != nil {
		return 0, err
	}
	if !isPDF {
		return 0, fmt.Errorf("%s exceeds %d bytes and is not a pdf", filepath.Base(path), s.cfg.MaxUploadBytes)
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "split-*")
	if err != nil {
		return 0, fmt.Errorf("create split dir failed: %w", err)
	}
	defer os.RemoveAll(dir)

	partPaths, err := pdfsplit.SplitFile(path, int(s.cfg.MaxUploadBytes), dir)
	if err != nil {
		return 0, err
	}
	defer pdfsplit.Cleanup(partPaths)

	uploaded := 0
	for _, part := range partPaths {
		if _, err := s.client.UploadDocument(ctx, threadID, part); err != nil {
			return uploaded, err
		}
		uploaded++
	}
	return uploaded, nil
}

func (s *IngestService) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.cfg.UploadDir, p)
}

// IndexStatus lists every index record of the project, oldest first.
func (s *IngestService) IndexStatus(ctx context.Context, userID, projectID string) ([]model.IndexRecord, error) {
	store := repository.OpenStore(ctx, s.db)
	defer store.Close()

	project, err := store.Projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if project == nil || project.UserID != userID {
		return nil, ErrProjectNotFound
	}
	return NewIndexLedger(store.IndexRecords).History(projectID)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
