package app

import (
	"context"
	"errors"
	"io/fs"

	"copium-tutor/internal/backboard"
	"copium-tutor/internal/pdfsplit"
	"copium-tutor/internal/study"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrProjectNotFound      = errors.New("project not found")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrDeckNotFound         = errors.New("deck not found")
	ErrChatNotFound         = errors.New("chat not found")
	ErrCardNotFound         = errors.New("card not found")
	ErrQuizNotReady         = errors.New("quiz is not ready")
	ErrQuizNotRetryable     = errors.New("quiz can only be regenerated after a failure")
	ErrNotIndexed           = errors.New("documents not indexed")
	ErrAssistantMissing     = errors.New("memory assistant missing")
	ErrServiceNotConfigured = errors.New("memory service api key not set")
	ErrIngestInProgress     = errors.New("ingestion already running for project")
	ErrReadyTimeout         = errors.New("documents still indexing")
	ErrNoQuestions          = errors.New("no questions generated")
	ErrJobInterrupted       = errors.New("generation job interrupted")
)

const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindNotIndexed = "not_indexed"
	KindUpstream   = "upstream"
	KindParse      = "parse"
	KindTimeout    = "timeout"
	KindIO         = "io"
	KindConflict   = "conflict"
	KindInternal   = "internal"
)

// ErrorKind classifies err for job failure messages and HTTP status mapping.
func ErrorKind(err error) string {
	var apiErr *backboard.APIError
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrProjectNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrDeckNotFound),
		errors.Is(err, ErrChatNotFound),
		errors.Is(err, ErrCardNotFound),
		errors.Is(err, ErrAssistantMissing),
		errors.Is(err, backboard.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotIndexed):
		return KindNotIndexed
	case errors.Is(err, ErrQuizNotReady),
		errors.Is(err, ErrQuizNotRetryable),
		errors.Is(err, ErrIngestInProgress):
		return KindConflict
	case errors.Is(err, ErrReadyTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNoQuestions), errors.Is(err, study.ErrNoJSON):
		return KindParse
	case errors.Is(err, ErrServiceNotConfigured), errors.As(err, &apiErr):
		return KindUpstream
	case errors.As(err, &pathErr), errors.Is(err, pdfsplit.ErrNoPages):
		return KindIO
	default:
		return KindInternal
	}
}

// jobFailure is a precondition or outcome failure with the exact text shown
// to the user. It unwraps to the sentinel that classifies it.
type jobFailure struct {
	kind    error
	message string
}

func (f *jobFailure) Error() string { return f.message }
func (f *jobFailure) Unwrap() error { return f.kind }

func failWith(kind error, message string) error {
	return &jobFailure{kind: kind, message: message}
}
