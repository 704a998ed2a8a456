package backboard

import "strings"

type MemoryMode string

const (
	MemoryAuto      MemoryMode = "Auto"
	MemoryReadonly  MemoryMode = "Readonly"
	MemoryReadwrite MemoryMode = "Readwrite"
)

type Assistant struct {
	AssistantID string `json:"assistant_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Thread struct {
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id"`
}

// Document is a file tracked by a thread. Status is reported by the service
// while it parses and indexes the upload.
type Document struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
}

// MessageOptions selects the model and how the message interacts with memory.
type MessageOptions struct {
	LLMProvider string
	ModelName   string
	Memory      MemoryMode
}

type messageReply struct {
	Content   string `json:"content"`
	MessageID string `json:"message_id"`
}

var terminalStatuses = map[string]bool{
	"indexed":   true,
	"processed": true,
	"completed": true,
	"failed":    true,
	"error":     true,
	"errored":   true,
}

// NormalizeStatus lowercases and trims a document status.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsTerminalStatus reports whether the service is done with a document,
// successfully or not.
func IsTerminalStatus(status string) bool {
	return terminalStatuses[NormalizeStatus(status)]
}
