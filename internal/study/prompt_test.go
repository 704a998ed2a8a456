package study

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuizPrompt(t *testing.T) {
	req := QuizRequest{ProjectID: "p1", Topic: "Cells", QuizType: "mcq", NumQuestions: 5, Files: []string{"bio.pdf", "notes.pdf"}}

	first := QuizPrompt(req, false)
	assert.Contains(t, first, "Quiz topic: Cells")
	assert.Contains(t, first, "Number of questions: 5")
	assert.Contains(t, first, "Prioritize these files: bio.pdf, notes.pdf.")
	assert.NotContains(t, first, quizRetrySuffix)

	retry := QuizPrompt(req, true)
	assert.True(t, strings.HasSuffix(retry, quizRetrySuffix))

	req.Files = nil
	assert.Contains(t, QuizPrompt(req, false), "Prioritize these files: selected documents.")
}

func TestDeckPrompt(t *testing.T) {
	msg := DeckPrompt(DeckRequest{ProjectID: "p1", DeckName: "Cells", Prompt: "membranes"}, false)
	assert.Contains(t, msg, "- (none found)")
	assert.True(t, strings.HasPrefix(DeckPrompt(DeckRequest{}, true), jsonOnlyPrefix))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Lecture 1.pdf", DisplayName("uploads/abc123_Lecture 1.pdf"))
	assert.Equal(t, "plain.pdf", DisplayName("uploads/plain.pdf"))
	assert.Equal(t, "", DisplayName(""))
}
