package study

import (
	"fmt"
	"path/filepath"
	"strings"
)

const quizSystemPrompt = `You are an expert tutor generating quizzes from course documents.
Return ONLY valid JSON (no markdown, no commentary).
Always return the requested number of questions; never return an empty questions list.

Schema:
{
  "questions": [
    {
      "id": "q1",
      "type": "mcq|short|long",
      "question": "...",
      "choices": ["Option text A", "Option text B", "Option text C", "Option text D"] // for mcq only
    }
  ],
  "answers": {
    "q1": 0,           // mcq: index of correct choice
    "q2": "..."        // short/long: model answer
  },
  "explanations": {
    "q1": "..."
  }
}
Rules:
- Generate the requested number of questions exactly.
- Use ONLY the course documents already indexed in memory as the source of truth.
- For mcq: 4 choices, one correct; answers use 0-based index; choices must be full answer text (not labels like A/B/C/D).`

const flashcardSystemPrompt = `You are an expert tutor creating study flashcards.

You have access to the course's INDEXED documents for this course (retrieval may be automatic).

Return ONLY valid JSON:
{
  "ok": true,
  "mode": "grounded" | "mixed" | "external_only",
  "confidence": 0-100,
  "cards": [
    {
      "front": "...",
      "back": "...",
      "external": true/false,
      "note": "string"
    }
  ]
}

Rules:
- ALWAYS return ok=true.
- Produce 10-20 cards.
- Cards do NOT need to be verbatim excerpts; paraphrase and synthesize.
- Prefer indexed docs. If a card is not clearly supported by indexed docs, set external=true and
  note="General knowledge (not found in course docs)."
- If most cards are doc-supported: mode="grounded".
- If mix: mode="mixed".
- If you could not rely on docs at all: mode="external_only".`

const (
	quizRetrySuffix   = "Return the JSON directly. Do not return an empty questions list."
	jsonOnlyPrefix    = "Return ONLY valid JSON. No markdown. No commentary."
	defaultFileSuffix = "selected documents"
)

// QuizRequest describes one quiz generation prompt.
type QuizRequest struct {
	ProjectID    string
	Topic        string
	QuizType     string
	NumQuestions int
	Files        []string
}

// QuizPrompt builds the message sent for quiz generation. retry adds the
// instruction used after an empty first reply.
func QuizPrompt(req QuizRequest, retry bool) string {
	files := defaultFileSuffix
	if len(req.Files) > 0 {
		files = strings.Join(req.Files, ", ")
	}
	body := fmt.Sprintf(`Course: %s
Quiz topic: %s
Quiz type: %s
Number of questions: %d

Task:
Generate a quiz with the exact number of questions requested.
Prioritize these files: %s.
If needed, you may use any indexed course documents to complete the quiz.`,
		req.ProjectID, req.Topic, req.QuizType, req.NumQuestions, files)
	if retry {
		body += "\n\n" + quizRetrySuffix
	}
	return quizSystemPrompt + "\n\n" + body
}

// DeckRequest describes one flashcard generation prompt.
type DeckRequest struct {
	ProjectID string
	DeckName  string
	Prompt    string
	Files     []string
}

func DeckPrompt(req DeckRequest, retry bool) string {
	var files strings.Builder
	if len(req.Files) == 0 {
		files.WriteString("- (none found)")
	}
	for i, name := range req.Files {
		if i > 0 {
			files.WriteString("\n")
		}
		files.WriteString("- " + name)
	}
	body := fmt.Sprintf(`Course: %s
Deck name: %s

User study prompt:
%s

Indexed file names (for context; retrieval uses the indexed docs automatically):
%s`, req.ProjectID, req.DeckName, req.Prompt, files.String())

	msg := flashcardSystemPrompt + "\n\n" + body
	if retry {
		msg = jsonOnlyPrefix + "\n\n" + msg
	}
	return msg
}

// DisplayName strips the upload id prefix ("<id>_name.pdf") from a stored path.
func DisplayName(path string) string {
	base := filepath.Base(filepath.ToSlash(path))
	if base == "." || base == "/" {
		return ""
	}
	if _, rest, ok := strings.Cut(base, "_"); ok {
		return rest
	}
	return base
}
