package study

import (
	"regexp"
	"strconv"
	"strings"

	"copium-tutor/internal/model"
)

const (
	ShortAnswerThreshold = 0.6
	LongAnswerThreshold  = 0.4
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Grade scores submitted answers against the quiz's stored answer key. It
// reads the quiz and never modifies it.
func Grade(quiz *model.Quiz, answers map[string]any) (int, map[string]model.QuestionFeedback) {
	score := 0
	feedback := make(map[string]model.QuestionFeedback, len(quiz.Questions.Questions))

	for _, q := range quiz.Questions.Questions {
		if q.ID == "" {
			continue
		}
		expected := quiz.AnswerKey[q.ID]
		response := answers[q.ID]

		var correct bool
		if quiz.QuizType == model.QuizTypeMCQ {
			want, okWant := asInt(expected)
			got, okGot := asInt(response)
			correct = okWant && okGot && want == got
		} else {
			expectedText := strings.TrimSpace(stringify(expected))
			responseText := strings.TrimSpace(stringify(response))
			threshold := LongAnswerThreshold
			if quiz.QuizType == model.QuizTypeShort {
				threshold = ShortAnswerThreshold
			}
			correct = TokenOverlap(expectedText, responseText) >= threshold
			expected, response = expectedText, responseText
		}

		if correct {
			score++
		}
		feedback[q.ID] = model.QuestionFeedback{
			Correct:     correct,
			Expected:    expected,
			Response:    response,
			Explanation: quiz.Explanations[q.ID],
		}
	}
	return score, feedback
}

// TokenOverlap is the share of distinct expected tokens that also appear in
// actual. It is 0 when expected has no tokens.
func TokenOverlap(expected, actual string) float64 {
	want := tokenSet(expected)
	if len(want) == 0 {
		return 0
	}
	got := tokenSet(actual)
	matches := 0
	for token := range want {
		if _, ok := got[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(want))
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		set[token] = struct{}{}
	}
	return set
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
