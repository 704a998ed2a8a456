package study

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"copium-tutor/internal/model"
)

// MaxChoices is the number of choices kept for a multiple-choice question.
const MaxChoices = 4

// Accepted key aliases, in lookup order.
var (
	questionListKeys   = []string{"questions", "items"}
	answerMapKeys      = []string{"answers", "answer_key", "answerKey"}
	explanationMapKeys = []string{"explanations", "explanation"}
	nestedPayloadKeys  = []string{"quiz", "data"}
	promptKeys         = []string{"question", "prompt"}
	choiceListKeys     = []string{"choices", "options", "options_list"}
	choiceLabelKeys    = []string{"text", "option", "choice", "label", "value"}
	answerAliases      = []string{
		"answer", "correct", "correct_answer", "correctAnswer",
		"correct_index", "correctIndex", "correct_choice", "correctChoice",
	}
	explanationAliases = []string{"explanation", "rationale", "reasoning", "feedback"}
)

// RawQuizPayload is a decoded reply folded into one shape. Answers and
// Explanations may come from either a map or a list of {id, ...} objects.
type RawQuizPayload struct {
	Questions    []any
	Answers      map[string]any
	Explanations map[string]any
}

// ParseRawPayload accepts a bare question list or an object carrying the
// question list and the answer and explanation maps, optionally nested one
// level under "quiz" or "data".
func ParseRawPayload(v any) RawQuizPayload {
	switch p := v.(type) {
	case []any:
		return RawQuizPayload{Questions: p}
	case map[string]any:
		questions := firstTruthy(p, questionListKeys)
		answers := firstTruthy(p, answerMapKeys)
		explanations := firstTruthy(p, explanationMapKeys)
		if nested, ok := firstTruthy(p, nestedPayloadKeys).(map[string]any); ok {
			if !truthy(questions) {
				questions = firstTruthy(nested, questionListKeys)
			}
			if !truthy(answers) {
				answers = firstTruthy(nested, answerMapKeys)
			}
			if !truthy(explanations) {
				explanations = firstTruthy(nested, explanationMapKeys)
			}
		}
		list, _ := questions.([]any)
		return RawQuizPayload{
			Questions:    list,
			Answers:      foldByID(answers, "answer"),
			Explanations: foldByID(explanations, "explanation"),
		}
	default:
		return RawQuizPayload{}
	}
}

// foldByID turns either {id: value} or [{id, field}] into one id map.
func foldByID(v any, field string) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case []any:
		out := make(map[string]any, len(m))
		for _, item := range m {
			obj, ok := item.(map[string]any)
			if !ok || obj["id"] == nil {
				continue
			}
			out[stringify(obj["id"])] = obj[field]
		}
		return out
	default:
		return map[string]any{}
	}
}

// Normalized is the canonical quiz content. AnswerKey holds a choice index
// for mcq and trimmed text otherwise. Defaulted lists mcq questions whose
// answer could not be resolved and fell back to choice 0.
type Normalized struct {
	Questions    []model.Question
	AnswerKey    map[string]any
	Explanations map[string]string
	Defaulted    []string
}

// Normalize keeps at most limit usable questions of quizType from p in input
// order. Questions without prompt text, and mcq questions with fewer than two
// choices, are dropped and not replaced.
func Normalize(p RawQuizPayload, quizType string, limit int) Normalized {
	out := Normalized{
		AnswerKey:    map[string]any{},
		Explanations: map[string]string{},
	}
	sources := map[string]map[string]any{}

	for idx, raw := range p.Questions {
		if len(out.Questions) >= limit {
			break
		}
		q, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		prompt := strings.TrimSpace(stringify(firstTruthy(q, promptKeys)))
		if prompt == "" {
			continue
		}

		id := stringify(q["id"])
		if !truthy(q["id"]) || id == "" {
			id = fmt.Sprintf("q%d", idx+1)
		}
		if _, dup := sources[id]; dup {
			id = fmt.Sprintf("q%d", idx+1)
			if _, dup := sources[id]; dup {
				continue
			}
		}

		item := model.Question{ID: id, Type: quizType, Question: prompt}
		if quizType == model.QuizTypeMCQ {
			choices := normalizeChoices(firstTruthy(q, choiceListKeys))
			if len(choices) < 2 {
				continue
			}
			if len(choices) > MaxChoices {
				choices = choices[:MaxChoices]
			}
			item.Choices = choices
		}

		out.Questions = append(out.Questions, item)
		sources[id] = q
	}

	for _, q := range out.Questions {
		src := sources[q.ID]

		answer := p.Answers[q.ID]
		if answer == nil {
			answer = firstPresent(src, answerAliases)
		}
		if quizType == model.QuizTypeMCQ {
			idx, ok := ChoiceIndex(answer, q.Choices)
			if !ok {
				idx = 0
				out.Defaulted = append(out.Defaulted, q.ID)
			}
			out.AnswerKey[q.ID] = idx
		} else {
			out.AnswerKey[q.ID] = strings.TrimSpace(stringify(answer))
		}

		explanation := p.Explanations[q.ID]
		if explanation == nil {
			explanation = firstPresent(src, explanationAliases)
		}
		out.Explanations[q.ID] = strings.TrimSpace(stringify(explanation))
	}
	return out
}

func normalizeChoices(raw any) []string {
	switch v := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var values []string
		for _, k := range keys {
			if s := strings.TrimSpace(stringify(v[k])); s != "" {
				values = append(values, s)
			}
		}
		if len(values) > 0 {
			return values
		}
		var labels []string
		for _, k := range keys {
			if s := strings.TrimSpace(k); s != "" {
				labels = append(labels, s)
			}
		}
		return labels
	case []any:
		var out []string
		for _, choice := range v {
			value := choice
			if obj, ok := choice.(map[string]any); ok {
				value = firstTruthy(obj, choiceLabelKeys)
				if value == nil && len(obj) == 1 {
					for _, only := range obj {
						value = only
					}
				}
				if value == nil {
					continue
				}
			}
			if s := strings.TrimSpace(stringify(value)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		for _, sep := range []string{"\n", ";", ","} {
			var parts []string
			for _, part := range strings.Split(v, sep) {
				if s := strings.TrimSpace(part); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) >= 2 {
				return parts
			}
		}
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
		return nil
	default:
		return nil
	}
}

// ChoiceIndex resolves a raw answer to a zero-based index into choices.
// Numbers are taken as zero-based when in range and as one-based otherwise.
// A lone letter such as "B" or "b)" maps to its alphabet position. Anything
// else is compared case-insensitively with the choice texts.
func ChoiceIndex(answer any, choices []string) (int, bool) {
	if answer == nil || len(choices) == 0 {
		return 0, false
	}

	if n, ok := answer.(float64); ok {
		if idx, ok := indexFromNumber(n, len(choices)); ok {
			return idx, true
		}
	}

	text := strings.TrimSpace(stringify(answer))
	if text == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(text); err == nil {
		if idx, ok := indexFromNumber(float64(n), len(choices)); ok {
			return idx, true
		}
	}

	runes := []rune(text)
	first := unicode.ToUpper(runes[0])
	if first >= 'A' && first <= 'Z' && (len(runes) == 1 || !unicode.IsLetter(runes[1])) {
		if idx := int(first - 'A'); idx < len(choices) {
			return idx, true
		}
	}

	for i, choice := range choices {
		if strings.EqualFold(text, strings.TrimSpace(choice)) {
			return i, true
		}
	}
	return 0, false
}

func indexFromNumber(n float64, count int) (int, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	idx := int(n)
	if idx >= 0 && idx < count {
		return idx, true
	}
	if idx >= 1 && idx <= count {
		return idx - 1, true
	}
	return 0, false
}

// firstTruthy returns the first value under keys that is not null, empty or
// zero.
func firstTruthy(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v := m[k]; truthy(v) {
			return v
		}
	}
	return nil
}

// firstPresent returns the value of the first key present in m, even null.
func firstPresent(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
