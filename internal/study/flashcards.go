package study

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinCards          = 10
	MaxCards          = 20
	DefaultConfidence = 25

	externalNote = "General knowledge (not found in course docs)."
	templateNote = "General study template (not found in course docs)."
	templateBack = "Write a concise explanation and one example from your notes."

	warnInvalidJSON = "Model did not return valid JSON; padded with generic cards."
	warnPadded      = "Some cards were padded with general study templates."
)

type DeckMode string

const (
	ModeGrounded     DeckMode = "grounded"
	ModeMixed        DeckMode = "mixed"
	ModeExternalOnly DeckMode = "external_only"
)

type Flashcard struct {
	Front    string
	Back     string
	External bool
	Note     string
}

// StoredBack is the back text as persisted: external cards carry their note.
func (c Flashcard) StoredBack() string {
	if !c.External {
		return c.Back
	}
	return c.Back + "\n\n[External] " + c.Note
}

type DeckDraft struct {
	Mode       DeckMode
	Confidence int
	Cards      []Flashcard
	Warning    string
}

// CleanDeck validates a decoded flashcard reply. A nil reply means the model
// never produced a JSON object. The result always holds between MinCards and
// MaxCards cards; missing ones are study templates.
func CleanDeck(reply map[string]any) DeckDraft {
	draft := DeckDraft{Mode: ModeExternalOnly, Confidence: DefaultConfidence}

	var rawCards []any
	if reply == nil {
		draft.Warning = warnInvalidJSON
		draft.Confidence = 20
	} else {
		draft.Mode = parseMode(reply["mode"])
		draft.Confidence = parseConfidence(reply["confidence"])
		rawCards, _ = reply["cards"].([]any)
	}

	if len(rawCards) > MaxCards {
		rawCards = rawCards[:MaxCards]
	}
	for _, raw := range rawCards {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		front := strings.TrimSpace(stringify(obj["front"]))
		back := strings.TrimSpace(stringify(obj["back"]))
		if front == "" || back == "" {
			continue
		}
		external := true
		if v, ok := obj["external"]; ok && v != nil {
			external = truthy(v)
		}
		note := strings.TrimSpace(stringify(obj["note"]))
		if external && note == "" {
			note = externalNote
		}
		draft.Cards = append(draft.Cards, Flashcard{Front: front, Back: back, External: external, Note: note})
	}

	for len(draft.Cards) < MinCards {
		draft.Cards = append(draft.Cards, Flashcard{
			Front:    fmt.Sprintf("Key idea #%d", len(draft.Cards)+1),
			Back:     templateBack,
			External: true,
			Note:     templateNote,
		})
		draft.Confidence = min(draft.Confidence, DefaultConfidence)
		if draft.Warning == "" {
			draft.Warning = warnPadded
		}
	}
	return draft
}

func parseMode(v any) DeckMode {
	mode := DeckMode(strings.ToLower(strings.TrimSpace(stringify(v))))
	switch mode {
	case ModeGrounded, ModeMixed, ModeExternalOnly:
		return mode
	default:
		return ModeExternalOnly
	}
}

func parseConfidence(v any) int {
	confidence := DefaultConfidence
	switch t := v.(type) {
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			confidence = int(t)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			confidence = n
		}
	}
	return max(0, min(100, confidence))
}
