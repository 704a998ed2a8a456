package study

import (
	"regexp"
	"strings"
	"unicode"
)

const chatSystemPrompt = `You are Copium Tutor: a smart teaching assistant for this course.

Goals:
- Help the student understand assignments, problems, and concepts.
- Be rigorous and clear. Show steps.
- If course documents are relevant, prioritize them.
- You are allowed to use external knowledge as well.
- Always be friendly and encouraging.
- If you are unsure, ask a focused follow-up question.
- When helpful, give a short answer first, then a deeper explanation. Please don't make it too lengthy.

Style:
- Use headings and bullet points.
- Provide small examples when relevant.`

// DefaultChatTitle is the title of a chat nobody named yet.
const DefaultChatTitle = "New chat"

const chatTitleLimit = 60

var (
	codeBlockPattern   = regexp.MustCompile("```[\\s\\S]*?```")
	whitespacePattern  = regexp.MustCompile(`\s+`)
	leadingFillPattern = regexp.MustCompile(`(?i)^(please|can you|could you|help me|i need|i want to)\s+`)

	placeholderTitles = map[string]bool{"": true, "new chat": true, "untitled": true, "chat": true}
)

// ChatPrompt builds the message for one chat turn. The chat title tags the
// turn so the shared project memory keeps conversations apart.
func ChatPrompt(chatTitle, content string) string {
	return chatSystemPrompt + "\n\n[Chat: " + chatTitle + "] " + content
}

// IsPlaceholderTitle reports whether title is one a user would not have
// chosen on purpose.
func IsPlaceholderTitle(title string) bool {
	return placeholderTitles[strings.ToLower(strings.TrimSpace(title))]
}

// ChatTitle derives a short title from the first message of a chat without
// asking the model.
func ChatTitle(text string) string {
	t := strings.TrimSpace(text)
	t = strings.TrimSpace(codeBlockPattern.ReplaceAllString(t, ""))
	t = strings.TrimSpace(whitespacePattern.ReplaceAllString(t, " "))
	t = strings.TrimSpace(leadingFillPattern.ReplaceAllString(t, ""))

	if runes := []rune(t); len(runes) > chatTitleLimit {
		cut := string(runes[:chatTitleLimit])
		if i := strings.LastIndex(cut, " "); i >= 0 {
			cut = cut[:i]
		}
		t = cut + "…"
	}

	words := strings.Split(t, " ")
	for i, w := range words {
		if isAcronym(w) {
			continue
		}
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	t = strings.Join(words, " ")

	if t == "" {
		return DefaultChatTitle
	}
	return t
}

func isAcronym(w string) bool {
	if len([]rune(w)) > 5 {
		return false
	}
	upper := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper = true
		}
	}
	return upper
}
