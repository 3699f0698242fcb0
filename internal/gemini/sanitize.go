package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// MaxDescriptionLength is the maximum allowed length for expense descriptions.
const MaxDescriptionLength = 200

// MaxMessageLength caps a chat message embedded in a prompt.
const MaxMessageLength = 2000

const maxCategoryNameLength = 50

// SanitizeForPrompt makes user input safe to embed in a prompt. Quotes are
// neutralised, control characters dropped, whitespace collapsed, and the
// result truncated to maxLength runes.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.NewReplacer(`"`, `'`, "`", "'").Replace(input)
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)
	input = strings.Join(strings.Fields(input), " ")

	if maxLength >= 0 {
		if runes := []rune(input); len(runes) > maxLength {
			input = strings.TrimSpace(string(runes[:maxLength]))
		}
	}
	return input
}

// SanitizeCategoryName sanitizes a category name for embedding in prompts.
func SanitizeCategoryName(name string) string {
	return SanitizeForPrompt(name, maxCategoryNameLength)
}

func sanitizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if s := SanitizeCategoryName(c); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitizeReasoning cleans model-provided reasoning before it is returned to callers.
func sanitizeReasoning(reasoning string) string {
	return SanitizeForPrompt(reasoning, 500)
}

// hashText returns a short digest of text for logs.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

// extractJSON returns the outermost JSON object in text, dropping any
// preamble or code fences the model wrapped around it.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// matchCategory returns the entry of categories equal to name ignoring case.
func matchCategory(name string, categories []string) (string, bool) {
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(name), c) {
			return c, true
		}
	}
	return "", false
}
