package validation

import (
	"strings"
)

const maxPreviewRunes = 120

// Preview normalizes an accepted submission into the idea reference used by
// later turns: whitespace is collapsed and the text is cut to its first
// sentence, or to maxPreviewRunes with an ellipsis.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	if end := sentenceEnd(text); end > 0 && len([]rune(text[:end])) <= maxPreviewRunes {
		return text[:end]
	}

	runes := []rune(text)
	if len(runes) <= maxPreviewRunes {
		return text
	}

	return strings.TrimRight(string(runes[:maxPreviewRunes-1]), " ,;:") + "…"
}

// sentenceEnd returns the byte offset just past the first sentence terminator
// that is followed by a space, or 0 if there is none.
func sentenceEnd(text string) int {
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return 0
}
