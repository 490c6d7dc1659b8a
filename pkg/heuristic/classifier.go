package heuristic

import (
	"strings"
	"unicode"
)

// Classifier decides locally whether text plausibly describes a business idea.
// It never touches the network and is safe for concurrent use.
type Classifier struct {
	minLength int
	keywords  []string
}

// NewClassifier creates a Classifier from cfg
func NewClassifier(cfg Config) *Classifier {
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &Classifier{
		minLength: cfg.MinLength,
		keywords:  keywords,
	}
}

// LooksLikeIdea returns true when the trimmed text is longer than the minimum
// length and at least one word starts with a keyword ("builds", "platforms").
func (c *Classifier) LooksLikeIdea(text string) bool {
	text = strings.TrimSpace(text)
	if len([]rune(text)) <= c.minLength {
		return false
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		for _, kw := range c.keywords {
			if strings.HasPrefix(word, kw) {
				return true
			}
		}
	}

	return false
}
