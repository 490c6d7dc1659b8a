package heuristic

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// TrickeryDetector matches user input that tries to manipulate the assistant
type TrickeryDetector struct {
	patterns []*regexp.Regexp
}

// NewTrickeryDetector compiles the trickery patterns of cfg (case-insensitive)
func NewTrickeryDetector(cfg Config) (*TrickeryDetector, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.TrickeryPatterns))
	for _, p := range cfg.TrickeryPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid trickery pattern", goerr.V("pattern", p))
		}
		patterns = append(patterns, re)
	}

	return &TrickeryDetector{patterns: patterns}, nil
}

// IsTrickery reports whether text matches any trickery pattern
func (d *TrickeryDetector) IsTrickery(text string) bool {
	for _, re := range d.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
