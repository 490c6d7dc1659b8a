package market

import (
	"strings"
	"unicode"
)

const maxKeywords = 5

var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "from": {}, "through": {}, "their": {}, "they": {},
	"them": {}, "into": {}, "your": {}, "have": {}, "will": {}, "help": {}, "helps": {},
	"people": {}, "using": {}, "about": {}, "which": {}, "where": {}, "when": {}, "what": {},
	"build": {}, "create": {}, "make": {}, "idea": {}, "startup": {}, "business": {},
	"platform": {}, "app": {}, "tool": {}, "service": {}, "find": {}, "like": {},
}

// Keywords picks up to five distinct lowercase search terms from idea
func Keywords(idea string) []string {
	words := strings.FieldsFunc(strings.ToLower(idea), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})

	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len(w) < 4 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
