package provider

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"grants_fetcher/internal/domain"
)

// Shared normalization helpers. Providers call these from Transform; the
// lookup tables and field wiring stay provider-specific.

// ParseAmount reads a monetary amount that may carry currency symbols,
// grouping separators or whitespace. Missing, unparseable and non-positive
// amounts come back as nil.
func ParseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '$', r == '€', r == '£':
			// grouping or currency noise
		default:
			return nil
		}
	}

	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// Amount converts a numeric amount, treating zero and negatives as absent.
func Amount(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 02, 2006",
}

// ParseDate tries the date layouts seen across providers and returns the
// parsed time in UTC, or nil when nothing matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// MapStatus translates a provider status code through the provider's lookup
// table. Unknown and absent codes default to active.
func MapStatus(table map[string]domain.GrantStatus, raw string) domain.GrantStatus {
	if status, ok := table[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}
	return domain.StatusActive
}

// OptString returns nil for empty strings so optional columns stay NULL.
func OptString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "will": {}, "are": {}, "not": {}, "its": {}, "their": {},
	"through": {}, "under": {}, "into": {}, "other": {}, "than": {},
	"been": {}, "have": {}, "has": {}, "must": {}, "may": {}, "all": {},
	"any": {}, "such": {}, "who": {}, "which": {}, "these": {}, "those": {},
	"per": {}, "via": {}, "within": {}, "about": {}, "more": {}, "most": {},
}

const titleWeight = 3.0

// ExtractKeywords pulls keywords from a grant's title and description,
// scores them by weighted term frequency (title terms count more) and keeps
// the domain.MaxKeywords most relevant, most-relevant first.
func ExtractKeywords(title, description string) []domain.Keyword {
	scores := make(map[string]float64)

	for _, tok := range tokenize(title) {
		scores[tok] += titleWeight
	}
	for _, tok := range tokenize(description) {
		scores[tok]++
	}

	keywords := make([]domain.Keyword, 0, len(scores))
	for text, score := range scores {
		keywords = append(keywords, domain.Keyword{Text: text, Relevance: score})
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Relevance != keywords[j].Relevance {
			return keywords[i].Relevance > keywords[j].Relevance
		}
		return keywords[i].Text < keywords[j].Text
	})

	if len(keywords) > domain.MaxKeywords {
		keywords = keywords[:domain.MaxKeywords]
	}
	return keywords
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		if isNumeric(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
