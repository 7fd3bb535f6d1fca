// Package match selects the best candidate for a query. Select is a
// pure function: identical inputs always yield the identical choice,
// which is what makes whole runs deterministic.
package match

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/lepinkainen/bookscout/internal/book"
)

// DefaultThreshold is the minimum fraction of query words that must
// appear in a candidate title. The exact value is a documented policy
// choice, not an upstream requirement; it is configurable via
// matcher.threshold.
const DefaultThreshold = 0.5

// Matcher scores candidates against a query.
type Matcher struct {
	threshold float64
}

// New creates a Matcher. A non-positive threshold falls back to
// DefaultThreshold.
func New(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{threshold: threshold}
}

// Select picks the best candidate for the query or reports none. A
// "none" outcome is normal (book not found at that store), not an error.
func (m Matcher) Select(q book.Query, candidates []book.Candidate) (book.Candidate, bool) {
	if q.Mode == book.ByISBN {
		return selectByISBN(q.Text, candidates)
	}
	return m.selectByTitle(q.Text, candidates)
}

// selectByISBN requires an exact match after separator normalization.
// When no candidate exposes an ISBN at all, the first well-formed
// candidate is accepted: stores answering an ISBN search are assumed to
// return the intended book. This fallback is deliberate policy, not an
// accident; it never applies while any candidate carries an ISBN.
func selectByISBN(isbn string, candidates []book.Candidate) (book.Candidate, bool) {
	anyISBN := false
	for _, c := range candidates {
		if !c.WellFormed() || c.ISBN == "" {
			continue
		}
		anyISBN = true
		normalized, err := book.NormalizeISBN(c.ISBN)
		if err != nil {
			continue
		}
		if normalized == isbn {
			return c, true
		}
	}

	if !anyISBN {
		for _, c := range candidates {
			if c.WellFormed() {
				return c, true
			}
		}
	}

	return book.Candidate{}, false
}

// selectByTitle scores every candidate and keeps the highest score at
// or above the threshold. Ties break in adapter order: the first of
// equal scores wins.
func (m Matcher) selectByTitle(query string, candidates []book.Candidate) (book.Candidate, bool) {
	var (
		best      book.Candidate
		bestScore = -1.0
	)
	for _, c := range candidates {
		if !c.WellFormed() || c.Title == "" {
			continue
		}
		score := TitleScore(c.Title, query)
		if score >= m.threshold && score > bestScore {
			best = c
			bestScore = score
		}
	}
	if bestScore < 0 {
		return book.Candidate{}, false
	}
	return best, true
}

// TitleScore rates how well a candidate title matches the query text.
// The base score is word-set overlap: the fraction of query words that
// appear in the title, case-insensitive. A title that contains the
// whole query as an in-order subsequence scores a full 1.0 regardless
// of extra words ("Atomic Habits: An Easy Way..." fully matches
// "Atomic Habits"). Both components are monotonic in overlap.
func TitleScore(title, query string) float64 {
	queryWords := tokenize(query)
	if len(queryWords) == 0 {
		return 1.0
	}

	if fuzzy.MatchNormalizedFold(query, title) {
		return 1.0
	}

	titleWords := tokenize(title)
	matched := 0
	for word := range queryWords {
		if _, ok := titleWords[word]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}

// tokenize lowercases text and splits it into its alphanumeric words.
func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
