package match

import (
	"strings"

	"github.com/lepinkainen/bookscout/internal/book"
)

// DefaultSelfPubPenalty is the score multiplier for 979-8 prefixed
// ISBNs. The 979-8 prefix is assigned to self-published print runs,
// which is where mass-produced knockoffs of popular titles live; a
// penalty below 1.0 keeps them from outvoting the real edition. Set to
// 1.0 to disable.
const DefaultSelfPubPenalty = 0.3

// CanonicalISBN picks the most plausible ISBN for a title query from
// every store's candidate list. Each distinct ISBN scores 1/position
// per store (earlier rows count more), summed across stores with the
// self-publish penalty applied. Ties break by first appearance across
// the store lists, so the vote is deterministic. Returns "" when no
// candidate exposes an ISBN.
func CanonicalISBN(storeCandidates [][]book.Candidate, selfPubPenalty float64) string {
	if selfPubPenalty <= 0 {
		selfPubPenalty = DefaultSelfPubPenalty
	}

	scores := make(map[string]float64)
	var order []string

	for _, candidates := range storeCandidates {
		seen := make(map[string]struct{})
		for position, c := range candidates {
			if c.ISBN == "" {
				continue
			}
			normalized, err := book.NormalizeISBN(c.ISBN)
			if err != nil {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}

			if _, known := scores[normalized]; !known {
				order = append(order, normalized)
			}
			scores[normalized] += 1.0 / float64(position+1)
		}
	}

	if len(scores) == 0 {
		return ""
	}

	for isbn := range scores {
		if strings.HasPrefix(isbn, "9798") {
			scores[isbn] *= selfPubPenalty
		}
	}

	best := ""
	bestScore := -1.0
	for _, isbn := range order {
		if scores[isbn] > bestScore {
			best = isbn
			bestScore = scores[isbn]
		}
	}
	return best
}
