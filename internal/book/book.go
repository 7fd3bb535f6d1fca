// Package book holds the shared data model: the search query, the raw
// scraped candidates and the normalized per-store result.
package book

import (
	"errors"
	"strings"
)

// Mode selects how a query is matched against store search results.
type Mode int

const (
	// ByTitle searches with free-form title text.
	ByTitle Mode = iota
	// ByISBN searches with a normalized ISBN-10 or ISBN-13.
	ByISBN
)

func (m Mode) String() string {
	if m == ByISBN {
		return "isbn"
	}
	return "title"
}

// Query is the immutable input for one search run.
// Text holds the title text in ByTitle mode and the normalized ISBN in
// ByISBN mode. An empty Stores slice means "all registered stores".
type Query struct {
	Mode   Mode
	Text   string
	Stores []string
}

// NewTitleQuery builds a title-mode query.
func NewTitleQuery(text string, stores []string) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, errors.New("title query must not be empty")
	}
	return Query{Mode: ByTitle, Text: text, Stores: stores}, nil
}

// NewISBNQuery builds an ISBN-mode query. The code is normalized to its
// bare 10 or 13 character form before being stored.
func NewISBNQuery(code string, stores []string) (Query, error) {
	normalized, err := NormalizeISBN(code)
	if err != nil {
		return Query{}, err
	}
	return Query{Mode: ByISBN, Text: normalized, Stores: stores}, nil
}

// Candidate is one raw result row scraped from a store's search output.
// Fields are best-effort: Price and ISBN may be empty, Link may be
// relative to the store origin. Candidates never travel past the matcher.
type Candidate struct {
	Title string
	Price string
	Link  string
	ISBN  string
}

// WellFormed reports whether the candidate carries enough data to be
// worth selecting: a link plus either a title or an ISBN.
func (c Candidate) WellFormed() bool {
	return c.Link != "" && (c.Title != "" || c.ISBN != "")
}

// Result is the normalized output record for one store. Price stays in
// the store's own formatting (stores use different currencies and
// separators, so no canonical numeric form exists). The JSON field set
// is the compatibility contract with downstream consumers.
type Result struct {
	Store string  `json:"store"`
	Title string  `json:"title"`
	Price string  `json:"price"`
	URL   string  `json:"url"`
	ISBN  *string `json:"isbn"`
}

// FailureKind classifies why a store produced no result.
type FailureKind string

const (
	// FailUnsupportedQueryMode means the adapter cannot perform the
	// requested search type.
	FailUnsupportedQueryMode FailureKind = "unsupported-query-mode"
	// FailNetworkOrTimeout means a transport failure or exceeded time
	// budget, after the retry budget was spent.
	FailNetworkOrTimeout FailureKind = "network-or-timeout"
	// FailExtractionMismatch means the page no longer matches the
	// adapter's extraction rules. Distinct from zero results: it signals
	// an upstream site change.
	FailExtractionMismatch FailureKind = "extraction-mismatch"
)

// FailureRecord reports one store that errored out. Failures are never
// fatal to the overall run.
type FailureRecord struct {
	Store string
	Kind  FailureKind
	Err   error
}
