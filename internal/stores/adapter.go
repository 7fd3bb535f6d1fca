// Package stores implements one adapter per supported bookstore. All
// store-specific behavior (search URLs, interaction scripts, extraction
// rules, price formats) lives here; the orchestrator treats adapters
// uniformly through the Adapter interface.
package stores

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/lepinkainen/bookscout/internal/book"
	"github.com/lepinkainen/bookscout/internal/browser"
	errs "github.com/lepinkainen/bookscout/internal/errors"
)

// maxCandidates bounds how many result rows an adapter extracts from a
// search page.
const maxCandidates = 15

// Adapter is the per-store capability set: metadata, a search step that
// produces raw candidates from the store's search output, and a detail
// step that completes the fields of one chosen candidate from its
// product page.
type Adapter interface {
	// ID is the registry identifier used in --store flags ("blackwells").
	ID() string
	// Name is the display name used in results ("Blackwells").
	Name() string
	// BaseURL is the store origin relative links resolve against.
	BaseURL() string
	// Supports reports whether the adapter can run the given query mode.
	Supports(mode book.Mode) bool
	// Search drives the renderer through the store's search flow and
	// extracts a bounded list of candidate rows. An empty slice with a
	// nil error means the store genuinely has no results.
	Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error)
	// Details visits one candidate's product page and returns the
	// completed candidate (title, price text, ISBN when exposed).
	Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error)
}

// All returns the registered adapters in registration order. Output
// ordering of results follows this order.
func All() []Adapter {
	return []Adapter{
		&Blackwells{},
		&Kennys{},
		&Libristo{},
		&Wordery{},
	}
}

// searchRow is the shape each adapter's extraction script returns per
// result row. Fields are best-effort.
type searchRow struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	ISBN  string `json:"isbn"`
	Price string `json:"price"`
}

// resolveLink turns a possibly relative href into an absolute URL on
// the store origin.
func resolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// rowsToCandidates converts extraction rows into candidates, resolving
// links and dropping rows without one. ISBN values that do not look like
// an ISBN are cleared rather than propagated.
func rowsToCandidates(base string, rows []searchRow) []book.Candidate {
	candidates := make([]book.Candidate, 0, len(rows))
	for _, row := range rows {
		link := resolveLink(base, row.Href)
		if link == "" {
			continue
		}
		isbn := strings.TrimSpace(row.ISBN)
		if isbn != "" && !book.LooksLikeISBN(isbn) {
			isbn = ""
		}
		candidates = append(candidates, book.Candidate{
			Title: strings.TrimSpace(row.Title),
			Price: strings.TrimSpace(row.Price),
			Link:  link,
			ISBN:  isbn,
		})
		if len(candidates) == maxCandidates {
			break
		}
	}
	return candidates
}

// waitSearchOutcome waits until the search page reaches a recognizable
// state: a results area, or an explicit empty state. It returns
// empty=true for the latter. A timeout before either appears is a
// network failure, not an extraction mismatch.
func waitSearchOutcome(ctx context.Context, r browser.Renderer, store string, resultSels, emptySels []string) (empty bool, err error) {
	sels := append(append([]string{}, resultSels...), emptySels...)
	matched, err := r.WaitVisibleAny(ctx, sels...)
	if err != nil {
		return false, errs.NewNetworkError(store, err)
	}
	for _, sel := range emptySels {
		if matched == sel {
			return true, nil
		}
	}
	return false, nil
}

// dismissConsent clicks a cookie-consent button when one is present.
// Consent banners are best-effort: failures are ignored.
func dismissConsent(ctx context.Context, r browser.Renderer, label string) {
	js := fmt.Sprintf(`(() => {
		const btn = Array.from(document.querySelectorAll('button'))
			.find(b => b.textContent.trim().startsWith(%q));
		if (btn) { btn.click(); return true; }
		return false;
	})()`, label)
	var clicked bool
	_ = r.Evaluate(ctx, js, &clicked)
}

// productPage is the raw material Details implementations extract their
// fields from: the page heading (or document title) plus the full body
// text for regex-based price and ISBN recovery.
type productPage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

const productPageJS = `(() => {
	const h1 = document.querySelector('h1');
	return {
		title: h1 ? h1.innerText.trim() : document.title,
		body: document.body ? document.body.innerText : '',
	};
})()`

// loadProductPage navigates to a product URL and captures its heading
// and body text. label is the consent button label to dismiss, empty to
// skip.
func loadProductPage(ctx context.Context, r browser.Renderer, store, url, label string) (productPage, error) {
	var page productPage
	if err := r.Navigate(ctx, url); err != nil {
		return page, errs.NewNetworkError(store, err)
	}
	if label != "" {
		dismissConsent(ctx, r, label)
	}
	if _, err := r.WaitVisibleAny(ctx, "h1", "body"); err != nil {
		return page, errs.NewNetworkError(store, err)
	}
	if err := r.Evaluate(ctx, productPageJS, &page); err != nil {
		return page, errs.NewNetworkError(store, err)
	}
	if page.Title == "" && page.Body == "" {
		return page, errs.NewExtractionError(store, "product page rendered without title or body text")
	}
	return page, nil
}

var isbnLabelRe = regexp.MustCompile(`(?i)(?:ISBN|EAN)[:\s]*(\d{10,13})`)

// isbnFromBody pulls an ISBN out of loose page text via its label.
func isbnFromBody(body string) string {
	if m := isbnLabelRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// isbnFromURLTail returns the last path segment when it looks like an
// ISBN. Several stores put the ISBN at the end of product URLs.
func isbnFromURLTail(link string) string {
	parts := strings.Split(strings.TrimRight(link, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	tail := parts[len(parts)-1]
	if book.LooksLikeISBN(tail) {
		return tail
	}
	return ""
}

// slugToTitle makes a URL slug readable for matching purposes.
func slugToTitle(slug string) string {
	slug = strings.ReplaceAll(slug, "-by-", " ")
	return strings.ReplaceAll(slug, "-", " ")
}
