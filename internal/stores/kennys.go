package stores

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lepinkainen/bookscout/internal/book"
	"github.com/lepinkainen/bookscout/internal/browser"
	errs "github.com/lepinkainen/bookscout/internal/errors"
)

// Kennys scrapes kennys.ie. The search UI is a SPA on /elasticsearch
// that reacts to a hash fragment, so the adapter navigates first and
// then sets the hash to trigger the query.
type Kennys struct{}

func (k *Kennys) ID() string      { return "kennys" }
func (k *Kennys) Name() string    { return "Kennys" }
func (k *Kennys) BaseURL() string { return "https://www.kennys.ie" }

func (k *Kennys) Supports(mode book.Mode) bool { return true }

// Product URLs end in the ISBN, optionally with an edition suffix
// (…-9780008560133 or …-9780008560133-1).
const kennysExtractJS = `(() => {
	const rows = [];
	const seen = new Set();
	for (const a of document.querySelectorAll('.result-title a[href], .search-result a[href]')) {
		const href = a.href;
		if (!href || seen.has(href) || !href.includes('kennys.ie')) continue;
		seen.add(href);
		const m = href.match(/-(\d{10,13})(-\d)?$/);
		const parts = href.replace(/\/+$/, '').split('/');
		const slug = parts[parts.length - 1].replace(/-\d{10,13}(-\d)?$/, '');
		rows.push({ href: href, isbn: m ? m[1] : '', title: slug, price: '' });
	}
	return rows;
})()`

func (k *Kennys) Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error) {
	if err := r.Navigate(ctx, k.BaseURL()+"/elasticsearch"); err != nil {
		return nil, errs.NewNetworkError(k.Name(), err)
	}

	hashJS := fmt.Sprintf(`window.location.hash = "ges:searchword=%s"`, jsEscape(q.Text))
	var ignored string
	if err := r.Evaluate(ctx, hashJS, &ignored); err != nil {
		return nil, errs.NewNetworkError(k.Name(), err)
	}

	empty, err := waitSearchOutcome(ctx, r, k.Name(),
		[]string{".result-title", ".search-result"},
		[]string{".ges-no-results", ".no-results"})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	var rows []searchRow
	if err := r.Evaluate(ctx, kennysExtractJS, &rows); err != nil {
		return nil, errs.NewNetworkError(k.Name(), err)
	}
	if len(rows) == 0 {
		return nil, errs.NewExtractionError(k.Name(), "result titles rendered but no product links parsed")
	}

	for i := range rows {
		rows[i].Title = slugToTitle(rows[i].Title)
	}
	return rowsToCandidates(k.BaseURL(), rows), nil
}

var (
	kennysPriceRe   = regexp.MustCompile(`€\s*\d+[.,]\d{2}`)
	kennysURLISBNRe = regexp.MustCompile(`-(\d{10,13})(-\d)?$`)
)

func (k *Kennys) Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error) {
	page, err := loadProductPage(ctx, r, k.Name(), link, "")
	if err != nil {
		return book.Candidate{}, err
	}

	title := page.Title
	// Some Kennys product pages have no h1; the document title carries
	// "Book Name - Kennys" instead.
	if before, _, found := strings.Cut(title, " - "); found {
		title = before
	}

	isbn := isbnFromBody(page.Body)
	if isbn == "" {
		if m := kennysURLISBNRe.FindStringSubmatch(link); m != nil {
			isbn = m[1]
		}
	}

	return book.Candidate{
		Title: strings.TrimSpace(title),
		Price: kennysPrice(page.Body),
		Link:  link,
		ISBN:  isbn,
	}, nil
}

// kennysPrice scans body text for "€ XX.XX" amounts. Values of €100 and
// up are filter labels, not prices. When both an RRP and a sale price
// appear the sale price comes second.
func kennysPrice(body string) string {
	var valid []string
	for _, match := range kennysPriceRe.FindAllString(body, -1) {
		raw := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(match, "€"), ",", "."))
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil || amount >= 100 {
			continue
		}
		valid = append(valid, match)
	}

	switch {
	case len(valid) >= 2:
		return valid[1]
	case len(valid) == 1:
		return valid[0]
	default:
		return "N/A"
	}
}

// jsEscape keeps user text safe inside a double-quoted JS string.
func jsEscape(s string) string {
	quoted := strconv.Quote(s)
	return quoted[1 : len(quoted)-1]
}
