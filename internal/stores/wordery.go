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

// Wordery scrapes wordery.com. Product URLs follow the pattern
// /book/{title}/{author}/{isbn}; anchor href attributes are often empty
// or anchor-only, so extraction reads the resolved a.href instead.
type Wordery struct{}

func (w *Wordery) ID() string      { return "wordery" }
func (w *Wordery) Name() string    { return "Wordery" }
func (w *Wordery) BaseURL() string { return "https://wordery.com" }

func (w *Wordery) Supports(mode book.Mode) bool { return true }

const worderyExtractJS = `(() => {
	const rows = [];
	const seen = new Set();
	for (const a of document.querySelectorAll('a')) {
		let href = a.href;
		if (!href || !href.includes('/book/')) continue;
		href = href.replace(/#.*$/, '');
		if (seen.has(href)) continue;
		const parts = href.replace(/\/+$/, '').split('/');
		const isbn = parts[parts.length - 1];
		if (!isbn || isbn.length < 10 || !/^[0-9Xx]+$/.test(isbn)) continue;
		seen.add(href);
		const title = parts.length >= 3 ? parts[parts.length - 3] : '';
		rows.push({ href: href, isbn: isbn, title: title, price: '' });
	}
	return rows;
})()`

func (w *Wordery) Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error) {
	searchURL := fmt.Sprintf("%s/search?term=%s", w.BaseURL(), url.QueryEscape(q.Text))
	if err := r.Navigate(ctx, searchURL); err != nil {
		return nil, errs.NewNetworkError(w.Name(), err)
	}

	dismissConsent(ctx, r, "Accept All")

	empty, err := waitSearchOutcome(ctx, r, w.Name(),
		[]string{`a[href*="/book/"]`, ".c-book-list"},
		[]string{".c-empty-results", ".search-no-results"})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	var rows []searchRow
	if err := r.Evaluate(ctx, worderyExtractJS, &rows); err != nil {
		return nil, errs.NewNetworkError(w.Name(), err)
	}
	if len(rows) == 0 {
		return nil, errs.NewExtractionError(w.Name(), "book list rendered but no product links parsed")
	}

	for i := range rows {
		rows[i].Title = slugToTitle(rows[i].Title)
	}
	return rowsToCandidates(w.BaseURL(), rows), nil
}

var worderyPriceRe = regexp.MustCompile(`£\d+[.,]\d{2}`)

func (w *Wordery) Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error) {
	page, err := loadProductPage(ctx, r, w.Name(), link, "Accept All")
	if err != nil {
		return book.Candidate{}, err
	}

	// The first £ amount on a product page is the selling price.
	price := worderyPriceRe.FindString(page.Body)
	if price == "" {
		price = "N/A"
	}

	return book.Candidate{
		Title: strings.TrimSpace(page.Title),
		Price: price,
		Link:  link,
		ISBN:  isbnFromURLTail(link),
	}, nil
}
