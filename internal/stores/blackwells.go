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

// Blackwells scrapes blackwells.co.uk. Product URLs follow the pattern
// /bookshop/product/Title-Slug/ISBN, so search candidates carry both a
// slug-derived title and the ISBN without visiting product pages.
type Blackwells struct{}

func (b *Blackwells) ID() string      { return "blackwells" }
func (b *Blackwells) Name() string    { return "Blackwells" }
func (b *Blackwells) BaseURL() string { return "https://blackwells.co.uk" }

func (b *Blackwells) Supports(mode book.Mode) bool { return true }

// Search result rows are product links; the ISBN is the last URL
// segment and the title comes from the slug before it.
const blackwellsExtractJS = `(() => {
	const rows = [];
	const seen = new Set();
	for (const a of document.querySelectorAll('a[href*="/bookshop/product/"]')) {
		const href = a.getAttribute('href');
		if (!href || seen.has(href)) continue;
		seen.add(href);
		const parts = href.replace(/\/+$/, '').split('/');
		if (parts.length < 2) continue;
		const isbn = parts[parts.length - 1];
		if (!/^[0-9Xx]{10,13}$/.test(isbn)) continue;
		rows.push({ href: href, isbn: isbn, title: parts[parts.length - 2], price: '' });
	}
	return rows;
})()`

func (b *Blackwells) Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error) {
	searchURL := fmt.Sprintf("%s/bookshop/search?keyword=%s", b.BaseURL(), url.QueryEscape(q.Text))
	if err := r.Navigate(ctx, searchURL); err != nil {
		return nil, errs.NewNetworkError(b.Name(), err)
	}

	empty, err := waitSearchOutcome(ctx, r, b.Name(),
		[]string{".search-result", ".book-info", ".product-info"},
		[]string{".search-no-results"})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	var rows []searchRow
	if err := r.Evaluate(ctx, blackwellsExtractJS, &rows); err != nil {
		return nil, errs.NewNetworkError(b.Name(), err)
	}
	if len(rows) == 0 {
		return nil, errs.NewExtractionError(b.Name(), "search results rendered but no product links parsed")
	}

	for i := range rows {
		rows[i].Title = slugToTitle(rows[i].Title)
	}
	return rowsToCandidates(b.BaseURL(), rows), nil
}

var blackwellsPriceRe = regexp.MustCompile(`\d+[.,]\d{2}€`)

// Ordered most specific first so "Save XX€" discount banners and RRP
// strikethroughs are not mistaken for the selling price.
const blackwellsPriceJS = `(() => {
	const sels = ['.product-price--current', '.product__price', '.product-price'];
	const texts = [];
	for (const sel of sels) {
		const el = document.querySelector(sel);
		if (el) texts.push(el.innerText.trim());
	}
	return texts;
})()`

func (b *Blackwells) Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error) {
	page, err := loadProductPage(ctx, r, b.Name(), link, "Accept All")
	if err != nil {
		return book.Candidate{}, err
	}

	var priceTexts []string
	if err := r.Evaluate(ctx, blackwellsPriceJS, &priceTexts); err != nil {
		return book.Candidate{}, errs.NewNetworkError(b.Name(), err)
	}

	return book.Candidate{
		Title: page.Title,
		Price: blackwellsPrice(priceTexts, page.Body),
		Link:  link,
		ISBN:  isbnFromURLTail(link),
	}, nil
}

// blackwellsPrice picks the selling price from the candidate selector
// texts, skipping "Save XX€" discount amounts, and falls back to the
// price printed above the add-to-basket button.
func blackwellsPrice(priceTexts []string, body string) string {
	for _, text := range priceTexts {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "save") {
			continue
		}
		if m := blackwellsPriceRe.FindString(text); m != "" {
			return m
		}
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Add to basket") {
			continue
		}
		for j := 1; j <= 4 && i-j >= 0; j++ {
			prev := strings.TrimSpace(lines[i-j])
			if blackwellsPriceRe.MatchString(prev) && blackwellsPriceRe.FindString(prev) == prev {
				return prev
			}
		}
	}

	return "N/A"
}
