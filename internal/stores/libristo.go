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

// Libristo scrapes libristo.eu (English storefront). Prices are in euro
// with the symbol on either side of the amount, and product pages label
// the ISBN as EAN.
type Libristo struct{}

func (l *Libristo) ID() string      { return "libristo" }
func (l *Libristo) Name() string    { return "Libristo" }
func (l *Libristo) BaseURL() string { return "https://www.libristo.eu" }

func (l *Libristo) Supports(mode book.Mode) bool { return true }

// Product links use localized path segments; category and search links
// under the same segments are navigation, not results.
const libristoExtractJS = `(() => {
	const rows = [];
	const seen = new Set();
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href');
		if (!href) continue;
		if (!href.includes('/book/') && !href.includes('/kniha/') && !href.includes('/buch/')) continue;
		if (href.includes('/book/category') || href.includes('/book/search')) continue;
		if (seen.has(href)) continue;
		seen.add(href);
		const m = href.match(/(\d{13}|\d{10})/);
		const title = a.innerText ? a.innerText.trim() : '';
		rows.push({ href: href, isbn: m ? m[1] : '', title: title, price: '' });
	}
	return rows;
})()`

func (l *Libristo) Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error) {
	searchURL := fmt.Sprintf("%s/en/search?q=%s", l.BaseURL(), url.QueryEscape(q.Text))
	if err := r.Navigate(ctx, searchURL); err != nil {
		return nil, errs.NewNetworkError(l.Name(), err)
	}

	dismissConsent(ctx, r, "Accept")

	empty, err := waitSearchOutcome(ctx, r, l.Name(),
		[]string{`a[href*="/book/"]`, `a[href*="/kniha/"]`, `a[href*="/buch/"]`},
		[]string{".search-empty", ".no-results"})
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	var rows []searchRow
	if err := r.Evaluate(ctx, libristoExtractJS, &rows); err != nil {
		return nil, errs.NewNetworkError(l.Name(), err)
	}
	if len(rows) == 0 {
		return nil, errs.NewExtractionError(l.Name(), "book links rendered but none parsed as products")
	}

	return rowsToCandidates(l.BaseURL(), rows), nil
}

var (
	libristoPriceRe   = regexp.MustCompile(`(?:€\s*\d+[.,]\d{2}|\d+[.,]\d{2}\s*€)`)
	libristoURLDigits = regexp.MustCompile(`(\d{13}|\d{10})`)
)

func (l *Libristo) Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error) {
	page, err := loadProductPage(ctx, r, l.Name(), link, "Accept")
	if err != nil {
		return book.Candidate{}, err
	}

	price := strings.TrimSpace(libristoPriceRe.FindString(page.Body))
	if price == "" {
		price = "N/A"
	}

	isbn := isbnFromBody(page.Body)
	if isbn == "" {
		if m := libristoURLDigits.FindStringSubmatch(link); m != nil {
			isbn = m[1]
		}
	}

	return book.Candidate{
		Title: strings.TrimSpace(page.Title),
		Price: price,
		Link:  link,
		ISBN:  isbn,
	}, nil
}
