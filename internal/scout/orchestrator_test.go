package scout

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookscout/internal/book"
	"github.com/lepinkainen/bookscout/internal/browser"
	errs "github.com/lepinkainen/bookscout/internal/errors"
	"github.com/lepinkainen/bookscout/internal/match"
)

// fakeRenderer satisfies browser.Renderer; the fake adapters never
// touch it.
type fakeRenderer struct{}

func (f *fakeRenderer) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakeRenderer) WaitVisibleAny(ctx context.Context, selectors ...string) (string, error) {
	return "", nil
}
func (f *fakeRenderer) Evaluate(ctx context.Context, js string, out any) error { return nil }

// fakeFactory counts sessions and releases so tests can assert that
// every acquired session is released.
type fakeFactory struct {
	sessions int32
	releases int32
}

func (f *fakeFactory) NewSession() (browser.Renderer, context.Context, func(), error) {
	atomic.AddInt32(&f.sessions, 1)
	return &fakeRenderer{}, context.Background(), func() { atomic.AddInt32(&f.releases, 1) }, nil
}

// fakeAdapter scripts one store's behavior.
type fakeAdapter struct {
	id         string
	candidates []book.Candidate
	searchErrs []error // consumed per call; nil entry means success
	detailsErr error
	delay      time.Duration
	blocks     bool // Search blocks until ctx expires
	supports   func(book.Mode) bool

	searchCalls  int32
	detailsCalls int32
}

func (f *fakeAdapter) ID() string      { return f.id }
func (f *fakeAdapter) Name() string    { return f.id }
func (f *fakeAdapter) BaseURL() string { return "https://" + f.id + ".example" }

func (f *fakeAdapter) Supports(mode book.Mode) bool {
	if f.supports != nil {
		return f.supports(mode)
	}
	return true
}

func (f *fakeAdapter) Search(ctx context.Context, r browser.Renderer, q book.Query) ([]book.Candidate, error) {
	call := atomic.AddInt32(&f.searchCalls, 1)

	if f.blocks {
		<-ctx.Done()
		return nil, errs.NewNetworkError(f.id, ctx.Err())
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if int(call) <= len(f.searchErrs) {
		if err := f.searchErrs[call-1]; err != nil {
			return nil, err
		}
	}
	return f.candidates, nil
}

func (f *fakeAdapter) Details(ctx context.Context, r browser.Renderer, link string) (book.Candidate, error) {
	atomic.AddInt32(&f.detailsCalls, 1)
	if f.detailsErr != nil {
		return book.Candidate{}, f.detailsErr
	}
	for _, c := range f.candidates {
		if c.Link == link {
			return c, nil
		}
	}
	return book.Candidate{}, errs.NewExtractionError(f.id, "unknown link")
}

func candidateFor(store string) book.Candidate {
	return book.Candidate{
		Title: "Atomic Habits",
		Price: "€15.42",
		Link:  "https://" + store + ".example/book/atomic-habits/9781847941831",
		ISBN:  "9781847941831",
	}
}

func titleQuery(t *testing.T, text string, storeIDs ...string) book.Query {
	t.Helper()
	q, err := book.NewTitleQuery(text, storeIDs)
	require.NoError(t, err)
	return q
}

func isbnQuery(t *testing.T, code string, storeIDs ...string) book.Query {
	t.Helper()
	q, err := book.NewISBNQuery(code, storeIDs)
	require.NoError(t, err)
	return q
}

func TestRunReturnsOneOutcomePerStore(t *testing.T) {
	factory := &fakeFactory{}
	ok := &fakeAdapter{id: "alpha", candidates: []book.Candidate{candidateFor("alpha")}}
	empty := &fakeAdapter{id: "beta"} // zero results: clean no-match
	broken := &fakeAdapter{id: "gamma", searchErrs: []error{
		errs.NewExtractionError("gamma", "layout changed"),
	}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, ok, empty, broken)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)

	// success + no-match + failure covers all three stores.
	assert.Len(t, results, 1)
	assert.Len(t, failures, 1)
	assert.Equal(t, "alpha", results[0].Store)
	assert.Equal(t, "gamma", failures[0].Store)
	assert.Equal(t, book.FailExtractionMismatch, failures[0].Kind)
}

func TestRunPreservesRegistrationOrder(t *testing.T) {
	factory := &fakeFactory{}
	// The last-registered store is the fastest; order must still follow
	// registration.
	slow := &fakeAdapter{id: "slow", delay: 80 * time.Millisecond, candidates: []book.Candidate{candidateFor("slow")}}
	mid := &fakeAdapter{id: "mid", delay: 40 * time.Millisecond, candidates: []book.Candidate{candidateFor("mid")}}
	fast := &fakeAdapter{id: "fast", candidates: []book.Candidate{candidateFor("fast")}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, slow, mid, fast)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, results, 3)
	assert.Equal(t, "slow", results[0].Store)
	assert.Equal(t, "mid", results[1].Store)
	assert.Equal(t, "fast", results[2].Store)
}

func TestRunUnknownStoreFailsBeforeAnyTask(t *testing.T) {
	factory := &fakeFactory{}
	registered := &fakeAdapter{id: "blackwells", candidates: []book.Candidate{candidateFor("blackwells")}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, registered)
	_, _, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits", "amazon"))

	require.Error(t, err)
	assert.True(t, errs.IsConfigurationError(err))
	assert.Zero(t, atomic.LoadInt32(&registered.searchCalls), "no adapter task may run")
	assert.Zero(t, atomic.LoadInt32(&factory.sessions), "no session may be opened")
}

func TestRunStoreSubsetResolvesCaseInsensitively(t *testing.T) {
	factory := &fakeFactory{}
	a := &fakeAdapter{id: "alpha", candidates: []book.Candidate{candidateFor("alpha")}}
	b := &fakeAdapter{id: "beta", candidates: []book.Candidate{candidateFor("beta")}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, a, b)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits", " Beta "))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, results, 1)
	assert.Equal(t, "beta", results[0].Store)
	assert.Zero(t, atomic.LoadInt32(&a.searchCalls))
}

func TestRunTimeoutBecomesFailureWithinBudget(t *testing.T) {
	factory := &fakeFactory{}
	hung := &fakeAdapter{id: "hung", blocks: true}
	budget := 50 * time.Millisecond

	o := New(factory, match.New(0), Options{Timeout: budget, Retries: 1, StoreRPS: 1000}, hung)

	start := time.Now()
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Empty(t, results)
	require.Len(t, failures, 1)
	assert.Equal(t, book.FailNetworkOrTimeout, failures[0].Kind)
	// Budget plus one retry, with scheduling slack; never an open-ended hang.
	assert.Less(t, elapsed, 2*budget+200*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hung.searchCalls), "one retry after the timeout")
}

func TestRunRetriesTransientFailureOnce(t *testing.T) {
	factory := &fakeFactory{}
	flaky := &fakeAdapter{
		id:         "flaky",
		candidates: []book.Candidate{candidateFor("flaky")},
		searchErrs: []error{errs.NewNetworkError("flaky", context.DeadlineExceeded), nil},
	}

	o := New(factory, match.New(0), Options{Timeout: time.Second, Retries: 1, StoreRPS: 1000}, flaky)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, results, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&flaky.searchCalls))
}

func TestRunDoesNotRetryExtractionMismatch(t *testing.T) {
	factory := &fakeFactory{}
	changed := &fakeAdapter{id: "changed", searchErrs: []error{
		errs.NewExtractionError("changed", "layout changed"),
	}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, Retries: 1, StoreRPS: 1000}, changed)
	_, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, book.FailExtractionMismatch, failures[0].Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&changed.searchCalls), "extraction mismatch is not transient")
}

func TestRunUnsupportedQueryMode(t *testing.T) {
	factory := &fakeFactory{}
	noISBN := &fakeAdapter{
		id:       "titleonly",
		supports: func(m book.Mode) bool { return m == book.ByTitle },
	}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, noISBN)
	_, failures, err := o.Run(context.Background(), isbnQuery(t, "9781847941831"))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, book.FailUnsupportedQueryMode, failures[0].Kind)
	assert.Zero(t, atomic.LoadInt32(&noISBN.searchCalls))
}

func TestRunZeroResultsIsNotAFailure(t *testing.T) {
	factory := &fakeFactory{}
	empty := &fakeAdapter{id: "empty"}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, empty)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "No Such Book Anywhere"))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, failures)
}

func TestRunReleasesEverySession(t *testing.T) {
	factory := &fakeFactory{}
	ok := &fakeAdapter{id: "alpha", candidates: []book.Candidate{candidateFor("alpha")}}
	flaky := &fakeAdapter{
		id:         "beta",
		candidates: []book.Candidate{candidateFor("beta")},
		searchErrs: []error{errs.NewNetworkError("beta", context.DeadlineExceeded), nil},
	}

	o := New(factory, match.New(0), Options{Timeout: time.Second, Retries: 1, StoreRPS: 1000}, ok, flaky)
	_, _, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)

	assert.Equal(t, atomic.LoadInt32(&factory.sessions), atomic.LoadInt32(&factory.releases))
	assert.NotZero(t, atomic.LoadInt32(&factory.sessions))
}

func TestRunDetailsFailureIsRecorded(t *testing.T) {
	factory := &fakeFactory{}
	broken := &fakeAdapter{
		id:         "alpha",
		candidates: []book.Candidate{candidateFor("alpha")},
		detailsErr: errs.NewExtractionError("alpha", "product page changed"),
	}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, broken)
	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)
	assert.Empty(t, results)
	require.Len(t, failures, 1)
	assert.Equal(t, book.FailExtractionMismatch, failures[0].Kind)
}

func TestRunISBNModeSelectsExactMatch(t *testing.T) {
	factory := &fakeFactory{}
	wrong := candidateFor("alpha")
	wrong.ISBN = "9798279289592"
	wrong.Link = "https://alpha.example/book/knockoff/9798279289592"
	right := candidateFor("alpha")

	ad := &fakeAdapter{id: "alpha", candidates: []book.Candidate{wrong, right}}

	o := New(factory, match.New(0), Options{Timeout: time.Second, StoreRPS: 1000}, ad)
	results, failures, err := o.Run(context.Background(), isbnQuery(t, "978-1-84794-183-1"))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ISBN)
	assert.Equal(t, "9781847941831", *results[0].ISBN)
	assert.Equal(t, right.Link, results[0].URL)
}

func TestRunCanonicalISBNVoteOverridesTitleMatch(t *testing.T) {
	factory := &fakeFactory{}

	knockoff := book.Candidate{
		Title: "Atomic Habits Workbook Summary",
		Link:  "https://alpha.example/book/summary/9798279289592",
		ISBN:  "9798279289592",
	}
	genuine := book.Candidate{
		Title: "Atomic Habits",
		Link:  "https://alpha.example/book/atomic-habits/9781847941831",
		ISBN:  "9781847941831",
	}

	// alpha lists the knockoff first; the other two stores put the genuine
	// edition first, so the vote elects it.
	alpha := &fakeAdapter{id: "alpha", candidates: []book.Candidate{knockoff, genuine}}
	beta := &fakeAdapter{id: "beta", candidates: []book.Candidate{candidateFor("beta")}}
	gamma := &fakeAdapter{id: "gamma", candidates: []book.Candidate{candidateFor("gamma")}}

	o := New(factory, match.New(0), Options{
		Timeout:      time.Second,
		StoreRPS:     1000,
		ValidateISBN: true,
	}, alpha, beta, gamma)

	results, failures, err := o.Run(context.Background(), titleQuery(t, "Atomic Habits"))
	require.NoError(t, err)
	require.Empty(t, failures)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r.ISBN)
		assert.Equal(t, "9781847941831", *r.ISBN, "store %s must follow the vote", r.Store)
	}
}

func TestNormalizePrefersDetailedFieldsAndNormalizesISBN(t *testing.T) {
	candidate := book.Candidate{Title: "slug title", Link: "https://x.example/p/1", ISBN: "978-1-84794-183-1"}
	detailed := book.Candidate{Title: "  Atomic Habits  ", Price: " €15.42 ", Link: "https://x.example/p/1"}

	result := normalize("Store", candidate, detailed)
	assert.Equal(t, "Atomic Habits", result.Title)
	assert.Equal(t, "€15.42", result.Price)
	require.NotNil(t, result.ISBN)
	assert.Equal(t, "9781847941831", *result.ISBN)
}

func TestNormalizeMissingPriceAndISBN(t *testing.T) {
	candidate := book.Candidate{Title: "A Book", Link: "https://x.example/p/1"}
	result := normalize("Store", candidate, book.Candidate{Link: "https://x.example/p/1"})
	assert.Equal(t, "N/A", result.Price)
	assert.Nil(t, result.ISBN)
	assert.Equal(t, "A Book", result.Title)
}
