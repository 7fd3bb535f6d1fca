// Package scout fans a query out to every active store adapter
// concurrently and aggregates the per-store outcomes. Each retrieval
// task is fully isolated: its own browser session, its own time budget,
// its own result slot. One store failing never aborts the others.
package scout

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/bookscout/internal/book"
	"github.com/lepinkainen/bookscout/internal/browser"
	errs "github.com/lepinkainen/bookscout/internal/errors"
	"github.com/lepinkainen/bookscout/internal/match"
	"github.com/lepinkainen/bookscout/internal/ratelimit"
	"github.com/lepinkainen/bookscout/internal/stores"
)

const (
	// DefaultTimeout is the wall-clock budget for one adapter attempt.
	DefaultTimeout = 30 * time.Second
	// DefaultRetries is how many extra attempts a transient network
	// failure earns. Zero results and extraction mismatches are never
	// retried; they are not transient.
	DefaultRetries = 1
	// defaultStoreRPS paces page loads against a single store.
	defaultStoreRPS = 0.5
)

// Options configures a run. Zero values fall back to the defaults above.
type Options struct {
	// Timeout is the per-attempt budget for each adapter task.
	Timeout time.Duration
	// Retries is the per-phase retry budget for transient failures.
	Retries int
	// ValidateISBN enables the canonical-ISBN vote for title queries:
	// candidates from all stores elect the most plausible ISBN, and each
	// store's pick prefers the candidate carrying it.
	ValidateISBN bool
	// SelfPubPenalty weights down 979-8 ISBNs in the vote.
	SelfPubPenalty float64
	// StoreRPS throttles page loads per store.
	StoreRPS float64
}

// Orchestrator runs queries across a fixed adapter registry.
type Orchestrator struct {
	adapters []stores.Adapter
	factory  browser.Factory
	matcher  match.Matcher
	opts     Options
	limiters map[string]*ratelimit.Limiter
}

// New builds an Orchestrator over the given adapters. Adapter order is
// the registration order and therefore the output order.
func New(factory browser.Factory, matcher match.Matcher, opts Options, adapters ...stores.Adapter) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = DefaultRetries
	}
	if opts.StoreRPS <= 0 {
		opts.StoreRPS = defaultStoreRPS
	}

	limiters := make(map[string]*ratelimit.Limiter, len(adapters))
	for _, ad := range adapters {
		limiters[ad.ID()] = ratelimit.PerStore(ad.ID(), opts.StoreRPS)
	}

	return &Orchestrator{
		adapters: adapters,
		factory:  factory,
		matcher:  matcher,
		opts:     opts,
		limiters: limiters,
	}
}

// slot is one store's private outcome cell. Tasks only ever write their
// own index, so no locking is needed around the slice.
type slot struct {
	adapter    stores.Adapter
	candidates []book.Candidate
	result     *book.Result
	err        error
}

// Run executes the query against all active stores and returns the
// normalized results (in registration order) plus the failure records.
// Only a configuration error fails the whole run; it is raised before
// any retrieval task launches.
func (o *Orchestrator) Run(ctx context.Context, q book.Query) ([]book.Result, []book.FailureRecord, error) {
	active, err := o.resolve(q.Stores)
	if err != nil {
		return nil, nil, err
	}

	slots := make([]slot, len(active))
	for i, ad := range active {
		slots[i].adapter = ad
	}

	// Phase 1: fetch raw candidates from every store concurrently.
	var wg sync.WaitGroup
	for i := range slots {
		s := &slots[i]
		if !s.adapter.Supports(q.Mode) {
			s.err = errs.NewUnsupportedQueryError(s.adapter.Name(), q.Mode.String())
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.candidates, s.err = o.search(ctx, s.adapter, q)
		}()
	}
	wg.Wait()

	canonical := ""
	if q.Mode == book.ByTitle && o.opts.ValidateISBN {
		lists := make([][]book.Candidate, len(slots))
		for i := range slots {
			lists[i] = slots[i].candidates
		}
		canonical = match.CanonicalISBN(lists, o.opts.SelfPubPenalty)
		if canonical != "" {
			slog.Debug("Elected canonical ISBN", "isbn", canonical)
		}
	}

	// Phase 2: select each store's candidate and complete it from the
	// product page, again concurrently.
	for i := range slots {
		s := &slots[i]
		if s.err != nil || len(s.candidates) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			candidate, ok := o.choose(q, canonical, s.candidates)
			if !ok {
				// Clean no-match outcome, not a failure.
				slog.Debug("No qualifying candidate", "store", s.adapter.Name())
				return
			}
			result, err := o.details(ctx, s.adapter, candidate)
			if err != nil {
				s.err = err
				return
			}
			s.result = &result
		}()
	}
	wg.Wait()

	var results []book.Result
	var failures []book.FailureRecord
	for i := range slots {
		s := &slots[i]
		switch {
		case s.err != nil:
			failures = append(failures, failureFor(s.adapter.Name(), s.err))
		case s.result != nil:
			results = append(results, *s.result)
		}
	}
	return results, failures, nil
}

// resolve maps requested store identifiers onto registered adapters,
// keeping registration order. An unknown identifier is caller error and
// fatal to the run.
func (o *Orchestrator) resolve(requested []string) ([]stores.Adapter, error) {
	if len(requested) == 0 {
		return o.adapters, nil
	}

	known := make(map[string]struct{}, len(o.adapters))
	for _, ad := range o.adapters {
		known[ad.ID()] = struct{}{}
	}

	wanted := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := known[id]; !ok {
			return nil, errs.NewConfigurationError("unknown store %q (registered: %s)", id, strings.Join(o.storeIDs(), ", "))
		}
		wanted[id] = struct{}{}
	}

	active := make([]stores.Adapter, 0, len(wanted))
	for _, ad := range o.adapters {
		if _, ok := wanted[ad.ID()]; ok {
			active = append(active, ad)
		}
	}
	return active, nil
}

func (o *Orchestrator) storeIDs() []string {
	ids := make([]string, len(o.adapters))
	for i, ad := range o.adapters {
		ids[i] = ad.ID()
	}
	return ids
}

// search runs the adapter's search step with the retry budget applied
// to transient failures only.
func (o *Orchestrator) search(ctx context.Context, ad stores.Adapter, q book.Query) ([]book.Candidate, error) {
	var lastErr error
	for attempt := 0; attempt <= o.opts.Retries; attempt++ {
		candidates, err := o.withSession(ctx, ad, func(sctx context.Context, r browser.Renderer) ([]book.Candidate, error) {
			return ad.Search(sctx, r, q)
		})
		if err == nil {
			slog.Debug("Search completed", "store", ad.Name(), "candidates", len(candidates))
			return candidates, nil
		}
		lastErr = err
		if !errs.IsNetworkError(err) {
			return nil, err
		}
		if attempt < o.opts.Retries {
			slog.Warn("Retrying store after transient failure", "store", ad.Name(), "error", err)
		}
	}
	return nil, lastErr
}

// choose picks one candidate for the store. With a canonical ISBN from
// the vote, the first candidate carrying it wins outright; otherwise
// the matcher decides.
func (o *Orchestrator) choose(q book.Query, canonical string, candidates []book.Candidate) (book.Candidate, bool) {
	if canonical != "" {
		for _, c := range candidates {
			if c.ISBN == "" {
				continue
			}
			if normalized, err := book.NormalizeISBN(c.ISBN); err == nil && normalized == canonical {
				return c, true
			}
		}
	}
	return o.matcher.Select(q, candidates)
}

// details completes the selected candidate from its product page and
// normalizes it into a Result.
func (o *Orchestrator) details(ctx context.Context, ad stores.Adapter, candidate book.Candidate) (book.Result, error) {
	var (
		detailed book.Candidate
		lastErr  error
	)
	for attempt := 0; attempt <= o.opts.Retries; attempt++ {
		var err error
		detailed, err = o.withSessionDetails(ctx, ad, candidate.Link)
		if err == nil {
			return normalize(ad.Name(), candidate, detailed), nil
		}
		lastErr = err
		if !errs.IsNetworkError(err) {
			return book.Result{}, err
		}
		if attempt < o.opts.Retries {
			slog.Warn("Retrying product page after transient failure", "store", ad.Name(), "error", err)
		}
	}
	return book.Result{}, lastErr
}

// withSession runs one attempt inside a fresh exclusive session with
// the per-attempt budget applied. The session is released on success,
// error and timeout alike.
func (o *Orchestrator) withSession(ctx context.Context, ad stores.Adapter, fn func(context.Context, browser.Renderer) ([]book.Candidate, error)) ([]book.Candidate, error) {
	if err := o.limiters[ad.ID()].Wait(ctx); err != nil {
		return nil, errs.NewNetworkError(ad.Name(), err)
	}

	r, sctx, release, err := o.factory.NewSession()
	if err != nil {
		return nil, errs.NewNetworkError(ad.Name(), err)
	}
	defer release()

	attemptCtx, cancel := context.WithTimeout(sctx, o.opts.Timeout)
	defer cancel()
	// The session context descends from the driver, not the caller;
	// propagate caller cancellation into the attempt by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return fn(attemptCtx, r)
}

func (o *Orchestrator) withSessionDetails(ctx context.Context, ad stores.Adapter, link string) (book.Candidate, error) {
	if err := o.limiters[ad.ID()].Wait(ctx); err != nil {
		return book.Candidate{}, errs.NewNetworkError(ad.Name(), err)
	}

	r, sctx, release, err := o.factory.NewSession()
	if err != nil {
		return book.Candidate{}, errs.NewNetworkError(ad.Name(), err)
	}
	defer release()

	attemptCtx, cancel := context.WithTimeout(sctx, o.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return ad.Details(attemptCtx, r, link)
}

// normalize builds the output record from the search candidate and its
// product-page completion, preferring product-page fields.
func normalize(store string, candidate, detailed book.Candidate) book.Result {
	title := strings.TrimSpace(detailed.Title)
	if title == "" {
		title = strings.TrimSpace(candidate.Title)
	}

	price := strings.TrimSpace(detailed.Price)
	if price == "" {
		price = "N/A"
	}

	url := detailed.Link
	if url == "" {
		url = candidate.Link
	}

	var isbn *string
	for _, raw := range []string{detailed.ISBN, candidate.ISBN} {
		if raw == "" {
			continue
		}
		if normalized, err := book.NormalizeISBN(raw); err == nil {
			isbn = &normalized
			break
		}
	}

	return book.Result{
		Store: store,
		Title: title,
		Price: price,
		URL:   url,
		ISBN:  isbn,
	}
}

// failureFor converts an adapter error into its failure record.
func failureFor(store string, err error) book.FailureRecord {
	kind := book.FailNetworkOrTimeout
	switch {
	case errs.IsUnsupportedQueryError(err):
		kind = book.FailUnsupportedQueryMode
	case errs.IsExtractionError(err):
		kind = book.FailExtractionMismatch
	}
	return book.FailureRecord{Store: store, Kind: kind, Err: err}
}
