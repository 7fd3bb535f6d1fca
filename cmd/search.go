package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lepinkainen/bookscout/internal/book"
	"github.com/lepinkainen/bookscout/internal/browser"
	"github.com/lepinkainen/bookscout/internal/config"
	"github.com/lepinkainen/bookscout/internal/datastore"
	"github.com/lepinkainen/bookscout/internal/match"
	"github.com/lepinkainen/bookscout/internal/render"
	"github.com/lepinkainen/bookscout/internal/scout"
	"github.com/lepinkainen/bookscout/internal/stores"
)

// runSearch is swapped out in tests.
var runSearch = executeSearch

// SearchCmd represents the search command
type SearchCmd struct {
	Query  string   `arg:"" optional:"" help:"Book title to search for"`
	ISBN   string   `short:"i" help:"Search by ISBN instead of title"`
	Format string   `short:"f" enum:"table,json,csv" default:"table" help:"Output format"`
	Store  []string `short:"s" help:"Specific stores to search (can be repeated)"`
	SaveDB bool     `help:"Record results to the SQLite results database"`
	DBFile string   `help:"Path to the results database (defaults to output.dbfile)"`
}

func (s *SearchCmd) Run() error {
	query, err := s.buildQuery()
	if err != nil {
		return err
	}
	return runSearch(s, query)
}

func (s *SearchCmd) buildQuery() (book.Query, error) {
	switch {
	case s.ISBN != "":
		return book.NewISBNQuery(s.ISBN, s.Store)
	case s.Query != "":
		return book.NewTitleQuery(s.Query, s.Store)
	default:
		return book.Query{}, errors.New("provide a book title or --isbn")
	}
}

func executeSearch(s *SearchCmd, query book.Query) error {
	ctx := context.Background()

	driver := browser.NewDriver(ctx, browser.Options{Headless: config.Headless})
	defer driver.Close()

	orchestrator := scout.New(
		driver,
		match.New(config.MatchThreshold),
		scout.Options{
			Timeout:        config.Timeout,
			Retries:        config.Retries,
			ValidateISBN:   config.ValidateISBN,
			SelfPubPenalty: config.SelfPubPenalty,
		},
		stores.All()...,
	)

	slog.Info("Searching", "query", query.Text, "mode", query.Mode.String())

	results, failures, err := orchestrator.Run(ctx, query)
	if err != nil {
		return err
	}

	for _, f := range failures {
		slog.Warn("Store failed", "store", f.Store, "kind", string(f.Kind), "error", f.Err)
	}

	if err := render.Write(os.Stdout, s.Format, results, failures); err != nil {
		return err
	}

	if s.SaveDB {
		if err := s.saveResults(query, results); err != nil {
			// Recording is best-effort; the search itself succeeded.
			slog.Error("Failed to record results", "error", err)
		}
	}

	return nil
}

func (s *SearchCmd) saveResults(query book.Query, results []book.Result) error {
	dbFile := s.DBFile
	if dbFile == "" {
		dbFile = config.DBFile
	}

	store, err := datastore.Open(dbFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows := make([]datastore.Row, 0, len(results))
	for _, r := range results {
		isbn := ""
		if r.ISBN != nil {
			isbn = *r.ISBN
		}
		rows = append(rows, datastore.Row{
			Query:     query.Text,
			QueryMode: query.Mode.String(),
			Store:     r.Store,
			Title:     r.Title,
			Price:     r.Price,
			URL:       r.URL,
			ISBN:      isbn,
		})
	}
	return store.SaveResults(rows)
}

// StoresCmd represents the stores command
type StoresCmd struct{}

func (s *StoresCmd) Run() error {
	for _, ad := range stores.All() {
		fmt.Printf("%-12s %-12s %s\n", ad.ID(), ad.Name(), ad.BaseURL())
	}
	return nil
}
