package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/concordnow/concord-export/internal/export"
	"github.com/concordnow/concord-export/internal/store"
	"github.com/concordnow/concord-export/pkg/concord"
)

// initClient builds the API client from config.
func initClient() (concord.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	opts := []concord.Option{}
	if cfg.API.BaseURL != "" {
		opts = append(opts, concord.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.Export.PageSize > 0 {
		opts = append(opts, concord.WithPageSize(cfg.Export.PageSize))
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, concord.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	}

	return concord.NewClient(cfg.API.Key, opts...), nil
}

// initStore opens the run-ledger backend named in config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "concord-export.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newSink builds the output sink for the given format, or an error for an
// unknown format.
func newSink(format, path string) (export.RowWriter, error) {
	switch format {
	case "csv":
		return export.NewCSVSink(path)
	case "xlsx":
		return export.NewXLSXSink(path)
	default:
		return nil, eris.Errorf("unsupported output format: %s (want csv or xlsx)", format)
	}
}

// outputExt maps a format to its file extension.
func outputExt(format string) string {
	if format == "xlsx" {
		return "xlsx"
	}
	return "csv"
}

// storeSummary converts the driver's counters for persistence.
func storeSummary(s *export.Summary) *store.RunSummary {
	return &store.RunSummary{
		Organizations: s.Organizations,
		OrgFailures:   s.OrgFailures,
		Documents:     s.Documents,
		Rows:          s.Rows,
		Retried:       s.Retried,
		RetryFailures: s.RetryFailures,
	}
}
