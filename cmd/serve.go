package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/concordnow/concord-export/internal/export"
	"github.com/concordnow/concord-export/internal/store"
	"github.com/concordnow/concord-export/pkg/concord"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for triggering exports",
	Long:  "Exposes the run ledger and lets exports be triggered over HTTP. Exports run in the background; poll the run for completion.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, err := initClient()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		srv := &exportServer{ctx: ctx, client: client, store: st}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// exportServer holds what the HTTP handlers share. Background exports run
// under the server's context so shutdown cancels them.
type exportServer struct {
	ctx    context.Context
	client concord.Client
	store  store.Store
}

func (s *exportServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Post("/export/{flavor}", s.handleExport)
	return r
}

func (s *exportServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *exportServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: store.RunStatus(r.URL.Query().Get("status")),
		Flavor: r.URL.Query().Get("flavor"),
		Limit:  50,
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *exportServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleExport starts an export in the background and returns the run id.
func (s *exportServer) handleExport(w http.ResponseWriter, r *http.Request) {
	flavor := chi.URLParam(r, "flavor")

	er, err := newFlavorRun(flavor, s.client)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	format := cfg.Export.Format
	if f := r.URL.Query().Get("format"); f != "" {
		format = f
	}
	outPath := export.Filename(flavor, outputExt(format), time.Now())

	sink, err := newSink(format, outPath)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if er.opts.PageSize == 0 {
		er.opts.PageSize = cfg.Export.PageSize
	}
	er.opts.MaxPages = cfg.Export.MaxPages
	er.opts.Concurrency = cfg.Export.Concurrency

	run, err := s.store.CreateRun(r.Context(), flavor, outPath)
	if err != nil {
		_ = sink.Close()
		_ = os.Remove(outPath)
		zap.L().Error("create run", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create run failed"})
		return
	}

	go s.runExport(run.ID, flavor, er, sink, outPath)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run":    run.ID,
		"flavor": flavor,
		"output": outPath,
	})
}

// runExport drives one background export to completion, recording the
// outcome on the run.
func (s *exportServer) runExport(runID, flavor string, er exportRun, sink export.RowWriter, outPath string) {
	driver := export.NewDriver(er.client, er.enricher, sink, er.columns, er.opts)

	zap.L().Info("starting export",
		zap.String("flavor", flavor),
		zap.String("output", outPath),
		zap.String("run", runID),
	)

	summary, runErr := driver.Run(s.ctx)
	closeErr := sink.Close()

	// The server context may be gone by now; record the outcome regardless.
	recordCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		zap.L().Error("export failed",
			zap.String("flavor", flavor),
			zap.String("run", runID),
			zap.Error(runErr),
		)
		_ = s.store.FailRun(recordCtx, runID, runErr)
		return
	}

	if err := s.store.CompleteRun(recordCtx, runID, storeSummary(summary)); err != nil {
		zap.L().Error("record run completion", zap.String("run", runID), zap.Error(err))
		return
	}

	zap.L().Info("export complete",
		zap.String("flavor", flavor),
		zap.String("run", runID),
		zap.Int("rows", summary.Rows),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
