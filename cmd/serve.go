package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gauntlet/internal/leaderboard"
	"github.com/sells-group/gauntlet/internal/model"
	"github.com/sells-group/gauntlet/internal/orchestrator"
	"github.com/sells-group/gauntlet/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
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

		o := initOrchestrator(st)
		router := newRouter(st, o)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(st store.Store, o *orchestrator.Orchestrator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		board, err := leaderboard.Build(req.Context(), st)
		if err != nil {
			zap.L().Error("leaderboard build failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "leaderboard unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, board)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{Status: model.RunStatus(req.URL.Query().Get("status"))}
		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "runs unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Post("/api/orchestrate", orchestrateHandler(o, false))
	r.Post("/api/orchestrate/errored", orchestrateHandler(o, true))

	return r
}

// orchestrateHandler kicks off a batch and returns as soon as it is
// scheduled. The server process keeps the workers alive.
func orchestrateHandler(o *orchestrator.Orchestrator, erroredOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		// Batches outlive the request, so the dispatch context comes
		// from the server process, not from the request.
		ctx := context.Background()

		var batch *orchestrator.Batch
		var err error
		if erroredOnly {
			batch, err = o.RunErrored(ctx)
		} else {
			batch, err = o.RunAll(ctx)
		}
		if err != nil {
			zap.L().Error("orchestrate request failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":            "scheduled",
			"scheduled":         batch.Scheduled,
			"estimated_minutes": batch.EstimatedMinutes,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
