package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkscope/audit-cli/internal/health"
	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/store"
	"github.com/linkscope/audit-cli/internal/trend"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only status API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting status server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/platforms", func(w http.ResponseWriter, req *http.Request) {
		platforms, err := st.Platforms(req.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"platforms": platforms})
	})

	r.Get("/api/platforms/{platform}/health", func(w http.ResponseWriter, req *http.Request) {
		platform := model.Platform(chi.URLParam(req, "platform"))
		h, err := st.LatestHealth(req.Context(), platform)
		if err != nil {
			respondError(w, err)
			return
		}
		if h == nil {
			http.Error(w, `{"error":"no health recorded for platform"}`, http.StatusNotFound)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"health":          h,
			"recommendations": health.Recommend(*h),
		})
	})

	r.Get("/api/platforms/{platform}/trend", func(w http.ResponseWriter, req *http.Request) {
		platform := model.Platform(chi.URLParam(req, "platform"))
		cmp, err := trend.NewAnalyzer(cfg.Trend, st).Compare(req.Context(), platform)
		if err != nil {
			respondError(w, err)
			return
		}
		if cmp == nil {
			http.Error(w, `{"error":"not enough history for a baseline"}`, http.StatusNotFound)
			return
		}
		respondJSON(w, http.StatusOK, cmp)
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
			Limit:  20,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
	})

	r.Get("/api/runs/{id}/attempts", func(w http.ResponseWriter, req *http.Request) {
		attempts, err := st.ListAttempts(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func respondError(w http.ResponseWriter, err error) {
	zap.L().Error("api request failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
