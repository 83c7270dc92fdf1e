package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/linkedin-ingestor/internal/scheduler"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API (and scheduler, when enabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		var sched *scheduler.Manager
		if cfg.Scheduler.Enabled {
			sched = scheduler.New()
			err := sched.AddJob(cfg.Scheduler.Cron, "scheduled-ingest", func() {
				if _, err := env.Job.Run(context.Background(), ""); err != nil {
					zap.L().Error("scheduled ingest rejected", zap.Error(err))
				}
			})
			if err != nil {
				return err
			}
			err = sched.AddJob("0 * * * *", "health-check", func() {
				health := env.Job.HealthCheck(context.Background())
				if !health.Healthy() {
					zap.L().Warn("health check degraded",
						zap.Bool("database", health.Database),
						zap.String("database_error", health.DatabaseError),
						zap.String("storage_error", health.StorageError))
				}
			})
			if err != nil {
				return err
			}
			sched.Start()
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if sched != nil {
				sched.Stop(shutdownCtx)
			}
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		health := env.Job.HealthCheck(req.Context())
		code := http.StatusOK
		if !health.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		last := env.Job.LastRunStatus()
		if last == nil {
			writeJSON(w, http.StatusOK, map[string]any{"running": env.Job.IsRunning()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"running":  env.Job.IsRunning(),
			"last_run": last,
		})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		limit := 20
		if v := req.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		runs, err := env.Repo.ListIngestionRuns(req.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Zip string `json:"zip"`
		}
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&body)
		}
		if env.Job.IsRunning() {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
			return
		}

		// Runs detached from the request lifetime.
		go func() {
			if _, err := env.Job.Run(context.Background(), body.Zip); err != nil {
				zap.L().Error("triggered ingest rejected", zap.Error(err))
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
