package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
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

	"github.com/sells-group/permit-radar/internal/ingest"
	"github.com/sells-group/permit-radar/internal/model"
	"github.com/sells-group/permit-radar/internal/pipeline"
	"github.com/sells-group/permit-radar/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for runs and leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		api := &apiServer{pipeline: p, store: st}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return serveHTTP(ctx, &http.Server{Handler: api.routes()}, ln)
	},
}

// shutdownTimeout bounds the drain of in-flight requests on shutdown.
const shutdownTimeout = 10 * time.Second

// serveHTTP runs srv on ln until ctx is canceled, then drains in-flight
// requests before returning. The drain gets a fresh timeout context: the
// signal context is already canceled by the time shutdown starts.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	<-done
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	pipeline *pipeline.Pipeline
	store    store.Store
}

func (a *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", a.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", a.handleListRuns)
		r.Post("/", a.handleCreateRun)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", a.handleGetRun)
			r.Get("/leads", a.handleRunLeads)
			r.Get("/clusters", a.handleRunClusters)
			r.Get("/hotspots", a.handleRunHotspots)
		})
	})
	return r
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{Status: model.RunStatus(q.Get("status"))}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleCreateRun accepts a JSON array of permit records (or a server-side
// file path) and runs the pipeline asynchronously. The response carries the
// queued run id for polling.
func (a *apiServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []model.LeadRecord `json:"records"`
		File    string             `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}

	records := req.Records
	if len(records) == 0 && req.File != "" {
		var err error
		records, err = ingest.LoadFile(req.File)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, eris.New("records or file is required"))
		return
	}

	run, err := a.store.CreateRun(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	go func() {
		ctx := context.Background()
		if err := a.store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			zap.L().Error("mark run running failed", zap.String("run_id", run.ID), zap.Error(err))
			return
		}
		result, err := a.pipeline.Run(ctx, records)
		if err != nil {
			zap.L().Error("async run failed", zap.String("run_id", run.ID), zap.Error(err))
			if failErr := a.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Error("recording run failure failed", zap.String("run_id", run.ID), zap.Error(failErr))
			}
			return
		}
		if err := a.store.UpdateRunResult(ctx, run.ID, result); err != nil {
			zap.L().Error("recording run result failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": string(model.RunStatusQueued),
	})
}

func (a *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *apiServer) handleRunLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.LeadFilter{HighQualityOnly: q.Get("high_quality") == "true"}
	if v := q.Get("min_score"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &filter.MinScore); err != nil {
			writeError(w, http.StatusBadRequest, eris.New("min_score must be an integer"))
			return
		}
	}

	leads, err := a.store.ListLeads(r.Context(), chi.URLParam(r, "runID"), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if leads == nil {
		leads = []model.LeadRecord{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (a *apiServer) handleRunClusters(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	clusters := []model.Cluster{}
	if run.Result != nil {
		clusters = run.Result.Clusters
	}
	writeJSON(w, http.StatusOK, clusters)
}

func (a *apiServer) handleRunHotspots(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	hotspots := []model.Hotspot{}
	if run.Result != nil {
		hotspots = run.Result.Hotspots
	}
	writeJSON(w, http.StatusOK, hotspots)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
