package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LinfanS/court-transcripts-pipeline/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only case API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newAPIMux(s),
		}

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

// newAPIMux builds the read-only API routes over a store.
func newAPIMux(s store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /cases", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.CaseFilter{
			Title:   q.Get("title"),
			Court:   q.Get("court"),
			Judge:   q.Get("judge"),
			Tag:     q.Get("tag"),
			Verdict: q.Get("verdict"),
			Limit:   intParam(q.Get("limit")),
			Offset:  intParam(q.Get("offset")),
		}
		cases, err := s.SearchCases(r.Context(), filter)
		if err != nil {
			serverError(w, "list cases", err)
			return
		}
		if cases == nil {
			cases = []store.CaseSummary{}
		}
		writeJSON(w, http.StatusOK, cases)
	})

	countEndpoint := func(fetch func(r *http.Request) ([]store.NamedCount, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			counts, err := fetch(r)
			if err != nil {
				serverError(w, "list counts", err)
				return
			}
			if counts == nil {
				counts = []store.NamedCount{}
			}
			writeJSON(w, http.StatusOK, counts)
		}
	}

	mux.HandleFunc("GET /courts", countEndpoint(func(r *http.Request) ([]store.NamedCount, error) {
		return s.CourtCounts(r.Context(), r.URL.Query().Get("search"), intParam(r.URL.Query().Get("limit")))
	}))
	mux.HandleFunc("GET /judges", countEndpoint(func(r *http.Request) ([]store.NamedCount, error) {
		return s.JudgeCounts(r.Context(), r.URL.Query().Get("search"), intParam(r.URL.Query().Get("limit")))
	}))
	mux.HandleFunc("GET /tags", countEndpoint(func(r *http.Request) ([]store.NamedCount, error) {
		return s.TagCounts(r.Context(), r.URL.Query().Get("search"), intParam(r.URL.Query().Get("limit")))
	}))

	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := s.ListRuns(r.Context(), intParam(r.URL.Query().Get("limit")))
		if err != nil {
			serverError(w, "list runs", err)
			return
		}
		type runView struct {
			ID           string `json:"id"`
			Kind         string `json:"kind"`
			Status       string `json:"status"`
			CasesLoaded  int    `json:"cases_loaded"`
			CasesSkipped int    `json:"cases_skipped"`
			Error        string `json:"error,omitempty"`
			StartedAt    string `json:"started_at"`
			FinishedAt   string `json:"finished_at,omitempty"`
		}
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			v := runView{
				ID:           run.ID,
				Kind:         run.Kind,
				Status:       string(run.Status),
				CasesLoaded:  run.CasesLoaded,
				CasesSkipped: run.CasesSkipped,
				Error:        run.Error,
				StartedAt:    run.StartedAt.Format("2006-01-02T15:04:05Z"),
			}
			if run.FinishedAt != nil {
				v.FinishedAt = run.FinishedAt.Format("2006-01-02T15:04:05Z")
			}
			views = append(views, v)
		}
		writeJSON(w, http.StatusOK, views)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, what string, err error) {
	zap.L().Error("api request failed", zap.String("op", what), zap.Error(err))
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}

func intParam(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
