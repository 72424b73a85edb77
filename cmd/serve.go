package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adscout/internal/model"
	"github.com/sells-group/adscout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
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

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Account-ID", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAccount)

		r.Post("/api/analyses", handleCreateAnalysis(env))
		r.Get("/api/analyses", handleListAnalyses(env))
		r.Get("/api/analyses/{id}", handleGetAnalysis(env))
		r.Post("/api/analyses/{id}/plan", handleCreatePlan(env))
		r.Get("/api/plans/{id}", handleGetPlan(env))
		r.Get("/api/quota", handleQuota(env))
	})

	return r
}

type ctxKey int

const (
	accountKey ctxKey = iota
	userKey
)

// requireAccount resolves the caller's identity from headers. Account
// scoping is mandatory for every API route; the user id is optional and
// only feeds the usage ledger.
func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := r.Header.Get("X-Account-ID")
		if account == "" {
			writeError(w, http.StatusBadRequest, "missing_account", "X-Account-ID header is required")
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, account)
		ctx = context.WithValue(ctx, userKey, r.Header.Get("X-User-ID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerAccount(r *http.Request) string { s, _ := r.Context().Value(accountKey).(string); return s }
func callerUser(r *http.Request) string    { s, _ := r.Context().Value(userKey).(string); return s }

func handleCreateAnalysis(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		// Identity comes from headers, never the body.
		req.AccountID = callerAccount(r)
		req.UserID = callerUser(r)

		result, err := env.Analyzer.Run(r.Context(), req)
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func handleListAnalyses(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.AnalysisFilter{
			AccountID: callerAccount(r),
			Limit:     queryInt(r, "limit", 20),
			Offset:    queryInt(r, "offset", 0),
		}
		results, err := env.Store.ListAnalyses(r.Context(), filter)
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"analyses": results})
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func handleGetAnalysis(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := env.Store.GetAnalysis(r.Context(), chi.URLParam(r, "id"), callerAccount(r))
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleCreatePlan(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var selections model.PlanSelections
		if err := json.NewDecoder(r.Body).Decode(&selections); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}

		result, err := env.Planner.Run(r.Context(), chi.URLParam(r, "id"), callerAccount(r), callerUser(r), selections)
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func handleGetPlan(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := env.Store.GetPlan(r.Context(), chi.URLParam(r, "id"), callerAccount(r))
		if err != nil {
			writePipelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleQuota(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := env.Gate.Quota(r.Context(), callerAccount(r))
		writeJSON(w, http.StatusOK, q)
	}
}

// writePipelineError maps domain errors to HTTP status codes with a
// stable machine-readable code alongside the message.
func writePipelineError(w http.ResponseWriter, err error) {
	var quotaErr *model.QuotaError
	var synthErr *model.SynthesisError
	switch {
	case errors.As(err, &quotaErr):
		writeError(w, http.StatusTooManyRequests, quotaErr.Code(), quotaErr.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, model.CodeNotFound, "not found")
	case errors.Is(err, model.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, model.CodeInvalidRequest, err.Error())
	case errors.As(err, &synthErr):
		writeError(w, http.StatusBadGateway, synthErr.Code(), synthErr.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}
