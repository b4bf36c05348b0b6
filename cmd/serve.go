package main

import (
	"context"
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

	"github.com/sells-group/revenue-sentinel/internal/model"
	"github.com/sells-group/revenue-sentinel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server",
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
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
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

// newRouter builds the API routes.
func newRouter(env *pipelineEnv, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/api/health", handleHealth)
	r.Get("/api/customers", handleCustomers(env.Store))
	r.Get("/api/analyze/{customerID}", handleAnalyze(env))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "Revenue Sentinel API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func handleCustomers(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customers, err := st.ListCustomers(r.Context())
		if err != nil {
			zap.L().Error("list customers", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		writeJSON(w, http.StatusOK, customers)
	}
}

// handleAnalyze streams one pipeline run as Server-Sent Events. An unknown
// customer is rejected with 404 before the stream starts; after the first
// byte, failures are reported in-stream as an error event.
func handleAnalyze(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerID")
		ctx := r.Context()

		customer, err := env.Store.GetCustomer(ctx, customerID)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": fmt.Sprintf("Customer %s not found", customerID),
				})
				return
			}
			zap.L().Error("customer lookup", zap.String("customer_id", customerID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		sink := &sseSink{w: w, flusher: flusher}
		if err := sink.Emit(ctx, model.PipelineEvent{
			Kind: model.EventConnected,
			Payload: map[string]any{
				"customer_id":   customer.ID,
				"customer_name": customer.Name,
				"timestamp":     time.Now().UTC().Format(time.RFC3339),
			},
		}); err != nil {
			return
		}

		if _, err := env.Pipeline.Run(ctx, customerID, sink); err != nil {
			zap.L().Warn("analysis run failed",
				zap.String("customer_id", customerID),
				zap.Error(err))
		}
	}
}

// sseSink writes pipeline events in SSE wire format and flushes after each.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Emit(ctx context.Context, event model.PipelineEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event.Payload)
	if err != nil {
		return eris.Wrap(err, "serve: encode event")
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
		return eris.Wrap(err, "serve: write event")
	}
	s.flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
