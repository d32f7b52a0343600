package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"extfilter/internal/config"
	"extfilter/internal/domain"
	"extfilter/internal/extfilter"
	"extfilter/internal/metrics"
)

const internalErrorMessage = "Internal server error"

// FixedRegistry is what the HTTP layer needs from the fixed extension registry.
type FixedRegistry interface {
	List(ctx context.Context) ([]domain.FixedExtension, error)
	SetBlocked(ctx context.Context, name string, isBlocked bool) (*domain.FixedExtension, error)
}

// CustomRegistry is what the HTTP layer needs from the custom extension registry.
type CustomRegistry interface {
	List(ctx context.Context) ([]domain.CustomExtension, error)
	Add(ctx context.Context, rawName string) (*domain.CustomExtension, error)
	Delete(ctx context.Context, rawName string) error
	Capacity() int
}

type FileValidator interface {
	Validate(ctx context.Context, filename string) (extfilter.Decision, error)
	ValidateAll(ctx context.Context, filenames []string) ([]extfilter.FileResult, error)
}

type Dependencies struct {
	Fixed     FixedRegistry
	Custom    CustomRegistry
	Validator FileValidator
}

type handlers struct {
	fixed     FixedRegistry
	custom    CustomRegistry
	validator FileValidator
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && config.IsOriginAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter wires every route onto a fresh mux.
func NewRouter(deps Dependencies) http.Handler {
	h := &handlers{
		fixed:     deps.Fixed,
		custom:    deps.Custom,
		validator: deps.Validator,
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /extensions", h.getExtensionOverview)
	router.HandleFunc("GET /extensions/fixed", h.getFixedExtensions)
	router.HandleFunc("PUT /extensions/fixed/{name}", h.updateFixedExtension)
	router.HandleFunc("GET /extensions/custom", h.getCustomExtensions)
	router.HandleFunc("POST /extensions/custom", h.addCustomExtension)
	router.HandleFunc("DELETE /extensions/custom/{name}", h.deleteCustomExtension)

	router.HandleFunc("POST /validate/file", h.validateFile)
	router.HandleFunc("POST /validate/files", h.validateFiles)

	router.HandleFunc("GET /test", getConnectionTest)
	router.HandleFunc("GET /version", getVersion)
	router.Handle("GET /metrics", promhttp.Handler())

	log.Debug("Routes opened")

	return metrics.Middleware(enableCORS(router))
}

// OpenRoutes serves handler on port until ctx is cancelled, then drains
// in-flight requests for the configured grace period.
func OpenRoutes(ctx context.Context, port int, handler http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		grace := config.GetConfig().ShutdownGrace
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		log.Info("Shutting down extfilter backend", "grace", grace)
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	log.Infof("Starting extfilter backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
