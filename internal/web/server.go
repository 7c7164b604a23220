package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the results viewer
// and the slide/record JSON API.
func NewServer(db *sql.DB, cfg *config.Config, version, bind string, port int) (*http.Server, error) {
	h, err := newHandlers(db, cfg, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           newRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(db *sql.DB, cfg *config.Config, version string) (*Handlers, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	return &Handlers{
		db:       db,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
	}, nil
}

func newRouter(h *Handlers) *mux.Router {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	r := mux.NewRouter()
	r.Use(requestLogger, securityHeaders)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/slides", http.StatusFound)
	}).Methods(http.MethodGet)
	r.HandleFunc("/slides", h.HandleSlides).Methods(http.MethodGet)
	r.HandleFunc("/results/{slideID}", h.HandleResults).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/slides/{id}", h.HandleGetSlide).Methods(http.MethodGet)
	api.HandleFunc("/slides/{id}", h.HandlePutSlide).Methods(http.MethodPut)
	api.HandleFunc("/slides/{id}/records", h.HandleSubmitRecord).Methods(http.MethodPost)
	api.HandleFunc("/slides/{id}/capture", h.HandleCapture).Methods(http.MethodPost)
	api.HandleFunc("/records", h.HandleListRecords).Methods(http.MethodGet)
	api.HandleFunc("/records", h.HandleDeleteRecords).Methods(http.MethodDelete)
	api.HandleFunc("/records/{id}", h.HandleGetRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}/replay.png", h.HandleReplay).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}/overlay", h.HandleOverlay).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServerFS(staticSub))).Methods(http.MethodGet)

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Logger().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log := logging.Logger()
	log.Info("lamina server running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
