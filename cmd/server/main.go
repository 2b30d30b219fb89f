package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lychee-technology/datamimic"
	"github.com/lychee-technology/datamimic/factory"
	"go.uber.org/zap"
)

// Server represents the HTTP server with DatasetManager
type Server struct {
	manager datamimic.DatasetManager
	config  *datamimic.Config
	mux     *http.ServeMux
	ready   func(context.Context) error
}

// NewServer creates a new Server instance
func NewServer(manager datamimic.DatasetManager, config *datamimic.Config) *Server {
	return &Server{
		manager: manager,
		config:  config,
		mux:     http.NewServeMux(),
	}
}

// WithReadiness sets the dependency check behind /readyz.
func (s *Server) WithReadiness(check func(context.Context) error) *Server {
	s.ready = check
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	s.mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	s.mux.HandleFunc("GET /api/v1/schemas", s.handleListSchemas)
	s.mux.HandleFunc("GET /api/v1/schemas/{name}/columns", s.handleSchemaColumns)
	s.mux.HandleFunc("GET /api/v1/schemas/{name}/document", s.handleSchemaDocument)
	s.mux.HandleFunc("GET /api/v1/localities", s.handleLocalities)

	s.mux.HandleFunc("POST /api/v1/datasets", s.handleUpload)
	s.mux.HandleFunc("GET /api/v1/datasets/{handle}/preview", s.handlePreview)
	s.mux.HandleFunc("GET /api/v1/datasets/{handle}/summary", s.handleSummary)
	s.mux.HandleFunc("POST /api/v1/datasets/{handle}/actions", s.handleAction)
	s.mux.HandleFunc("GET /api/v1/datasets/{handle}/download", s.handleDownload)
	s.mux.HandleFunc("POST /api/v1/datasets/{handle}/export", s.handleExport)
	s.mux.HandleFunc("DELETE /api/v1/datasets/{handle}", s.handleDelete)

	s.mux.HandleFunc("GET /api/v1/usage", s.handleUsage)
}

// Handler returns the routed mux wrapped in the default middleware chain.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(requestIDMiddleware, recoveryMiddleware)(s.mux)
}

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	config, err := loadConfig(getEnv("CONFIG_FILE", ""))
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(config.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := factory.NewDatasetManagerWithConfig(ctx, config)
	if err != nil {
		sugar.Fatalf("failed to initialize dataset manager: %v", err)
	}
	defer components.Close()

	go components.Janitor.Run(ctx)

	server := NewServer(components.Manager, config).WithReadiness(components.Ready)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:         config.Server.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("server shutdown failed", "err", err)
		}
	}()

	sugar.Infow("starting server", "addr", config.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("server error: %v", err)
	}
	sugar.Info("server stopped")
}
