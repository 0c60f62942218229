// Package server exposes the pipeline over HTTP: job submission, status,
// lineage, and audit reports.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/dataforge/internal/observability/metrics"
	"github.com/inferloop/dataforge/pkg/models"
)

// Runner executes one job end to end. The pipeline conductor satisfies it.
type Runner interface {
	Run(ctx context.Context, job *models.Job) (*models.Job, error)
}

// Config contains server configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

func getDefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Server is the HTTP front end for the pipeline.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	runner     Runner
	metrics    *metrics.PipelineMetrics
	logger     *logrus.Logger
	config     *Config

	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewServer(config *Config, runner Runner, m *metrics.PipelineMetrics, logger *logrus.Logger) *Server {
	if config == nil {
		config = getDefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		router:  mux.NewRouter(),
		runner:  runner,
		metrics: m,
		logger:  logger,
		config:  config,
		jobs:    make(map[string]*models.Job),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.recoveryMiddleware, s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/jobs", s.handleSubmitJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/lineage", s.handleGetLineage).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/report", s.handleGetReport).Methods(http.MethodGet)
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Infof("Starting HTTP server on %s:%d", s.config.Host, s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// storeJob keeps an immutable snapshot of the job and returns it. The
// pipeline mutates the live job while it runs, so handlers only ever
// encode snapshots.
func (s *Server) storeJob(job *models.Job) *models.Job {
	snap := job.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[snap.ID] = snap
	return snap
}

func (s *Server) lookupJob(id string) (*models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *Server) listJobs() []*models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out
}
