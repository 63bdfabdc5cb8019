package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openvitality/careline"
	"github.com/openvitality/careline/agents"
	"github.com/openvitality/careline/config"
	"github.com/openvitality/careline/dispatch"
	"github.com/openvitality/careline/intent"
	"github.com/openvitality/careline/internal/database"
	"github.com/openvitality/careline/internal/metrics"
	"github.com/openvitality/careline/internal/telemetry"
	"github.com/openvitality/careline/routing"
	"github.com/openvitality/careline/scheduler"
	"github.com/openvitality/careline/session"
	"github.com/openvitality/careline/types"
)

// Server wires and runs the whole service: pipeline, dispatch worker,
// scheduler, HTTP and metrics listeners.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	pipeline  *careline.Pipeline
	sessions  *session.Manager
	worker    *dispatch.Worker
	scheduler *scheduler.Scheduler
	providers *telemetry.Providers
	watcher   *config.Watcher
	pool      *database.Pool

	httpServer    *http.Server
	metricsServer *http.Server

	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewServer builds all components from configuration.
func NewServer(cfg *config.Config, loader *config.Loader, logger *zap.Logger, logLevel zap.AtomicLevel) (*Server, error) {
	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	collector := metrics.NewCollector("careline", logger)

	// Session store: Redis when configured, in-memory otherwise.
	storeConfig := session.StoreConfig{
		TTL:       cfg.Session.TTL,
		KeyPrefix: cfg.Session.KeyPrefix,
	}
	var store session.Store
	if cfg.Redis.Enabled {
		redisStore, err := session.NewRedisStore(context.Background(), session.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, storeConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = redisStore
	} else {
		logger.Info("redis disabled, using in-memory session store")
		store = session.NewMemoryStore(storeConfig)
	}

	// Turn log: optional.
	var history *session.HistoryStore
	var pool *database.Pool
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pool, err = database.NewPool(db, database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure database pool: %w", err)
		}
		history, err = session.NewHistoryStore(pool.DB(), logger)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
	}

	sessions, err := session.NewManager(store, history, collector, logger)
	if err != nil {
		return nil, err
	}

	// Dispatch queue and worker.
	queue := dispatch.NewBlockingQueue(nil)
	worker := dispatch.NewWorker(queue, dispatch.WorkerConfig{
		Workers:         cfg.Queue.Workers,
		PromoteInterval: cfg.Queue.PromoteInterval,
		MaxWait:         cfg.Queue.MaxWait,
	}, logger).WithMetrics(collector)
	registerTaskHandlers(worker, sessions, logger)

	escalate := func(ctx context.Context, sessionID, utterance string) error {
		task := dispatch.NewTask(dispatch.KindEmergencyEscalation, sessionID,
			types.PriorityCritical, map[string]string{"utterance": utterance})
		return worker.Dispatch(task)
	}

	registry, err := agents.BuildDefaultRegistry(escalate, logger)
	if err != nil {
		return nil, err
	}

	// Classifier: remote zero-shot when an endpoint is configured.
	var classifier intent.Classifier
	keyword := intent.NewKeywordClassifier(logger)
	if cfg.Intent.Endpoint != "" {
		classifier = intent.NewRemoteClassifier(intent.RemoteConfig{
			Endpoint:          cfg.Intent.Endpoint,
			APIKeys:           cfg.Intent.APIKeys,
			Threshold:         cfg.Intent.Threshold,
			Timeout:           cfg.Intent.Timeout,
			RequestsPerSecond: cfg.Intent.RequestsPerSecond,
		}, keyword, logger).WithMetrics(collector)
	} else {
		classifier = keyword
	}

	router := routing.NewConversationRouter(registry, logger).
		WithThreshold(cfg.Routing.ConfidenceThreshold).
		WithMetrics(collector)
	pipeline, err := careline.NewPipeline(classifier, router, sessions, registry, logger)
	if err != nil {
		return nil, err
	}
	pipeline = pipeline.WithMetrics(collector)

	watcher := config.NewWatcher(loader, 30*time.Second, logger)
	watcher.OnReload(applyReload(logLevel, logger))

	return &Server{
		cfg:       cfg,
		logger:    logger,
		pipeline:  pipeline,
		sessions:  sessions,
		worker:    worker,
		scheduler: scheduler.New(worker, logger),
		providers: providers,
		watcher:   watcher,
		pool:      pool,
		stopped:   make(chan struct{}),
	}, nil
}

// applyReload applies the settings that can change without a restart.
// Structural settings (ports, stores, pool sizes) still need one.
func applyReload(level zap.AtomicLevel, logger *zap.Logger) config.ReloadFunc {
	return func(cfg *config.Config) {
		next := parseLogLevel(cfg.Log.Level)
		if level.Level() != next {
			level.SetLevel(next)
			logger.Info("log level changed", zap.String("level", next.String()))
		}
	}
}

// Start launches the background loops and listeners.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		if err := s.worker.Run(ctx); err != nil {
			s.logger.Error("dispatch worker exited", zap.Error(err))
		}
	}()
	go func() {
		if err := s.scheduler.Run(ctx); err != nil {
			s.logger.Error("scheduler exited", zap.Error(err))
		}
	}()
	go s.watcher.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/conversation", s.handleConversation)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	go func() {
		s.logger.Info("http server listening", zap.Int("port", s.cfg.Server.HTTPPort))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metricsServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		Handler: metricsMux,
	}
	go func() {
		s.logger.Info("metrics server listening", zap.Int("port", s.cfg.Server.MetricsPort))
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) WaitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	s.logger.Info("shutdown signal received")
	s.Shutdown()
	<-s.stopped
}

// Shutdown stops listeners and background loops.
func (s *Server) Shutdown() {
	defer close(s.stopped)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Warn("metrics shutdown", zap.Error(err))
		}
	}

	// Stop worker, scheduler and watcher.
	if s.cancel != nil {
		s.cancel()
	}

	if err := s.sessions.Close(); err != nil {
		s.logger.Warn("session store close", zap.Error(err))
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Warn("database pool close", zap.Error(err))
		}
	}
	if err := s.providers.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.sessions.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": Version})
}

type conversationRequest struct {
	UserID    string `json:"user_id"`
	Utterance string `json:"utterance"`
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req conversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrInvalidRequest, "invalid request body").WithCause(err))
		return
	}
	if req.UserID == "" || req.Utterance == "" {
		writeError(w, types.NewError(types.ErrInvalidRequest, "user_id and utterance are required"))
		return
	}

	reply, err := s.pipeline.HandleUtterance(r.Context(), req.UserID, req.Utterance)
	if err != nil {
		s.logger.Error("turn failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

// writeError maps an error onto an HTTP status and a structured JSON body.
// Session-layer sentinels are promoted to coded errors; anything
// unrecognized reports as an internal error without leaking detail.
func writeError(w http.ResponseWriter, err error) {
	coded, ok := types.AsError(err)
	if !ok {
		switch {
		case errors.Is(err, session.ErrNotFound):
			coded = types.NewError(types.ErrNotFound, "session not found")
		case errors.Is(err, session.ErrStoreClosed):
			coded = types.NewError(types.ErrStoreClosed, "session store is shut down").WithRetryable(true)
		case errors.Is(err, session.ErrInvalidInput):
			coded = types.NewError(types.ErrInvalidRequest, "invalid session input")
		default:
			coded = types.NewError(types.ErrInternalError, "internal error")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errorStatus(coded.Code))
	json.NewEncoder(w).Encode(coded)
}

func errorStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest, types.ErrInvalidPriority:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrAgentUnavailable, types.ErrStoreClosed,
		types.ErrServiceUnavailable, types.ErrSchedulerStopped:
		return http.StatusServiceUnavailable
	case types.ErrClassifierFailure, types.ErrUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// registerTaskHandlers binds the deferred-work kinds. Escalation pages the
// on-call channel; the rest are logged placeholders until their outbound
// integrations land.
func registerTaskHandlers(worker *dispatch.Worker, sessions *session.Manager, logger *zap.Logger) {
	worker.Handle(dispatch.KindEmergencyEscalation, func(ctx context.Context, task *dispatch.Task) error {
		logger.Warn("EMERGENCY escalation",
			zap.String("session_id", task.SessionID),
			zap.String("utterance", task.Payload["utterance"]),
		)
		return nil
	})
	worker.Handle(dispatch.KindMedicationReminder, func(ctx context.Context, task *dispatch.Task) error {
		logger.Info("medication reminder due",
			zap.String("session_id", task.SessionID),
			zap.String("message", task.Payload["message"]),
		)
		return nil
	})
	worker.Handle(dispatch.KindFollowUpCall, func(ctx context.Context, task *dispatch.Task) error {
		logger.Info("follow-up call due", zap.String("session_id", task.SessionID))
		return nil
	})
	worker.Handle(dispatch.KindClinicianReview, func(ctx context.Context, task *dispatch.Task) error {
		logger.Info("clinician review requested", zap.String("session_id", task.SessionID))
		return nil
	})
	worker.Handle(dispatch.KindTranscriptExport, func(ctx context.Context, task *dispatch.Task) error {
		if task.SessionID == "" {
			return errors.New("transcript export without session id")
		}
		turns, err := sessions.History(ctx, task.SessionID, 0)
		if err != nil {
			return err
		}
		logger.Info("transcript exported",
			zap.String("session_id", task.SessionID),
			zap.Int("turns", len(turns)),
		)
		return nil
	})
}
