package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"pageguard/internal/config"
	"pageguard/internal/utils/logger"
)

var queues = map[string]int{
	QueueCritical: 6, // High priority
	QueueDefault:  3, // Medium priority
	QueueLow:      1, // Low priority
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	concurrency int
	logger      *logger.Logger
}

// NewServer creates a new task processing server
func NewServer(cfg config.RedisConfig, concurrency int, handler *TaskHandler) *Server {
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		// Enable strict priority, meaning higher priority queues are processed first
		StrictPriority: true,
	})

	return &Server{
		server:      server,
		handler:     handler,
		concurrency: concurrency,
		logger:      logger.New("TASK-SERVER"),
	}
}

// NewMux routes every task type to its handler.
func NewMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeOTPEmail, h.HandleOTPEmail)
	mux.HandleFunc(TaskTypePurgeExpired, h.HandlePurgeExpired)
	return mux
}

// Start starts the task processing server
func (s *Server) Start() error {
	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, queues)

	if err := s.server.Start(NewMux(s.handler)); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
