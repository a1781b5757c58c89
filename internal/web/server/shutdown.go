package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// GracefulShutdown runs a server until a signal or context cancellation,
// drains it and then runs cleanup hooks
type GracefulShutdown struct {
	server        *Server
	shutdownHooks []ShutdownHook
	timeout       time.Duration
	signals       []os.Signal
	logger        *zap.Logger
	mu            sync.Mutex
}

// ShutdownHook is a function called during graceful shutdown
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig holds graceful shutdown configuration
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for shutdown
	Timeout time.Duration

	// Signals to listen for (default: SIGINT, SIGTERM)
	Signals []os.Signal

	Logger *zap.Logger
}

// NewGracefulShutdown creates a new graceful shutdown handler
func NewGracefulShutdown(server *Server, config ShutdownConfig) *GracefulShutdown {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if len(config.Signals) == 0 {
		config.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &GracefulShutdown{
		server:  server,
		timeout: config.Timeout,
		signals: config.Signals,
		logger:  config.Logger,
	}
}

// RegisterHook registers a hook run once the server has drained
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.shutdownHooks = append(gs.shutdownHooks, hook)
}

// Run serves until ctx is done or a signal arrives, then shuts down
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, gs.signals...)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- gs.server.Start()
	}()
	gs.logger.Info("server starting", zap.String("addr", gs.server.config.Address))

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		gs.logger.Info("shutdown requested", zap.Duration("timeout", gs.timeout))
	}

	if err := gs.shutdown(); err != nil {
		return err
	}
	return <-errChan
}

func (gs *GracefulShutdown) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	gs.mu.Lock()
	hooks := make([]ShutdownHook, len(gs.shutdownHooks))
	copy(hooks, gs.shutdownHooks)
	gs.mu.Unlock()

	// stop accepting first so hooks can release backends safely
	err := gs.server.Shutdown(ctx)
	if err != nil {
		gs.logger.Error("server shutdown failed", zap.Error(err))
	}
	for i, hook := range hooks {
		if herr := hook(ctx); herr != nil {
			// Continue with other hooks
			gs.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(herr))
		}
	}
	if err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	gs.logger.Info("server stopped")
	return nil
}
