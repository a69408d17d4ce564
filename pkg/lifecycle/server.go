// Package lifecycle runs a long-lived service until it fails, its context
// ends, or the process is signaled.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfreeman451/firmwave/pkg/logger"
)

const (
	ShutdownTimeout = 10 * time.Second
)

var errNilService = errors.New("no service to run")

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions holds configuration for running a service.
type ServerOptions struct {
	ServiceName string
	Service     Service
	Logger      logger.Logger
	// Signals defaults to SIGINT and SIGTERM.
	Signals []os.Signal
	// ShutdownTimeout bounds Stop; it defaults to ShutdownTimeout.
	ShutdownTimeout time.Duration
}

// RunServer starts the service and blocks until a shutdown signal arrives,
// ctx is canceled, or Start returns. Stop is always called on the way out.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	if opts == nil || opts.Service == nil {
		return errNilService
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info().Str("service", opts.ServiceName).Msg("Starting service")

	errChan := make(chan error, 1)

	go func() {
		errChan <- opts.Service.Start(ctx)
	}()

	return handleShutdown(ctx, cancel, opts, log, errChan)
}

func handleShutdown(
	ctx context.Context, cancel context.CancelFunc, opts *ServerOptions, log logger.Logger, errChan chan error) error {
	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)

	defer signal.Stop(sigChan)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received signal, initiating shutdown")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Service failed, initiating shutdown")

			runErr = fmt.Errorf("service error: %w", err)
		} else {
			log.Info().Msg("Service exited, initiating shutdown")
		}
	case <-ctx.Done():
		log.Info().Msg("Context canceled, initiating shutdown")
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	cancel()

	if err := opts.Service.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during service shutdown")

		return errors.Join(runErr, fmt.Errorf("shutdown error: %w", err))
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service stopped")

	return runErr
}
