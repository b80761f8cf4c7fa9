// Package service runs the daemon until it is asked to stop.
package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

// RunFunc is the daemon body. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Service runs a RunFunc and cancels it on SIGINT or SIGTERM.
type Service struct {
	runFunc RunFunc
	signals []os.Signal

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New creates a Service around runFunc.
func New(runFunc RunFunc) *Service {
	return &Service{
		runFunc: runFunc,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Run blocks until runFunc returns. The first shutdown signal cancels its
// context; a second one returns without waiting.
func (s *Service) Run(ctx context.Context) error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, s.signals...)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- s.runFunc(ctx)
	}()

	log.Info().Bool("detached", s.Detached()).Msg("Service started")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		s.Stop()

		select {
		case err := <-done:
			return err
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
			return nil
		}

	case err := <-done:
		return err
	}
}

// Stop cancels the running RunFunc. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil && !s.stopped {
		s.stopped = true
		s.cancel()
	}
}

// Detached reports whether stdin is not a terminal, as under systemd or
// when packets are piped in.
func (s *Service) Detached() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
