//go:build !windows

package service

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/HoracioDos/weewx-zabbix/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	goleak.VerifyTestMain(m)
}

func TestService_ReturnsRunError(t *testing.T) {
	want := errors.New("source failed")
	svc := New(func(ctx context.Context) error { return want })

	if err := svc.Run(context.Background()); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestService_StopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	svc := New(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	<-started
	svc.Stop()
	svc.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestService_SignalCancelsRun(t *testing.T) {
	started := make(chan struct{})
	svc := New(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	svc.signals = []os.Signal{syscall.SIGUSR1}

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	<-started
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to send signal: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after signal")
	}
}
