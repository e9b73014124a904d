package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockHTTPServer blocks in ListenAndServe until Shutdown.
type mockHTTPServer struct {
	listenErr     error
	shutdownCount atomic.Int32
	started       chan struct{}
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.started <- struct{}{}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return nil
}

func TestHTTPServiceShutdown(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-server.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if server.shutdownCount.Load() != 1 {
		t.Errorf("Shutdown called %d times", server.shutdownCount.Load())
	}
}

func TestHTTPServiceListenError(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("address already in use")

	err := NewHTTPService(server, 0).Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Errorf("Serve = %v, want wrapped listen error", err)
	}
}

func TestTreeRunsServices(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{FailureBackoff: 100 * time.Millisecond, ShutdownTimeout: time.Second})

	started := make(chan struct{}, 1)
	rebuilder := &fakeRebuilder{hook: func(string) {
		select {
		case started <- struct{}{}:
		default:
		}
	}}
	tree.AddWorker(NewRebuildService(rebuilder, staticUsers{"alice"}, time.Hour, true))

	server := newMockHTTPServer()
	tree.AddAPI(NewHTTPService(server, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	<-started
	<-server.started
	cancel()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
	if server.shutdownCount.Load() != 1 {
		t.Error("http service should be shut down with the tree")
	}
}

func TestTreeDefaults(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v", tree.config)
	}
}
