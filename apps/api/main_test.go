package main

import (
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestServe_ReturnsListenError(t *testing.T) {
	// Hold the port so ListenAndServe fails
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	stop := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() { done <- serve(srv, stop, time.Second) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected the listen error to be returned")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
}

func TestServe_StopsOnSignal(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	if err := serve(srv, stop, time.Second); err != nil {
		t.Errorf("expected a clean shutdown, got %v", err)
	}
}
