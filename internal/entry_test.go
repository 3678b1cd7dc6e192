package internal

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/starford/waypoint/internal/storage"
)

func TestNewHandler_HealthAndAPI(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage = StorageConfig{Driver: storage.DriverMemory}

	_, tr, err := openTracker(cfg, newDiscardLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(cfg, tr, nil)

	for _, path := range []string{"/health/live", "/health/ready", "/api/goals"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}
}

func TestNewLogger_FansOutToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "waypoint.log")
	var stdout bytes.Buffer

	logger, closeLog, err := newLogger(ApplicationConfig{LogFile: logFile}, &stdout)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file = %q", data)
	}
	if !strings.Contains(stdout.String(), `"msg":"hello"`) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(t.Context()); err == nil {
		t.Fatal("expected error without config")
	}
	if err := RunMCP(t.Context()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_StopsOnSignalWithFSDriver(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage = StorageConfig{Driver: storage.DriverFS, Path: t.TempDir()}
	cfg.App.HTTP.Port = freePort(t)

	done := make(chan error, 1)
	go func() {
		done <- Run(t.Context(), WithConfig(cfg), WithLogOutput(io.Discard))
	}()

	// Wait until the server answers so the signal handler is installed.
	url := fmt.Sprintf("http://127.0.0.1:%d/health/live", cfg.App.HTTP.Port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after SIGINT")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newDiscardLogger(t *testing.T) *slog.Logger {
	t.Helper()
	logger, _, err := newLogger(ApplicationConfig{}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return logger
}
