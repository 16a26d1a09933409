package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyStatus(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "foods.fcar")
	require.NoError(t, os.WriteFile(archive, []byte("x"), 0o644))

	c := NewChecker()
	c.Register("archive", File(archive))
	c.Register("redis", Ping(func(context.Context) error { return errors.New("connection refused") }, false))
	c.Register("postgres", Ping(nil, false))

	report := c.Run(context.Background())
	require.Equal(t, StatusDegraded, report.Status)
	require.Equal(t, StatusUp, report.Components["archive"].Status)
	require.Equal(t, "connection refused", report.Components["redis"].Message)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	c.Register("archive", File(filepath.Join(t.TempDir(), "missing.fcar")))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequiredPingFailureIsDown(t *testing.T) {
	c := NewChecker()
	c.Register("foods", Ping(nil, true))
	c.Register("redis", Ping(func(context.Context) error { return nil }, false))
	report := c.Run(context.Background())
	require.Equal(t, StatusDown, report.Status)
	require.Equal(t, "not configured", report.Components["foods"].Message)
	require.Equal(t, StatusUp, report.Components["redis"].Status)
}
