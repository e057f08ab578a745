package ipgeo

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neargrid/internal/domain"
)

func newTestSource(url string, attempts int) *Source {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		URL:            url,
		Timeout:        time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, logger)
}

func TestLocate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","lat":26.9124,"lon":75.7873,"city":"Jaipur"}`))
	}))
	defer srv.Close()

	coords, err := newTestSource(srv.URL, 1).Locate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 26.9124, Lng: 75.7873}, coords)
}

func TestLocate_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","lat":1.5,"lon":2.5}`))
	}))
	defer srv.Close()

	coords, err := newTestSource(srv.URL, 3).Locate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 1.5, Lng: 2.5}, coords)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLocate_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL, 2).Locate(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestLocate_FailStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL, 3).Locate(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCalculateBackoff(t *testing.T) {
	s := New(Config{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}, slog.Default())

	assert.Equal(t, 100*time.Millisecond, s.calculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, s.calculateBackoff(2))
	assert.Equal(t, 800*time.Millisecond, s.calculateBackoff(4))
	assert.Equal(t, time.Second, s.calculateBackoff(5))
}
