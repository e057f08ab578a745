// Package ipgeo resolves the viewer's approximate position through an
// IP geolocation HTTP API.
package ipgeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"neargrid/internal/domain"
)

const SourceID = "ipgeo"

// ErrUnavailable is returned when the API answers but cannot place the caller.
var ErrUnavailable = errors.New("location unavailable")

// Config holds geolocation source configuration.
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source looks up coordinates over HTTP.
type Source struct {
	httpClient     *http.Client
	url            string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new geolocation source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:            cfg.URL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// Locate returns the caller's coordinates. Transport failures are retried
// with exponential backoff; an explicit "fail" answer is not.
func (s *Source) Locate(ctx context.Context) (domain.Coordinates, error) {
	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx)
		if err == nil {
			break
		}

		if attempt == s.maxAttempts {
			return domain.Coordinates{}, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return domain.Coordinates{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if resp.Status != statusSuccess {
		return domain.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, resp.Message)
	}

	s.logger.Debug("located", "city", resp.City, "country", resp.Country)
	return domain.Coordinates{Lat: resp.Lat, Lng: resp.Lon}, nil
}

func (s *Source) doRequest(ctx context.Context) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NearGrid/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
