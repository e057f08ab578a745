package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"neargrid/internal/domain"
)

// SnapshotLoader loads the full contents of a collection.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, kind domain.CollectionKind) (domain.Snapshot, error)
}

// SubscriberConfig holds LISTEN connection settings.
type SubscriberConfig struct {
	DSN                  string
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
	PingInterval         time.Duration
}

// Subscriber turns Postgres notifications into full-snapshot events. Every
// notification on a collection's channel re-reads that whole collection.
type Subscriber struct {
	cfg    SubscriberConfig
	loader SnapshotLoader
	logger *slog.Logger

	events  chan domain.SnapshotEvent
	refresh chan struct{}
}

func NewSubscriber(cfg SubscriberConfig, loader SnapshotLoader, logger *slog.Logger) *Subscriber {
	if cfg.MinReconnectInterval <= 0 {
		cfg.MinReconnectInterval = time.Second
	}
	if cfg.MaxReconnectInterval < cfg.MinReconnectInterval {
		cfg.MaxReconnectInterval = time.Minute
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 90 * time.Second
	}
	return &Subscriber{
		cfg:     cfg,
		loader:  loader,
		logger:  logger.With("component", "subscriber"),
		events:  make(chan domain.SnapshotEvent, 16),
		refresh: make(chan struct{}, 1),
	}
}

// Events delivers snapshot events. It is closed when Run returns.
func (s *Subscriber) Events() <-chan domain.SnapshotEvent {
	return s.events
}

// Refresh asks Run to re-read both collections. Requests made while one is
// already pending are merged.
func (s *Subscriber) Refresh(ctx context.Context) error {
	select {
	case s.refresh <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Run listens until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	defer close(s.events)

	states := make(chan pq.ListenerEventType, 8)
	listener := pq.NewListener(s.cfg.DSN, s.cfg.MinReconnectInterval, s.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("listener event", "event", ev, "error", err)
			}
			select {
			case states <- ev:
			default:
			}
		})
	defer listener.Close()

	for _, channel := range []string{ChannelAlerts, ChannelNews} {
		if err := listener.Listen(channel); err != nil {
			return fmt.Errorf("listen %s: %w", channel, err)
		}
	}

	s.logger.Info("subscriber started")
	s.loadAll(ctx)

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopped")
			return nil
		case n := <-listener.Notify:
			s.handleNotification(ctx, n)
		case ev := <-states:
			s.handleListenerEvent(ctx, ev)
		case <-s.refresh:
			s.loadAll(ctx)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.logger.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

// handleNotification re-reads the collection named by n. A nil notification
// follows a reconnect, after which anything may have changed.
func (s *Subscriber) handleNotification(ctx context.Context, n *pq.Notification) {
	if n == nil {
		s.loadAll(ctx)
		return
	}

	kind, ok := KindForChannel(n.Channel)
	if !ok {
		s.logger.Warn("notification on unknown channel", "channel", n.Channel)
		return
	}
	s.logger.Debug("collection changed", "collection", kind, "record_id", n.Extra)
	s.load(ctx, kind)
}

func (s *Subscriber) handleListenerEvent(ctx context.Context, ev pq.ListenerEventType) {
	switch ev {
	case pq.ListenerEventDisconnected:
		s.logger.Warn("listener disconnected")
		for _, kind := range domain.Collections() {
			s.emit(ctx, domain.SnapshotEvent{Snapshot: domain.Snapshot{Kind: kind}, Offline: true})
		}
	case pq.ListenerEventReconnected:
		s.logger.Info("listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		s.logger.Warn("listener connection attempt failed")
	}
}

func (s *Subscriber) loadAll(ctx context.Context) {
	for _, kind := range domain.Collections() {
		s.load(ctx, kind)
	}
}

func (s *Subscriber) load(ctx context.Context, kind domain.CollectionKind) {
	snap, err := s.loader.Snapshot(ctx, kind)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("failed to load snapshot", "collection", kind, "error", err)
		s.emit(ctx, domain.SnapshotEvent{
			Snapshot: domain.Snapshot{Kind: kind},
			Err:      fmt.Errorf("%w: %s: %w", domain.ErrSubscription, kind, err),
		})
		return
	}
	s.emit(ctx, domain.SnapshotEvent{Snapshot: snap})
}

func (s *Subscriber) emit(ctx context.Context, ev domain.SnapshotEvent) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
