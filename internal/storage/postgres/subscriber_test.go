package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neargrid/internal/domain"
)

type fakeLoader struct {
	calls []domain.CollectionKind
	err   map[domain.CollectionKind]error
}

func (f *fakeLoader) Snapshot(_ context.Context, kind domain.CollectionKind) (domain.Snapshot, error) {
	f.calls = append(f.calls, kind)
	if err := f.err[kind]; err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{Kind: kind}
	if kind == domain.CollectionAlerts {
		snap.Alerts = []domain.AlertRecord{{ID: "a1", Title: "Smoke"}}
	}
	return snap, nil
}

func newTestSubscriber(loader SnapshotLoader) *Subscriber {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewSubscriber(SubscriberConfig{DSN: "unused"}, loader, logger)
}

func drain(s *Subscriber) []domain.SnapshotEvent {
	var out []domain.SnapshotEvent
	for {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSubscriber_NotificationReloadsOneCollection(t *testing.T) {
	loader := &fakeLoader{}
	s := newTestSubscriber(loader)

	s.handleNotification(context.Background(), &pq.Notification{Channel: ChannelAlerts, Extra: "a1"})

	assert.Equal(t, []domain.CollectionKind{domain.CollectionAlerts}, loader.calls)
	events := drain(s)
	require.Len(t, events, 1)
	assert.Equal(t, domain.CollectionAlerts, events[0].Kind())
	assert.NoError(t, events[0].Err)
	assert.Len(t, events[0].Snapshot.Alerts, 1)
}

func TestSubscriber_NilNotificationReloadsEverything(t *testing.T) {
	loader := &fakeLoader{}
	s := newTestSubscriber(loader)

	s.handleNotification(context.Background(), nil)

	assert.Equal(t, domain.Collections(), loader.calls)
	assert.Len(t, drain(s), 2)
}

func TestSubscriber_UnknownChannelIgnored(t *testing.T) {
	loader := &fakeLoader{}
	s := newTestSubscriber(loader)

	s.handleNotification(context.Background(), &pq.Notification{Channel: "comments_changed"})

	assert.Empty(t, loader.calls)
	assert.Empty(t, drain(s))
}

func TestSubscriber_LoadFailureEmitsError(t *testing.T) {
	loader := &fakeLoader{err: map[domain.CollectionKind]error{
		domain.CollectionNews: errors.New("connection reset"),
	}}
	s := newTestSubscriber(loader)

	s.handleNotification(context.Background(), &pq.Notification{Channel: ChannelNews})

	events := drain(s)
	require.Len(t, events, 1)
	assert.Equal(t, domain.CollectionNews, events[0].Kind())
	assert.ErrorIs(t, events[0].Err, domain.ErrSubscription)
}

func TestSubscriber_DisconnectEmitsOffline(t *testing.T) {
	s := newTestSubscriber(&fakeLoader{})

	s.handleListenerEvent(context.Background(), pq.ListenerEventDisconnected)

	events := drain(s)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.True(t, ev.Offline)
	}
}

func TestSubscriber_RefreshMerges(t *testing.T) {
	s := newTestSubscriber(&fakeLoader{})

	require.NoError(t, s.Refresh(context.Background()))
	require.NoError(t, s.Refresh(context.Background()))

	assert.Len(t, s.refresh, 1)
}

func TestKindForChannel(t *testing.T) {
	for _, kind := range domain.Collections() {
		got, ok := KindForChannel(ChannelFor(kind))
		assert.True(t, ok)
		assert.Equal(t, kind, got)
	}

	_, ok := KindForChannel("other")
	assert.False(t, ok)
}
