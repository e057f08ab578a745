package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"neargrid/internal/domain"
)

// Notification channels carrying the id of the record that changed.
const (
	ChannelAlerts = "alerts_changed"
	ChannelNews   = "news_changed"
)

// ChannelFor returns the notification channel of a collection.
func ChannelFor(kind domain.CollectionKind) string {
	if kind == domain.CollectionNews {
		return ChannelNews
	}
	return ChannelAlerts
}

// KindForChannel maps a notification channel back to its collection.
func KindForChannel(channel string) (domain.CollectionKind, bool) {
	switch channel {
	case ChannelAlerts:
		return domain.CollectionAlerts, true
	case ChannelNews:
		return domain.CollectionNews, true
	}
	return "", false
}

// RecordWriter appends records and notifies subscribers in the same
// transaction, so listeners only hear about committed rows.
type RecordWriter struct {
	db        *sqlx.DB
	txManager *TransactionManager
	alerts    *AlertStore
	news      *NewsStore
}

func NewRecordWriter(db *sqlx.DB, txManager *TransactionManager, alerts *AlertStore, news *NewsStore) *RecordWriter {
	return &RecordWriter{
		db:        db,
		txManager: txManager,
		alerts:    alerts,
		news:      news,
	}
}

func (w *RecordWriter) AppendAlert(ctx context.Context, draft domain.AlertDraft) (string, error) {
	var id string
	err := w.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if id, err = w.alerts.Insert(ctx, draft); err != nil {
			return err
		}
		return w.notify(ctx, domain.CollectionAlerts, id)
	})
	if err != nil {
		return "", fmt.Errorf("append alert: %w", err)
	}
	return id, nil
}

func (w *RecordWriter) AppendNews(ctx context.Context, draft domain.NewsDraft) (string, error) {
	var id string
	err := w.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if id, err = w.news.Insert(ctx, draft); err != nil {
			return err
		}
		return w.notify(ctx, domain.CollectionNews, id)
	})
	if err != nil {
		return "", fmt.Errorf("append news: %w", err)
	}
	return id, nil
}

func (w *RecordWriter) notify(ctx context.Context, kind domain.CollectionKind, payload string) error {
	channel := ChannelFor(kind)
	if _, err := GetExecutor(ctx, w.db).ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, payload); err != nil {
		return fmt.Errorf("notify %s: %w", channel, err)
	}
	return nil
}

// Snapshots loads full collection snapshots.
type Snapshots struct {
	alerts *AlertStore
	news   *NewsStore
}

func NewSnapshots(alerts *AlertStore, news *NewsStore) *Snapshots {
	return &Snapshots{alerts: alerts, news: news}
}

// Snapshot loads the current contents of one collection.
func (s *Snapshots) Snapshot(ctx context.Context, kind domain.CollectionKind) (domain.Snapshot, error) {
	snap := domain.Snapshot{Kind: kind}

	var err error
	switch kind {
	case domain.CollectionAlerts:
		snap.Alerts, err = s.alerts.List(ctx)
	case domain.CollectionNews:
		snap.News, err = s.news.List(ctx)
	default:
		return snap, fmt.Errorf("unknown collection %q", kind)
	}
	return snap, err
}
