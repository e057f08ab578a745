package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neargrid/internal/domain"
	"neargrid/testdata/utils"
)

func alertAt(id string, created *time.Time) domain.AlertRecord {
	return domain.AlertRecord{
		ID:        id,
		Title:     "alert " + id,
		Category:  domain.CategorySafety,
		Severity:  domain.SeverityLow,
		Location:  &domain.Coordinates{Lat: DefaultLocation.Lat, Lng: DefaultLocation.Lng},
		CreatedAt: created,
	}
}

func TestRecordStore_InitialState(t *testing.T) {
	s := NewRecordStore()

	assert.Equal(t, domain.SyncStatusConnecting, s.Status(domain.CollectionAlerts))
	assert.Equal(t, domain.SyncStatusConnecting, s.Status(domain.CollectionNews))
	assert.Equal(t, domain.SyncStatusConnecting, s.Connectivity())
	assert.False(t, s.Synced(domain.CollectionAlerts))
	assert.Empty(t, s.Alerts())
	assert.Empty(t, s.News())
}

func TestRecordStore_ApplySnapshotSortsNewestFirst(t *testing.T) {
	s := NewRecordStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := domain.Snapshot{
		Kind: domain.CollectionAlerts,
		Alerts: []domain.AlertRecord{
			alertAt("old", utils.Ptr(base)),
			alertAt("pending-1", nil),
			alertAt("new", utils.Ptr(base.Add(time.Hour))),
			alertAt("pending-2", nil),
			alertAt("mid", utils.Ptr(base.Add(time.Minute))),
		},
	}
	require.NoError(t, s.ApplySnapshot(snap))

	var ids []string
	for _, a := range s.Alerts() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old", "pending-1", "pending-2"}, ids)
	assert.Equal(t, domain.SyncStatusSynced, s.Status(domain.CollectionAlerts))
	assert.True(t, s.Synced(domain.CollectionAlerts))

	// the caller's slice is left untouched
	assert.Equal(t, "old", snap.Alerts[0].ID)
}

func TestRecordStore_ApplySnapshotReplacesWholesale(t *testing.T) {
	s := NewRecordStore()
	now := time.Now()

	require.NoError(t, s.ApplySnapshot(domain.Snapshot{
		Kind:   domain.CollectionAlerts,
		Alerts: []domain.AlertRecord{alertAt("a", &now), alertAt("b", &now)},
	}))
	require.NoError(t, s.ApplySnapshot(domain.Snapshot{
		Kind:   domain.CollectionAlerts,
		Alerts: []domain.AlertRecord{alertAt("c", &now)},
	}))

	require.Len(t, s.Alerts(), 1)
	assert.Equal(t, "c", s.Alerts()[0].ID)
}

func TestRecordStore_ApplySnapshotUnknownKind(t *testing.T) {
	s := NewRecordStore()

	err := s.ApplySnapshot(domain.Snapshot{Kind: "comments"})
	assert.Error(t, err)
}

func TestRecordStore_ErrorKeepsLastSnapshot(t *testing.T) {
	s := NewRecordStore()
	now := time.Now()
	require.NoError(t, s.ApplySnapshot(domain.Snapshot{
		Kind:   domain.CollectionAlerts,
		Alerts: []domain.AlertRecord{alertAt("a", &now)},
	}))
	require.NoError(t, s.ApplySnapshot(domain.Snapshot{Kind: domain.CollectionNews}))

	streamErr := errors.New("stream closed")
	s.MarkError(domain.CollectionAlerts, streamErr)

	assert.Len(t, s.Alerts(), 1)
	assert.Equal(t, domain.SyncStatusError, s.Status(domain.CollectionAlerts))
	assert.Equal(t, domain.SyncStatusError, s.Connectivity())
	assert.ErrorIs(t, s.LastError(domain.CollectionAlerts), streamErr)
	assert.True(t, s.Synced(domain.CollectionAlerts))

	require.NoError(t, s.ApplySnapshot(domain.Snapshot{Kind: domain.CollectionAlerts}))
	assert.NoError(t, s.LastError(domain.CollectionAlerts))
	assert.Equal(t, domain.SyncStatusSynced, s.Connectivity())
}

func TestRecordStore_Connectivity(t *testing.T) {
	tests := []struct {
		name   string
		alerts domain.SyncStatus
		news   domain.SyncStatus
		want   domain.SyncStatus
	}{
		{"both synced", domain.SyncStatusSynced, domain.SyncStatusSynced, domain.SyncStatusSynced},
		{"one connecting", domain.SyncStatusSynced, domain.SyncStatusConnecting, domain.SyncStatusConnecting},
		{"offline beats connecting", domain.SyncStatusOffline, domain.SyncStatusConnecting, domain.SyncStatusOffline},
		{"error beats offline", domain.SyncStatusOffline, domain.SyncStatusError, domain.SyncStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRecordStore()
			s.status[domain.CollectionAlerts] = tt.alerts
			s.status[domain.CollectionNews] = tt.news

			assert.Equal(t, tt.want, s.Connectivity())
		})
	}
}

func TestRecordStore_MarkOffline(t *testing.T) {
	s := NewRecordStore()
	require.NoError(t, s.ApplySnapshot(domain.Snapshot{
		Kind: domain.CollectionNews,
		News: []domain.NewsRecord{{ID: "n1", Title: "fair"}},
	}))

	s.MarkOffline(domain.CollectionNews)

	assert.Equal(t, domain.SyncStatusOffline, s.Status(domain.CollectionNews))
	assert.Len(t, s.News(), 1)
}
