// Package feed holds the proximity-filtered feed: the latest record
// snapshots, the viewer's parameters, the projection of visible records and
// the reconciliation of that projection against what is already rendered.
package feed

import (
	"fmt"
	"sort"

	"neargrid/internal/domain"
)

// RecordStore keeps the most recent full snapshot of each collection.
// It is not safe for concurrent use; the owning service serialises access.
type RecordStore struct {
	alerts  []domain.AlertRecord
	news    []domain.NewsRecord
	status  map[domain.CollectionKind]domain.SyncStatus
	lastErr map[domain.CollectionKind]error
	synced  map[domain.CollectionKind]bool
}

// NewRecordStore creates a store in which no snapshot has been received yet.
func NewRecordStore() *RecordStore {
	s := &RecordStore{
		status:  make(map[domain.CollectionKind]domain.SyncStatus),
		lastErr: make(map[domain.CollectionKind]error),
		synced:  make(map[domain.CollectionKind]bool),
	}
	for _, kind := range domain.Collections() {
		s.status[kind] = domain.SyncStatusConnecting
	}
	return s
}

// ApplySnapshot replaces the stored records of the snapshot's kind and
// re-sorts them newest first. Records are not deduplicated.
func (s *RecordStore) ApplySnapshot(snap domain.Snapshot) error {
	switch snap.Kind {
	case domain.CollectionAlerts:
		s.alerts = sortByRecency(snap.Alerts)
	case domain.CollectionNews:
		s.news = sortByRecency(snap.News)
	default:
		return fmt.Errorf("apply snapshot: unknown collection %q", snap.Kind)
	}

	s.status[snap.Kind] = domain.SyncStatusSynced
	s.synced[snap.Kind] = true
	delete(s.lastErr, snap.Kind)
	return nil
}

// MarkError records a subscription failure. The last good snapshot is kept.
func (s *RecordStore) MarkError(kind domain.CollectionKind, err error) {
	s.status[kind] = domain.SyncStatusError
	s.lastErr[kind] = err
}

// MarkOffline records a lost connection. The last good snapshot is kept.
func (s *RecordStore) MarkOffline(kind domain.CollectionKind) {
	s.status[kind] = domain.SyncStatusOffline
}

// Status returns the sync status of one collection.
func (s *RecordStore) Status(kind domain.CollectionKind) domain.SyncStatus {
	if st, ok := s.status[kind]; ok {
		return st
	}
	return domain.SyncStatusConnecting
}

// LastError returns the most recent subscription error of a collection, if
// the collection is currently in the error state.
func (s *RecordStore) LastError(kind domain.CollectionKind) error {
	return s.lastErr[kind]
}

// Synced reports whether at least one snapshot of the collection arrived.
func (s *RecordStore) Synced(kind domain.CollectionKind) bool {
	return s.synced[kind]
}

// Connectivity folds the per-collection statuses into the single indicator
// shown to the user. Errors win over offline, offline over connecting.
func (s *RecordStore) Connectivity() domain.SyncStatus {
	rank := map[domain.SyncStatus]int{
		domain.SyncStatusSynced:     0,
		domain.SyncStatusConnecting: 1,
		domain.SyncStatusOffline:    2,
		domain.SyncStatusError:      3,
	}

	worst := domain.SyncStatusSynced
	for _, kind := range domain.Collections() {
		if st := s.Status(kind); rank[st] > rank[worst] {
			worst = st
		}
	}
	return worst
}

// Alerts returns the stored alerts, newest first. Callers must not modify it.
func (s *RecordStore) Alerts() []domain.AlertRecord { return s.alerts }

// News returns the stored news items, newest first. Callers must not modify it.
func (s *RecordStore) News() []domain.NewsRecord { return s.news }

// sortByRecency returns a copy of records ordered by creation time, newest
// first. Records without a timestamp sort after every timestamped record and
// ties keep their delivery order.
func sortByRecency[T domain.Record](records []T) []T {
	out := make([]T, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Timestamp(), out[j].Timestamp()
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	return out
}
