package domain

// Snapshot is a full replacement of one collection's contents.
type Snapshot struct {
	Kind   CollectionKind
	Alerts []AlertRecord
	News   []NewsRecord
}

// Len returns the number of records carried for the snapshot's kind.
func (s Snapshot) Len() int {
	if s.Kind == CollectionNews {
		return len(s.News)
	}
	return len(s.Alerts)
}

// SnapshotEvent is what a subscription delivers: a snapshot, a failure, or a
// loss of connectivity for one collection.
type SnapshotEvent struct {
	Snapshot Snapshot
	Err      error
	Offline  bool
}

// Kind returns the collection the event belongs to.
func (e SnapshotEvent) Kind() CollectionKind { return e.Snapshot.Kind }
