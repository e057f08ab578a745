package domain

import "time"

const (
	DefaultAuthorName   = "Guest Node"
	DefaultReporterName = "Anonymous"
)

// Coordinates is a WGS-84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AlertRecord is a community alert as delivered by the store.
type AlertRecord struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Category    Category     `json:"category"`
	Severity    Severity     `json:"severity"`
	Description *string      `json:"description,omitempty"`
	Location    *Coordinates `json:"location,omitempty"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	AuthorName  string       `json:"author_name"`
}

func (a AlertRecord) RecordID() string { return a.ID }
func (a AlertRecord) Coords() *Coordinates { return a.Location }
func (a AlertRecord) Timestamp() *time.Time { return a.CreatedAt }
func (a AlertRecord) Type() RecordType { return RecordTypeAlert }

// NewsRecord is a local news item as delivered by the store.
type NewsRecord struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  *string      `json:"description,omitempty"`
	ImageURL     *string      `json:"image_url,omitempty"`
	ReporterName string       `json:"reporter_name"`
	Location     *Coordinates `json:"location,omitempty"`
	CreatedAt    *time.Time   `json:"created_at,omitempty"`
}

func (n NewsRecord) RecordID() string { return n.ID }
func (n NewsRecord) Coords() *Coordinates { return n.Location }
func (n NewsRecord) Timestamp() *time.Time { return n.CreatedAt }
func (n NewsRecord) Type() RecordType { return RecordTypeNews }

// Record is the part of a record the feed engine needs regardless of its kind.
type Record interface {
	RecordID() string
	Coords() *Coordinates
	Timestamp() *time.Time
}

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	Subject     string  `json:"subject"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// AlertDraft holds the fields of an alert about to be written to the store.
type AlertDraft struct {
	Title       string
	Category    Category
	Severity    Severity
	Description *string
	Location    Coordinates
	AuthorName  string
}

// NewsDraft holds the fields of a news item about to be written to the store.
type NewsDraft struct {
	Title        string
	Description  *string
	ImageURL     *string
	ReporterName string
	Location     Coordinates
}
