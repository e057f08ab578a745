package domain

import (
	"fmt"
	"strings"
)

// Category classifies an alert.
type Category string

const (
	CategorySafety    Category = "Safety"
	CategoryTraffic   Category = "Traffic"
	CategoryUtilities Category = "Utilities"
	CategoryHealth    Category = "Health"
	CategoryCommunity Category = "Community"
	CategoryFire      Category = "Fire"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategorySafety,
		CategoryTraffic,
		CategoryUtilities,
		CategoryHealth,
		CategoryCommunity,
		CategoryFire,
	}
}

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategorySafety, CategoryTraffic, CategoryUtilities, CategoryHealth, CategoryCommunity, CategoryFire:
		return true
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories() {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", NewValidationError("category", fmt.Sprintf("unknown category %q", s))
}

// Severity grades how urgent an alert is.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

func (s Severity) String() string { return string(s) }

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// ParseSeverity matches a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	for _, v := range []Severity{SeverityLow, SeverityMedium, SeverityHigh} {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, nil
		}
	}
	return "", NewValidationError("severity", fmt.Sprintf("unknown severity %q", s))
}

// CollectionKind names one of the two independently synced record collections.
type CollectionKind string

const (
	CollectionAlerts CollectionKind = "alerts"
	CollectionNews   CollectionKind = "news"
)

// Collections returns both collection kinds in a fixed order.
func Collections() []CollectionKind {
	return []CollectionKind{CollectionAlerts, CollectionNews}
}

func (k CollectionKind) String() string { return string(k) }

func (k CollectionKind) IsValid() bool {
	return k == CollectionAlerts || k == CollectionNews
}

// RecordType tags a record so alert and news payloads can be told apart.
type RecordType string

const (
	RecordTypeAlert RecordType = "alert"
	RecordTypeNews  RecordType = "news"
)

// SyncStatus is the last known state of a collection's subscription.
type SyncStatus string

const (
	SyncStatusConnecting SyncStatus = "connecting"
	SyncStatusSynced     SyncStatus = "synced"
	SyncStatusError      SyncStatus = "error"
	SyncStatusOffline    SyncStatus = "offline"
)

func (s SyncStatus) String() string { return string(s) }

// MissingLocationPolicy decides how records without coordinates are projected.
type MissingLocationPolicy string

const (
	// MissingLocationExclude drops records that carry no coordinates.
	MissingLocationExclude MissingLocationPolicy = "exclude"
	// MissingLocationNearby treats records without coordinates as located at the viewer.
	MissingLocationNearby MissingLocationPolicy = "nearby"
)

func (p MissingLocationPolicy) IsValid() bool {
	return p == MissingLocationExclude || p == MissingLocationNearby
}
