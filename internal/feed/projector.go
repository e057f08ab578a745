package feed

import (
	"strings"

	"neargrid/internal/domain"
	"neargrid/internal/geo"
)

// Visible is a record that passed the projection, with its distance from
// the viewer.
type Visible[T domain.Record] struct {
	Record     T
	DistanceKm float64
}

// Projector derives the visible subset of each collection. It is pure: the
// same records and parameters always give the same ordered output.
type Projector struct {
	missingLocation domain.MissingLocationPolicy
}

// NewProjector creates a projector. An unknown policy falls back to excluding
// records without coordinates.
func NewProjector(policy domain.MissingLocationPolicy) Projector {
	if !policy.IsValid() {
		policy = domain.MissingLocationExclude
	}
	return Projector{missingLocation: policy}
}

// Alerts returns the alerts within the radius whose category is active and
// which match the search text by title or category. Store order is kept.
func (p Projector) Alerts(records []domain.AlertRecord, params Params) []Visible[domain.AlertRecord] {
	query := normalizeQuery(params.SearchText)
	return project(records, params, p.missingLocation, func(a domain.AlertRecord) bool {
		if !params.CategoryActive(a.Category) {
			return false
		}
		return query == "" || containsFold(a.Title, query) || containsFold(string(a.Category), query)
	})
}

// News returns the news items within the radius which match the search text
// by title or reporter. Store order is kept.
func (p Projector) News(records []domain.NewsRecord, params Params) []Visible[domain.NewsRecord] {
	query := normalizeQuery(params.SearchText)
	return project(records, params, p.missingLocation, func(n domain.NewsRecord) bool {
		return query == "" || containsFold(n.Title, query) || containsFold(n.ReporterName, query)
	})
}

func project[T domain.Record](records []T, params Params, policy domain.MissingLocationPolicy, match func(T) bool) []Visible[T] {
	out := make([]Visible[T], 0, len(records))
	for _, r := range records {
		dist, ok := distanceTo(params.Location, r.Coords(), policy)
		if !ok || !(dist <= params.RadiusKm) {
			continue
		}
		if !match(r) {
			continue
		}
		out = append(out, Visible[T]{Record: r, DistanceKm: dist})
	}
	return out
}

func distanceTo(from domain.Coordinates, to *domain.Coordinates, policy domain.MissingLocationPolicy) (float64, bool) {
	if to == nil {
		if policy == domain.MissingLocationNearby {
			return 0, true
		}
		return 0, false
	}
	return geo.DistanceKm(from, *to), true
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// containsFold reports whether s contains the lower-cased query.
func containsFold(s, query string) bool {
	return strings.Contains(strings.ToLower(s), query)
}

// IDs lists the record identifiers of a projection in order.
func IDs[T domain.Record](visible []Visible[T]) []string {
	ids := make([]string, len(visible))
	for i, v := range visible {
		ids[i] = v.Record.RecordID()
	}
	return ids
}
