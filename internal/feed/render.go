package feed

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"neargrid/internal/domain"
)

// categoryColors maps alert categories to marker colours.
var categoryColors = map[domain.Category]string{
	domain.CategorySafety:    "#ef4444",
	domain.CategoryTraffic:   "#f59e0b",
	domain.CategoryUtilities: "#3b82f6",
	domain.CategoryHealth:    "#10b981",
	domain.CategoryCommunity: "#a855f7",
	domain.CategoryFire:      "#f97316",
}

const (
	newsColor    = "#22d3ee"
	defaultColor = "#94a3b8"
)

// CategoryColor returns the marker colour of an alert category.
func CategoryColor(c domain.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return defaultColor
}

// FeedCard is the data shown for one record in the live feed.
type FeedCard struct {
	ID           string            `json:"id"`
	Type         domain.RecordType `json:"type"`
	Category     string            `json:"category,omitempty"`
	Title        string            `json:"title"`
	Severity     string            `json:"severity,omitempty"`
	Description  string            `json:"description,omitempty"`
	Author       string            `json:"author"`
	ImageURL     string            `json:"image_url,omitempty"`
	RelativeTime string            `json:"relative_time"`
	Distance     string            `json:"distance"`
	DistanceKm   float64           `json:"distance_km"`
}

// Marker is the map placement of one record.
type Marker struct {
	ID    string  `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Color string  `json:"color"`
	Popup string  `json:"popup"`
}

// Item is a record to be added to the rendered output. Marker is nil for
// records without coordinates.
type Item struct {
	Card   FeedCard `json:"card"`
	Marker *Marker  `json:"marker,omitempty"`
}

// RenderPlan is what the rendering layer applies for one collection.
type RenderPlan struct {
	Kind   domain.CollectionKind `json:"collection"`
	Remove []string              `json:"remove"`
	Add    []Item                `json:"add"`
	// Order is the full visible order after the plan is applied.
	Order []string `json:"order"`
	// Empty is set when nothing is visible, so the "no records in radius"
	// placeholder can be shown.
	Empty bool `json:"empty"`
}

// Changed reports whether the plan adds or removes anything.
func (p RenderPlan) Changed() bool {
	return len(p.Remove) > 0 || len(p.Add) > 0
}

// CardBuilder turns visible records into cards and markers.
type CardBuilder struct {
	clock clockwork.Clock
}

func NewCardBuilder(clock clockwork.Clock) CardBuilder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return CardBuilder{clock: clock}
}

// Alert builds the card and marker of a visible alert.
func (b CardBuilder) Alert(v Visible[domain.AlertRecord]) Item {
	a := v.Record
	card := FeedCard{
		ID:           a.ID,
		Type:         a.Type(),
		Category:     a.Category.String(),
		Title:        a.Title,
		Severity:     a.Severity.String(),
		Description:  deref(a.Description),
		Author:       nameOr(a.AuthorName, domain.DefaultAuthorName),
		RelativeTime: RelativeTime(b.clock.Now(), a.CreatedAt),
		Distance:     FormatDistance(v.DistanceKm),
		DistanceKm:   v.DistanceKm,
	}
	return Item{Card: card, Marker: marker(a.ID, a.Location, CategoryColor(a.Category), fmt.Sprintf("%s: %s", a.Category, a.Title))}
}

// News builds the card and marker of a visible news item.
func (b CardBuilder) News(v Visible[domain.NewsRecord]) Item {
	n := v.Record
	card := FeedCard{
		ID:           n.ID,
		Type:         n.Type(),
		Title:        n.Title,
		Description:  deref(n.Description),
		Author:       nameOr(n.ReporterName, domain.DefaultReporterName),
		ImageURL:     deref(n.ImageURL),
		RelativeTime: RelativeTime(b.clock.Now(), n.CreatedAt),
		Distance:     FormatDistance(v.DistanceKm),
		DistanceKm:   v.DistanceKm,
	}
	return Item{Card: card, Marker: marker(n.ID, n.Location, newsColor, "News: "+n.Title)}
}

// BuildRenderPlan attaches card and marker data for every added id.
func BuildRenderPlan[T domain.Record](kind domain.CollectionKind, plan Plan, visible []Visible[T], build func(Visible[T]) Item) RenderPlan {
	byID := make(map[string]Visible[T], len(visible))
	for _, v := range visible {
		if _, ok := byID[v.Record.RecordID()]; !ok {
			byID[v.Record.RecordID()] = v
		}
	}

	add := make([]Item, 0, len(plan.ToAdd))
	for _, id := range plan.ToAdd {
		if v, ok := byID[id]; ok {
			add = append(add, build(v))
		}
	}

	return RenderPlan{
		Kind:   kind,
		Remove: append([]string{}, plan.ToRemove...),
		Add:    add,
		Order:  dedupe(IDs(visible)),
		Empty:  len(visible) == 0,
	}
}

// RelativeTime formats how long ago t was. A missing timestamp means the
// store has not assigned one yet.
func RelativeTime(now time.Time, t *time.Time) string {
	if t == nil {
		return "just now"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

// FormatDistance renders a distance as "X.XX km away".
func FormatDistance(km float64) string {
	return fmt.Sprintf("%.2f km away", km)
}

func marker(id string, loc *domain.Coordinates, color, popup string) *Marker {
	if loc == nil {
		return nil
	}
	return &Marker{ID: id, Lat: loc.Lat, Lng: loc.Lng, Color: color, Popup: popup}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
