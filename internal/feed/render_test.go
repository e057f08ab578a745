package feed

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neargrid/internal/domain"
	"neargrid/testdata/utils"
)

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   *time.Time
		want string
	}{
		{"pending timestamp", nil, "just now"},
		{"seconds", utils.Ptr(now.Add(-30 * time.Second)), "just now"},
		{"minutes", utils.Ptr(now.Add(-5 * time.Minute)), "5m ago"},
		{"hours", utils.Ptr(now.Add(-3 * time.Hour)), "3h ago"},
		{"days", utils.Ptr(now.Add(-50 * time.Hour)), "2d ago"},
		{"future clock skew", utils.Ptr(now.Add(time.Minute)), "just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(now, tt.at))
		})
	}
}

func TestCardBuilder_Alert(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := NewCardBuilder(clockwork.NewFakeClockAt(now))

	item := b.Alert(Visible[domain.AlertRecord]{
		Record: domain.AlertRecord{
			ID:          "a1",
			Title:       "Gas Leak",
			Category:    domain.CategoryFire,
			Severity:    domain.SeverityHigh,
			Description: utils.Ptr("Smell near the station"),
			Location:    &domain.Coordinates{Lat: 26.9, Lng: 75.8},
			CreatedAt:   utils.Ptr(now.Add(-10 * time.Minute)),
		},
		DistanceKm: 1.234,
	})

	assert.Equal(t, FeedCard{
		ID:           "a1",
		Type:         domain.RecordTypeAlert,
		Category:     "Fire",
		Title:        "Gas Leak",
		Severity:     "High",
		Description:  "Smell near the station",
		Author:       "Guest Node",
		RelativeTime: "10m ago",
		Distance:     "1.23 km away",
		DistanceKm:   1.234,
	}, item.Card)
	require.NotNil(t, item.Marker)
	assert.Equal(t, Marker{ID: "a1", Lat: 26.9, Lng: 75.8, Color: CategoryColor(domain.CategoryFire), Popup: "Fire: Gas Leak"}, *item.Marker)
}

func TestCardBuilder_NewsWithoutLocationHasNoMarker(t *testing.T) {
	b := NewCardBuilder(clockwork.NewFakeClock())

	item := b.News(Visible[domain.NewsRecord]{
		Record: domain.NewsRecord{ID: "n1", Title: "Fair", ImageURL: utils.Ptr("https://img/1.png")},
	})

	assert.Nil(t, item.Marker)
	assert.Equal(t, "Anonymous", item.Card.Author)
	assert.Equal(t, "https://img/1.png", item.Card.ImageURL)
	assert.Equal(t, domain.RecordTypeNews, item.Card.Type)
}

func TestCategoryColor_Distinct(t *testing.T) {
	seen := map[string]domain.Category{}
	for _, c := range domain.AllCategories() {
		color := CategoryColor(c)
		prev, dup := seen[color]
		assert.False(t, dup, "%s shares colour with %s", c, prev)
		seen[color] = c
	}
	assert.Equal(t, defaultColor, CategoryColor("Weather"))
}

func TestBuildRenderPlan(t *testing.T) {
	b := NewCardBuilder(clockwork.NewFakeClock())
	visible := []Visible[domain.NewsRecord]{
		{Record: domain.NewsRecord{ID: "n2", Title: "Two"}},
		{Record: domain.NewsRecord{ID: "n1", Title: "One"}},
	}
	plan := Plan{ToRemove: []string{"n0"}, ToAdd: []string{"n2"}}

	rp := BuildRenderPlan(domain.CollectionNews, plan, visible, b.News)

	assert.Equal(t, domain.CollectionNews, rp.Kind)
	assert.Equal(t, []string{"n0"}, rp.Remove)
	require.Len(t, rp.Add, 1)
	assert.Equal(t, "n2", rp.Add[0].Card.ID)
	assert.Equal(t, []string{"n2", "n1"}, rp.Order)
	assert.False(t, rp.Empty)
	assert.True(t, rp.Changed())

	empty := BuildRenderPlan(domain.CollectionNews, Plan{}, []Visible[domain.NewsRecord]{}, b.News)
	assert.True(t, empty.Empty)
	assert.False(t, empty.Changed())
}
