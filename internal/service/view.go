package service

import (
	"context"

	"neargrid/internal/domain"
	"neargrid/internal/feed"
)

// CollectionView is the full rendered state of one collection.
type CollectionView struct {
	Status domain.SyncStatus `json:"status"`
	// Error is the last subscription error, set while Status is error.
	Error string      `json:"error,omitempty"`
	Items []feed.Item `json:"items"`
	Empty bool        `json:"empty"`
}

// View is a read-only picture of the session, as the rendering layer would
// show it after applying every published plan.
type View struct {
	Location      domain.Coordinates `json:"location"`
	RadiusKm      float64            `json:"radius_km"`
	RadiusPresets []float64          `json:"radius_presets"`
	Categories    []domain.Category  `json:"categories"`
	SearchText    string             `json:"search_text"`
	User          *domain.Identity   `json:"user,omitempty"`
	Compose       ComposeView        `json:"compose"`
	Connectivity  domain.SyncStatus  `json:"connectivity"`
	Submitting    bool               `json:"submitting"`
	Alerts        CollectionView     `json:"alerts"`
	News          CollectionView     `json:"news"`
}

type ComposeView struct {
	Category domain.Category `json:"category"`
	Severity domain.Severity `json:"severity"`
}

// View returns the current projection of both collections.
func (s *FeedService) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func(context.Context) error {
		v = s.snapshotView()
		return nil
	})
	return v, err
}

func (s *FeedService) snapshotView() View {
	params := s.view.Params()
	category, severity := s.view.Compose()

	var user *domain.Identity
	if u := s.view.User(); u != nil {
		copied := *u
		user = &copied
	}

	alerts := s.projector.Alerts(s.store.Alerts(), params)
	alertItems := make([]feed.Item, 0, len(alerts))
	for _, a := range alerts {
		alertItems = append(alertItems, s.cards.Alert(a))
	}

	news := s.projector.News(s.store.News(), params)
	newsItems := make([]feed.Item, 0, len(news))
	for _, n := range news {
		newsItems = append(newsItems, s.cards.News(n))
	}

	return View{
		Location:      s.view.Location(),
		RadiusKm:      s.view.RadiusKm(),
		RadiusPresets: s.view.Presets(),
		Categories:    s.view.ActiveCategories(),
		SearchText:    s.view.SearchText(),
		User:          user,
		Compose:       ComposeView{Category: category, Severity: severity},
		Connectivity:  s.store.Connectivity(),
		Submitting:    s.submitting,
		Alerts:        s.collectionView(domain.CollectionAlerts, alertItems),
		News:          s.collectionView(domain.CollectionNews, newsItems),
	}
}

func (s *FeedService) collectionView(kind domain.CollectionKind, items []feed.Item) CollectionView {
	v := CollectionView{
		Status: s.store.Status(kind),
		Items:  items,
		Empty:  len(items) == 0,
	}
	if err := s.store.LastError(kind); err != nil {
		v.Error = err.Error()
	}
	return v
}
