package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"

	"neargrid/internal/config"
	"neargrid/internal/domain"
	"neargrid/internal/feed"
	"neargrid/internal/notify"
	"neargrid/internal/observability"
)

// ErrStopped is returned by operations issued after the event loop exited.
var ErrStopped = errors.New("feed service stopped")

// AlertInput is what the user typed into the alert form. Category and
// severity come from the compose selection.
type AlertInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// NewsInput is what the user typed into the news form.
type NewsInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Draft is a submission kept after a failed write so it can be resent.
type Draft struct {
	Kind  domain.CollectionKind `json:"collection"`
	Alert *AlertInput           `json:"alert,omitempty"`
	News  *NewsInput            `json:"news,omitempty"`
}

// FeedService owns the session state. Every mutation runs on the goroutine
// executing Run; public methods hand work to it and wait for the result.
type FeedService struct {
	writer   RecordWriter
	renderer Renderer
	identity IdentityProvider
	locator  Locator
	notifier Notifier
	metrics  *observability.Metrics
	clock    clockwork.Clock
	logger   *slog.Logger
	config   config.FeedConfig

	store     *feed.RecordStore
	view      *feed.ViewState
	rendered  *feed.RenderSync
	published map[domain.CollectionKind]bool
	projector feed.Projector
	cards     feed.CardBuilder

	submitting bool
	draft      *Draft
	lastStatus domain.SyncStatus

	work chan func(ctx context.Context)
	done chan struct{}
}

func NewFeedService(
	writer RecordWriter,
	renderer Renderer,
	identity IdentityProvider,
	locator Locator,
	notifier Notifier,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger *slog.Logger,
	cfg config.FeedConfig,
) (*FeedService, error) {
	location := feed.DefaultLocation
	if cfg.DefaultLocation != nil {
		location = domain.Coordinates{Lat: cfg.DefaultLocation.Lat, Lng: cfg.DefaultLocation.Lng}
	}
	radius := cfg.DefaultRadiusKm
	if radius == 0 {
		radius = feed.DefaultRadiusKm
	}

	view, err := feed.NewViewState(cfg.RadiusPresets, radius, location)
	if err != nil {
		return nil, fmt.Errorf("view state: %w", err)
	}

	return &FeedService{
		writer:    writer,
		renderer:  renderer,
		identity:  identity,
		locator:   locator,
		notifier:  notifier,
		metrics:   metrics,
		clock:     clock,
		logger:    logger.With("component", "feed"),
		config:    cfg,
		store:     feed.NewRecordStore(),
		view:      view,
		rendered:  feed.NewRenderSync(),
		published: make(map[domain.CollectionKind]bool),
		projector: feed.NewProjector(domain.MissingLocationPolicy(cfg.MissingLocation)),
		cards:     feed.NewCardBuilder(clock),
		work:      make(chan func(ctx context.Context)),
		done:      make(chan struct{}),
	}, nil
}

// Run processes snapshot events and queued work one at a time until ctx is
// cancelled. It must be called exactly once.
func (s *FeedService) Run(ctx context.Context, events <-chan domain.SnapshotEvent) error {
	defer close(s.done)

	s.logger.Info("feed service started",
		"radius_km", s.view.RadiusKm(),
		"missing_location", s.config.MissingLocation,
	)
	s.publishStatus(ctx)

	if !s.config.DisableLocate {
		s.startLocate(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("feed service stopped")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				s.logger.Warn("snapshot stream closed")
				continue
			}
			s.handleEvent(ctx, ev)
		case fn := <-s.work:
			fn(ctx)
		}
	}
}

// do runs fn on the loop and returns its error.
func (s *FeedService) do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	task := func(loopCtx context.Context) { result <- fn(loopCtx) }

	select {
	case s.work <- task:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the loop without waiting. It is used by background
// operations to deliver their results.
func (s *FeedService) post(fn func(ctx context.Context)) {
	select {
	case s.work <- fn:
	case <-s.done:
	}
}

func (s *FeedService) handleEvent(ctx context.Context, ev domain.SnapshotEvent) {
	kind := ev.Kind()
	if !kind.IsValid() {
		s.logger.Warn("snapshot event for unknown collection", "collection", kind)
		return
	}

	switch {
	case ev.Err != nil:
		s.logger.Error("subscription error", "collection", kind, "error", ev.Err)
		s.store.MarkError(kind, ev.Err)
		s.metrics.SubscriptionErrors.WithLabelValues(kind.String()).Inc()
	case ev.Offline:
		s.logger.Warn("subscription offline", "collection", kind)
		s.store.MarkOffline(kind)
	default:
		if err := s.store.ApplySnapshot(ev.Snapshot); err != nil {
			s.logger.Error("failed to apply snapshot", "collection", kind, "error", err)
			return
		}
		s.metrics.SnapshotsApplied.WithLabelValues(kind.String()).Inc()
		s.logger.Debug("snapshot applied", "collection", kind, "records", ev.Snapshot.Len())
		s.reproject(ctx, kind)
	}

	s.publishStatus(ctx)
}

func (s *FeedService) publishStatus(ctx context.Context) {
	status := s.store.Connectivity()
	if status == s.lastStatus {
		return
	}
	s.lastStatus = status
	s.metrics.SetConnectivity(status)

	if err := s.renderer.Status(ctx, status); err != nil {
		s.logger.Warn("failed to publish status", "status", status, "error", err)
	}
}

func (s *FeedService) reprojectAll(ctx context.Context) {
	for _, kind := range domain.Collections() {
		s.reproject(ctx, kind)
	}
}

// reproject derives the visible records of one collection and renders the
// difference from what was rendered before. Collections that never synced
// are skipped so the empty placeholder is not shown while connecting.
func (s *FeedService) reproject(ctx context.Context, kind domain.CollectionKind) {
	if !s.store.Synced(kind) {
		return
	}

	start := s.clock.Now()
	params := s.view.Params()

	var plan feed.RenderPlan
	switch kind {
	case domain.CollectionAlerts:
		visible := s.projector.Alerts(s.store.Alerts(), params)
		plan = feed.BuildRenderPlan(kind, s.rendered.Next(kind, feed.IDs(visible)), visible, s.cards.Alert)
	case domain.CollectionNews:
		visible := s.projector.News(s.store.News(), params)
		plan = feed.BuildRenderPlan(kind, s.rendered.Next(kind, feed.IDs(visible)), visible, s.cards.News)
	}

	s.metrics.ProjectionDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.VisibleRecords.WithLabelValues(kind.String()).Set(float64(len(plan.Order)))

	if !plan.Changed() && s.published[kind] {
		return
	}
	s.published[kind] = true

	s.metrics.RenderOps.WithLabelValues(kind.String(), "add").Add(float64(len(plan.Add)))
	s.metrics.RenderOps.WithLabelValues(kind.String(), "remove").Add(float64(len(plan.Remove)))

	if err := s.renderer.Render(ctx, plan); err != nil {
		s.logger.Warn("failed to render", "collection", kind, "error", err)
	}
}

// SetRadius selects one of the radius presets.
func (s *FeedService) SetRadius(ctx context.Context, km float64) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.view.SetRadius(km); err != nil {
			return err
		}
		s.reprojectAll(ctx)
		return nil
	})
}

func (s *FeedService) SetUserLocation(ctx context.Context, c domain.Coordinates) error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return domain.NewValidationError("location", fmt.Sprintf("%v,%v is out of range", c.Lat, c.Lng))
	}
	return s.do(ctx, func(ctx context.Context) error {
		s.view.SetUserLocation(c)
		s.reprojectAll(ctx)
		return nil
	})
}

func (s *FeedService) SetActiveCategories(ctx context.Context, categories []domain.Category) error {
	for _, c := range categories {
		if !c.IsValid() {
			return domain.NewValidationError("categories", fmt.Sprintf("unknown category %q", c))
		}
	}
	return s.do(ctx, func(ctx context.Context) error {
		s.view.SetActiveCategories(categories)
		s.reprojectAll(ctx)
		return nil
	})
}

func (s *FeedService) SetSearchText(ctx context.Context, text string) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.view.SetSearchText(text)
		s.reprojectAll(ctx)
		return nil
	})
}

// SetCompose selects the category and severity of the next alert.
func (s *FeedService) SetCompose(ctx context.Context, category domain.Category, severity domain.Severity) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.view.SetCompose(category, severity)
	})
}

// SubmitAlert validates the input and starts writing it. It returns once the
// write has been started; the outcome is reported through the notifier.
func (s *FeedService) SubmitAlert(ctx context.Context, in AlertInput) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.beginSubmit(ctx, domain.CollectionAlerts, in.Title); err != nil {
			return err
		}

		category, severity := s.view.Compose()
		draft := domain.AlertDraft{
			Title:       strings.TrimSpace(in.Title),
			Category:    category,
			Severity:    severity,
			Description: trimmed(in.Description),
			Location:    s.view.Location(),
			AuthorName:  s.view.AuthorName(),
		}
		saved := &Draft{Kind: domain.CollectionAlerts, Alert: &in}

		go func() {
			writeCtx, cancel := context.WithTimeout(ctx, s.config.SubmitTimeout)
			defer cancel()

			id, err := s.writer.AppendAlert(writeCtx, draft)
			s.post(func(ctx context.Context) { s.finishSubmit(ctx, saved, id, err) })
		}()
		return nil
	})
}

// SubmitNews validates the input and starts writing it.
func (s *FeedService) SubmitNews(ctx context.Context, in NewsInput) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.beginSubmit(ctx, domain.CollectionNews, in.Title); err != nil {
			return err
		}

		draft := domain.NewsDraft{
			Title:        strings.TrimSpace(in.Title),
			Description:  trimmed(in.Description),
			ImageURL:     trimmed(in.ImageURL),
			ReporterName: s.view.ReporterName(),
			Location:     s.view.Location(),
		}
		saved := &Draft{Kind: domain.CollectionNews, News: &in}

		go func() {
			writeCtx, cancel := context.WithTimeout(ctx, s.config.SubmitTimeout)
			defer cancel()

			id, err := s.writer.AppendNews(writeCtx, draft)
			s.post(func(ctx context.Context) { s.finishSubmit(ctx, saved, id, err) })
		}()
		return nil
	})
}

func (s *FeedService) beginSubmit(ctx context.Context, kind domain.CollectionKind, title string) error {
	if s.submitting {
		return domain.ErrSubmissionPending
	}
	if strings.TrimSpace(title) == "" {
		s.metrics.Submissions.WithLabelValues(kind.String(), "rejected").Inc()
		s.notifier.Show(ctx, notify.LevelError, "A title is required")
		return domain.NewValidationError("title", "must not be empty")
	}

	s.submitting = true
	if err := s.renderer.SubmitControl(ctx, false); err != nil {
		s.logger.Warn("failed to disable submit control", "error", err)
	}
	return nil
}

func (s *FeedService) finishSubmit(ctx context.Context, saved *Draft, id string, err error) {
	s.submitting = false
	if rerr := s.renderer.SubmitControl(ctx, true); rerr != nil {
		s.logger.Warn("failed to enable submit control", "error", rerr)
	}

	kind := saved.Kind
	if err != nil {
		s.draft = saved
		s.metrics.Submissions.WithLabelValues(kind.String(), "error").Inc()
		s.logger.Error("submission failed", "collection", kind, "error", fmt.Errorf("%w: %w", domain.ErrSubmission, err))
		s.notifier.Show(ctx, notify.LevelError, submitFailedMessage(kind))
		return
	}

	s.draft = nil
	s.metrics.Submissions.WithLabelValues(kind.String(), "success").Inc()
	s.logger.Info("record submitted", "collection", kind, "id", id)
	s.notifier.Show(ctx, notify.LevelSuccess, submittedMessage(kind))
}

func submittedMessage(kind domain.CollectionKind) string {
	if kind == domain.CollectionNews {
		return "News published"
	}
	return "Alert broadcast to the grid"
}

func submitFailedMessage(kind domain.CollectionKind) string {
	if kind == domain.CollectionNews {
		return "Could not publish news, your draft was kept"
	}
	return "Could not broadcast alert, your draft was kept"
}

// Draft returns the submission preserved after the last failed write.
func (s *FeedService) Draft(ctx context.Context) (*Draft, error) {
	var draft *Draft
	err := s.do(ctx, func(context.Context) error {
		draft = s.draft
		return nil
	})
	return draft, err
}

// SignIn verifies token and, on success, makes its identity the session user.
// Verification runs on the caller's goroutine.
func (s *FeedService) SignIn(ctx context.Context, token string) (domain.Identity, error) {
	identity, verr := s.identity.SignIn(ctx, token)

	err := s.do(ctx, func(ctx context.Context) error {
		if verr != nil {
			s.logger.Warn("sign-in failed", "error", verr)
			s.notifier.Show(ctx, notify.LevelError, "Sign-in failed")
			if !errors.Is(verr, domain.ErrAuth) {
				return fmt.Errorf("%w: %w", domain.ErrAuth, verr)
			}
			return verr
		}

		user := identity
		s.view.SetUser(&user)
		if err := s.renderer.Identity(ctx, &user); err != nil {
			s.logger.Warn("failed to publish identity", "error", err)
		}
		s.logger.Info("signed in", "subject", user.Subject)
		s.notifier.Show(ctx, notify.LevelSuccess, "Signed in as "+s.view.AuthorName())
		return nil
	})
	if err != nil {
		return domain.Identity{}, err
	}
	return identity, nil
}

func (s *FeedService) SignOut(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.view.User() == nil {
			return nil
		}
		s.view.SetUser(nil)
		if err := s.renderer.Identity(ctx, nil); err != nil {
			s.logger.Warn("failed to publish identity", "error", err)
		}
		s.notifier.Show(ctx, notify.LevelInfo, "Signed out")
		return nil
	})
}

// Locate requests the viewer's position in the background. Failures are
// silent and leave the location unchanged.
func (s *FeedService) Locate(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.startLocate(ctx)
		return nil
	})
}

func (s *FeedService) startLocate(ctx context.Context) {
	go func() {
		coords, err := s.locator.Locate(ctx)
		if err != nil {
			s.logger.Debug("geolocation unavailable", "error", err)
			return
		}
		s.post(func(ctx context.Context) {
			s.view.SetUserLocation(coords)
			s.logger.Info("location updated", "lat", coords.Lat, "lng", coords.Lng)
			s.reprojectAll(ctx)
		})
	}()
}

// CheckReadiness reports an error until both collections have synced once.
func (s *FeedService) CheckReadiness(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		for _, kind := range domain.Collections() {
			if !s.store.Synced(kind) {
				return fmt.Errorf("collection %s not synced", kind)
			}
		}
		return nil
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
