package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"neargrid/internal/domain"
	"neargrid/internal/feed"
	"neargrid/internal/notify"
)

type RecordWriter interface {
	AppendAlert(ctx context.Context, draft domain.AlertDraft) (string, error)
	AppendNews(ctx context.Context, draft domain.NewsDraft) (string, error)
}

type Renderer interface {
	Render(ctx context.Context, plan feed.RenderPlan) error
	Status(ctx context.Context, status domain.SyncStatus) error
	Identity(ctx context.Context, user *domain.Identity) error
	SubmitControl(ctx context.Context, enabled bool) error
}

type IdentityProvider interface {
	SignIn(ctx context.Context, token string) (domain.Identity, error)
}

type Locator interface {
	Locate(ctx context.Context) (domain.Coordinates, error)
}

type Notifier interface {
	Show(ctx context.Context, level notify.Level, message string) notify.Toast
}
