// Package notify shows short-lived user notifications that dismiss
// themselves after a fixed duration.
package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 3 * time.Second

// Level is the visual weight of a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient notification.
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sink delivers toasts to the user.
type Sink interface {
	ShowToast(ctx context.Context, toast Toast) error
	DismissToast(ctx context.Context, id string) error
}

type activeToast struct {
	toast Toast
	timer clockwork.Timer
}

// Toaster shows toasts through a Sink and dismisses each one after its
// duration. Show never blocks on the dismissal.
type Toaster struct {
	sink     Sink
	clock    clockwork.Clock
	duration time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]activeToast
}

func NewToaster(sink Sink, clock clockwork.Clock, duration time.Duration, logger *slog.Logger) *Toaster {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Toaster{
		sink:     sink,
		clock:    clock,
		duration: duration,
		logger:   logger,
		active:   make(map[string]activeToast),
	}
}

// Show delivers a toast and schedules its dismissal.
func (t *Toaster) Show(ctx context.Context, level Level, message string) Toast {
	now := t.clock.Now()
	toast := Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(t.duration),
	}

	if err := t.sink.ShowToast(ctx, toast); err != nil {
		t.logger.Warn("failed to show toast", "level", level, "error", err)
	}

	dismissCtx := context.WithoutCancel(ctx)
	t.mu.Lock()
	t.active[toast.ID] = activeToast{
		toast: toast,
		timer: t.clock.AfterFunc(t.duration, func() { t.dismiss(dismissCtx, toast.ID) }),
	}
	t.mu.Unlock()

	return toast
}

func (t *Toaster) dismiss(ctx context.Context, id string) {
	t.mu.Lock()
	_, ok := t.active[id]
	delete(t.active, id)
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := t.sink.DismissToast(ctx, id); err != nil {
		t.logger.Warn("failed to dismiss toast", "id", id, "error", err)
	}
}

// Active returns the toasts still on screen, oldest first.
func (t *Toaster) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Toast, 0, len(t.active))
	for _, a := range t.active {
		out = append(out, a.toast)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops pending dismissals.
func (t *Toaster) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, a := range t.active {
		a.timer.Stop()
		delete(t.active, id)
	}
}
