package notify

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned by Throttled when a notification is dropped.
var ErrThrottled = errors.New("notification throttled")

// Dispatcher delivers a notification to the user.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogDispatcher writes notifications to a structured log. It stands in for a
// platform push transport.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.InfoContext(ctx, "notification",
		"id", n.ID,
		"title", n.Title,
		"body", n.Body,
		"type", string(n.Data.Type),
		"article_url", n.Data.ArticleURL,
		"category", n.Data.Category,
	)
	return nil
}

// Throttled drops notifications that exceed limiter instead of queueing them.
type Throttled struct {
	next    Dispatcher
	limiter *rate.Limiter
}

func NewThrottled(next Dispatcher, limiter *rate.Limiter) *Throttled {
	return &Throttled{next: next, limiter: limiter}
}

func (t *Throttled) Dispatch(ctx context.Context, n Notification) error {
	if n.Data.Type != TypeTest && !t.limiter.Allow() {
		return ErrThrottled
	}
	return t.next.Dispatch(ctx, n)
}
