package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glabrego/newsreader/internal/news"
	"github.com/glabrego/newsreader/internal/notify"
)

var ErrNoNotifier = errors.New("no notifier configured")

const breakingKeyword = "breaking"

// detectDeltas compares a fresh first page with what the bucket held before
// and sends at most one breaking-news and one category-update notification.
// Nothing here may fail the fetch.
func (e *Engine) detectDeltas(ctx context.Context, sel news.Selector, prior, fetched []news.Article) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "delta detection panicked", "bucket", sel.String(), "panic", r)
		}
	}()

	added := news.Added(prior, fetched)
	if len(added) == 0 {
		return
	}

	prefs, err := e.preferences(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "read notification preferences", "error", err)
		return
	}
	if !prefs.Enabled {
		return
	}

	if prefs.BreakingNews {
		for _, a := range added {
			if strings.Contains(strings.ToLower(a.Title), breakingKeyword) {
				e.dispatch(ctx, notify.BreakingNews(a))
				break
			}
		}
	}

	if !sel.IsGlobal() && prefs.Subscribed(sel.Category) {
		e.dispatch(ctx, notify.CategoryUpdate(sel.Category, len(added)))
	}
}

func (e *Engine) preferences(ctx context.Context) (notify.Preferences, error) {
	if e.prefs == nil {
		return notify.DefaultPreferences(), nil
	}
	return e.prefs.NotificationPreferences(ctx)
}

func (e *Engine) dispatch(ctx context.Context, n notify.Notification) {
	if err := e.notifier.Dispatch(ctx, n); err != nil {
		e.logger.WarnContext(ctx, "dispatch notification", "type", string(n.Data.Type), "error", err)
	}
}

// SendTestNotification sends a test alert regardless of preferences.
func (e *Engine) SendTestNotification(ctx context.Context) error {
	if e.notifier == nil {
		return ErrNoNotifier
	}
	if err := e.notifier.Dispatch(ctx, notify.Test()); err != nil {
		return fmt.Errorf("dispatch test notification: %w", err)
	}
	return nil
}

// SendDailyDigest summarizes the newest global headlines when the user has
// enabled the digest.
func (e *Engine) SendDailyDigest(ctx context.Context) error {
	if e.notifier == nil {
		return ErrNoNotifier
	}
	prefs, err := e.preferences(ctx)
	if err != nil {
		return fmt.Errorf("read notification preferences: %w", err)
	}
	if !prefs.Enabled || !prefs.DailyDigest {
		return nil
	}

	e.mu.Lock()
	headlines := news.Sorted(e.global.articles, news.SortNewest)
	e.mu.Unlock()

	if err := e.notifier.Dispatch(ctx, notify.DailyDigest(headlines)); err != nil {
		return fmt.Errorf("dispatch daily digest: %w", err)
	}
	return nil
}
