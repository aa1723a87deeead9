package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/glabrego/newsreader/internal/app"
	"github.com/glabrego/newsreader/internal/config"
	"github.com/glabrego/newsreader/internal/connectivity"
	"github.com/glabrego/newsreader/internal/newsapi"
	"github.com/glabrego/newsreader/internal/notify"
	"github.com/glabrego/newsreader/internal/storage"
	"github.com/glabrego/newsreader/internal/tui"
)

const digestInterval = 24 * time.Hour

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("log setup error: %v", err)
	}
	defer closeLog()

	repo, err := storage.NewRepository(cfg.DBPath, logger)
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.Init(ctx); err != nil {
		log.Fatalf("storage schema error: %v", err)
	}
	if err := repo.CheckWritable(ctx); err != nil {
		log.Fatalf("storage write check failed (%v). Verify NEWS_DB_PATH is writable: %s", err, cfg.DBPath)
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	client := newsapi.NewClient(cfg.APIBaseURL, cfg.APIKey, httpClient, limiter)
	monitor := connectivity.NewMonitor(cfg.ProbeURL, cfg.ProbeInterval, &http.Client{Timeout: 5 * time.Second}, logger)

	// One notification per second at most, with a small burst for page loads.
	notifier := notify.NewThrottled(notify.NewLogDispatcher(logger), rate.NewLimiter(rate.Every(time.Second), 3))

	engine := app.NewEngine(client, repo, monitor, app.Options{
		Country:     cfg.Country,
		PageSize:    cfg.PageSize,
		Notifier:    notifier,
		Preferences: repo,
		Prober:      monitor,
		Logger:      logger,
	})
	defer engine.Close()

	if err := engine.Restore(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not restore cached state (%v)\n", err)
	}
	if last, ok := engine.LastFetchTime(ctx); ok {
		logger.Info("restored cache", "last_fetch", last)
	}

	program := tea.NewProgram(tui.NewModel(engine, cfg.Categories), tea.WithAltScreen())
	unsubscribe := engine.Subscribe(func(s app.State) {
		program.Send(tui.StateMsg{State: s})
	})
	defer unsubscribe()

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	g.Go(func() error {
		return runDigest(gctx, engine, logger)
	})
	g.Go(func() error {
		defer stop()
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("%v", err)
	}
}

func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}

func runDigest(ctx context.Context, engine *app.Engine, logger *slog.Logger) error {
	ticker := time.NewTicker(digestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := engine.SendDailyDigest(ctx); err != nil {
				logger.Warn("daily digest failed", "error", err)
			}
		}
	}
}
