package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"murmur/internal/config"
	"murmur/internal/conversation"
	"murmur/internal/llm"
	"murmur/internal/logging"
	"murmur/internal/outbound"
	"murmur/internal/scheduler"
	"murmur/internal/store"
	"murmur/internal/triage"
)

// runCmd starts the agent and blocks until SIGINT/SIGTERM.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent loops",
	Long: `Starts all behavior loops (awareness, expression, reflection, engagement
checks) and blocks until interrupted. At most one behavior is ever active;
loops that fire while another behavior holds the mode skip their cycle.`,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.DataDir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	logging.Boot("murmur %s starting, data dir %s", cfg.Version, cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, watcher, err := wireScheduler(ctx, cfg)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Stop()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	logger.Info("agent running", zap.String("data_dir", cfg.DataDir))

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	if err := sched.FatalErr(); err != nil {
		return fmt.Errorf("agent halted: %w", err)
	}
	return nil
}

// wireScheduler assembles the full dependency graph from config.
func wireScheduler(ctx context.Context, cfg *config.Config) (*scheduler.Scheduler, *config.Watcher, error) {
	engage := store.NewEngagementStore(statePath(cfg, "relationships.json"))
	prioritizer := triage.New(engage, cfg.Triage)

	posts := conversation.NewPostTracker(
		statePath(cfg, "conversations.json"), cfg.Name,
		conversation.ThresholdsFromConfig(cfg.Conversation))

	pacer := outbound.NewIntervalPacer(cfg.Outbound)
	queue := outbound.NewQueue(statePath(cfg, "outbound.json"), cfg.Name, cfg.Outbound, pacer)
	warmupQueue(cfg, queue)

	metrics, err := store.NewMetricsArchive(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open metrics archive: %w", err)
	}

	gen, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("create llm client: %w", err)
	}

	platform := newFilePlatform(cfg.DataDir)
	sched := scheduler.New(cfg.Scheduler, scheduler.Deps{
		Signals:     platform,
		Transmitter: platform,
		Generator:   gen,
		Session:     platform,
		Engagement:  platform,
		Prioritizer: prioritizer,
		Posts:       posts,
		Queue:       queue,
		Engage:      engage,
		Metrics:     metrics,
	})

	// Threshold hot-reload: cadence and lifecycle thresholds apply live,
	// everything else (data dir, llm wiring) needs a restart.
	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		sched.SetConfig(next.Scheduler)
		posts.SetThresholds(conversation.ThresholdsFromConfig(next.Conversation))
		logging.Boot("config reloaded from %s", configPath)
	})
	if err != nil {
		logging.StoreWarn("config watcher unavailable: %v", err)
		return sched, nil, nil
	}
	if err := watcher.Start(); err != nil {
		logging.StoreWarn("config watcher failed to start: %v", err)
		return sched, nil, nil
	}
	return sched, watcher, nil
}

// warmupQueue seeds the dedup window from feed.json if present, so restarts
// do not repost content the platform already shows.
func warmupQueue(cfg *config.Config, queue *outbound.Queue) {
	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "feed.json"))
	if err != nil {
		return
	}
	var items []outbound.FeedItem
	if err := json.Unmarshal(data, &items); err != nil {
		logging.StoreWarn("feed.json unreadable, skipping warmup: %v", err)
		return
	}
	n := queue.WarmupFromFeed(items)
	logging.Outbound("warmed dedup window with %d feed items", n)
}
