package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"murmur/internal/conversation"
	"murmur/internal/outbound"
	"murmur/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize persisted agent state",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engage := store.NewEngagementStore(statePath(cfg, "relationships.json"))
	posts := conversation.NewPostTracker(
		statePath(cfg, "conversations.json"), cfg.Name,
		conversation.ThresholdsFromConfig(cfg.Conversation))
	queue := outbound.NewQueue(statePath(cfg, "outbound.json"), cfg.Name,
		cfg.Outbound, outbound.NewIntervalPacer(cfg.Outbound))

	byState := make(map[conversation.State]int)
	for _, rec := range posts.All() {
		byState[rec.State]++
	}

	posting := engage.Posting()
	refl := engage.Reflection()

	fmt.Printf("murmur %s\n", cfg.Version)
	fmt.Printf("data dir:        %s\n", cfg.DataDir)
	fmt.Printf("relationships:   %d\n", engage.Count())
	fmt.Printf("dedup window:    %d fingerprints\n", queue.Len())
	fmt.Printf("total posts:     %d (last %s)\n", posting.TotalPosts, fmtTime(posting.LastPostAt))
	fmt.Printf("last reflection: %s\n", fmtTime(refl.LastReflectionAt))
	fmt.Printf("conversations:\n")
	for _, st := range []conversation.State{
		conversation.StateNew, conversation.StateActive,
		conversation.StateAwaitingResponse, conversation.StateConcluded,
		conversation.StateStale,
	} {
		if n := byState[st]; n > 0 {
			fmt.Printf("  %-18s %d\n", st, n)
		}
	}
	return nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
