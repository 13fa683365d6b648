package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"murmur/internal/conversation"
	"murmur/internal/store"
	"murmur/internal/triage"
	"murmur/internal/types"
)

// triageCmd scores and groups a JSON file of signals without sending
// anything. Debug aid for tuning the priority weights.
var triageCmd = &cobra.Command{
	Use:   "triage [signals.json]",
	Short: "Score and group a file of signals (dry run)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriage,
}

func runTriage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read signals: %w", err)
	}
	var signals []types.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return fmt.Errorf("parse signals: %w", err)
	}

	engage := store.NewEngagementStore(statePath(cfg, "relationships.json"))
	prioritizer := triage.New(engage, cfg.Triage)

	notifs := prioritizer.Prioritize(signals)
	threads := prioritizer.GroupThreads(notifs)

	fmt.Printf("%d signals -> %d actionable -> %d threads\n\n",
		len(signals), len(notifs), len(threads))
	for i, th := range threads {
		tags := threadTags(th)
		fmt.Printf("%2d. thread %s  priority=%d%s\n", i+1, th.RootID, th.HighestPriority, tags)
		for _, m := range th.Members {
			fmt.Printf("      [%3d] %s %s: %s\n", m.Priority, m.Signal.Kind,
				m.Signal.AuthorID, strings.Join(m.Reasons, ", "))
		}
	}
	return nil
}

func threadTags(th triage.TriagedThread) string {
	var tags []string
	if th.HasPrincipal {
		tags = append(tags, "principal")
	}
	if th.HasRecurring {
		tags = append(tags, "recurring")
	}
	if len(tags) == 0 {
		return ""
	}
	return "  [" + strings.Join(tags, ",") + "]"
}

var conversationsIssues bool

// conversationsCmd lists tracked threads with their analysis verdicts.
var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List tracked conversations and their verdicts",
	RunE:  listConversations,
}

func init() {
	conversationsCmd.Flags().BoolVar(&conversationsIssues, "issues", false,
		"list the issue-tracker domain instead of the social feed")
}

func listConversations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	th := conversation.ThresholdsFromConfig(cfg.Conversation)

	if conversationsIssues {
		issues := conversation.NewIssueTracker(
			statePath(cfg, "issues.json"), cfg.Name, th)
		return printTracked(issues)
	}
	posts := conversation.NewPostTracker(
		statePath(cfg, "conversations.json"), cfg.Name, th)
	return printTracked(posts)
}

func printTracked[K comparable](tr *conversation.Tracker[K]) error {
	records := tr.All()
	if len(records) == 0 {
		fmt.Println("no tracked conversations")
		return nil
	}
	for _, rec := range records {
		a := tr.Analyze(rec.Root.ID)
		verdict := "continue"
		if a.ShouldConclude {
			verdict = "conclude: " + a.Reason
		}
		fmt.Printf("%-30v %-18s replies=%d depth=%d reeng=%d  %s\n",
			rec.Root.ID, rec.State, rec.OurReplyCount, rec.Depth,
			rec.ReengagementCount, verdict)
	}
	return nil
}
