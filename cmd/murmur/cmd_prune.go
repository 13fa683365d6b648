package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"murmur/internal/conversation"
	"murmur/internal/outbound"
)

var pruneClosings bool

// pruneCmd plans a cleanup sweep over a JSON file of the agent's fetched
// posts. Planning only: it prints what would be deleted and why, it never
// calls a delete endpoint itself.
var pruneCmd = &cobra.Command{
	Use:   "prune [posts.json]",
	Short: "Plan duplicate/closing-chain cleanup over fetched posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneClosings, "closings", false,
		"also plan removal of redundant thank-you chains")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read posts: %w", err)
	}
	var posts []outbound.FetchedPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return fmt.Errorf("parse posts: %w", err)
	}

	plan := outbound.PruneDuplicates(posts, cfg.Outbound.FingerprintPrefixLen)
	printPlan("duplicates", plan)

	if pruneClosings {
		plan = outbound.PruneClosingChains(posts, conversation.DefaultClosingClassifier)
		printPlan("closing chains", plan)
	}
	return nil
}

func printPlan(label string, plan outbound.PrunePlan) {
	fmt.Printf("%s: %d to delete\n", label, len(plan.Delete))
	for _, ref := range plan.Delete {
		fmt.Printf("  %s  (%s)\n", ref, plan.Reasons[ref])
	}
}
