package outbound

import (
	"context"
	"sort"
	"time"

	"murmur/internal/logging"
)

// FetchedPost is one of the agent's own historical posts, as fetched for a
// cleanup sweep.
type FetchedPost struct {
	Ref        string
	ThreadRoot string // empty for top-level posts
	Text       string
	CreatedAt  time.Time
}

// PrunePlan is the output of a planning sweep: the references to delete and
// why. Planning is pure; executing the deletes is the collaborator's job.
type PrunePlan struct {
	Delete  []string
	Reasons map[string]string
}

// Deleter executes delete calls for a prune plan.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// PruneDuplicates plans removal of duplicate posts from a fetched batch.
// Replies dedup by normalized text scoped to their thread root; identical
// text under different roots is not a duplicate. Top-level posts dedup
// globally. The earliest of each duplicate group survives.
func PruneDuplicates(posts []FetchedPost, prefixLen int) PrunePlan {
	plan := PrunePlan{Reasons: make(map[string]string)}

	groups := make(map[string][]FetchedPost)
	for _, p := range posts {
		key := p.ThreadRoot + "\x00" + Normalize(p.Text, prefixLen)
		groups[key] = append(groups[key], p)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		for _, dup := range group[1:] {
			plan.Delete = append(plan.Delete, dup.Ref)
			plan.Reasons[dup.Ref] = "duplicate of " + group[0].Ref
		}
	}

	logging.Outbound("duplicate sweep: %d posts, %d marked for deletion",
		len(posts), len(plan.Delete))
	return plan
}

// PruneClosingChains plans removal of redundant low-information closings.
// Within each thread, only the agent's first closing survives; every later
// one is marked. Top-level posts are never subject to this rule.
func PruneClosingChains(posts []FetchedPost, isClosing func(string) bool) PrunePlan {
	plan := PrunePlan{Reasons: make(map[string]string)}

	byThread := make(map[string][]FetchedPost)
	for _, p := range posts {
		if p.ThreadRoot == "" {
			continue // replies only
		}
		if !isClosing(p.Text) {
			continue
		}
		byThread[p.ThreadRoot] = append(byThread[p.ThreadRoot], p)
	}

	for root, closings := range byThread {
		if len(closings) < 2 {
			continue
		}
		sort.Slice(closings, func(i, j int) bool {
			return closings[i].CreatedAt.Before(closings[j].CreatedAt)
		})
		for _, extra := range closings[1:] {
			plan.Delete = append(plan.Delete, extra.Ref)
			plan.Reasons[extra.Ref] = "redundant closing in thread " + root
		}
	}

	logging.Outbound("closing-chain sweep: %d posts, %d marked for deletion",
		len(posts), len(plan.Delete))
	return plan
}

// Execute runs a plan against the deleter and returns how many deletes
// succeeded. Individual failures are logged and skipped.
func (p PrunePlan) Execute(ctx context.Context, d Deleter) int {
	deleted := 0
	for _, ref := range p.Delete {
		if err := d.Delete(ctx, ref); err != nil {
			logging.Get(logging.CategoryOutbound).Warn("delete %s failed: %v", ref, err)
			continue
		}
		deleted++
	}
	logging.Outbound("prune executed: %d/%d deleted", deleted, len(p.Delete))
	return deleted
}
