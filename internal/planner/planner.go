// Package planner decides which voice-cloning strategy applies to a user's
// sample inventory and turns it into a concrete execution plan.
//
// The decision is a three-level cascade evaluated in strict priority
// order: individual items that crossed the individual threshold win; then
// whole categories whose unlocked samples reach the category threshold;
// then a single combined job over everything still unlocked, even when
// that union is empty.
package planner

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
)

// Thresholds are the segmentation tunables. Zero values are not defaulted
// here; callers pass fully resolved configuration.
type Thresholds struct {
	// Individual is the per-item sample count at which an item gets its
	// own voice and is locked afterwards.
	Individual int
	// Category is the per-category unlocked-sample sum at which a whole
	// category gets a blended voice.
	Category int
}

// Planner builds segmentation plans from the repository's sample
// inventory. Planning itself is pure; the only side effect is the single
// inventory read.
type Planner struct {
	repo       core.SampleRepository
	thresholds Thresholds
	log        *logger.Logger
}

// New creates a Planner.
func New(repo core.SampleRepository, thresholds Thresholds, log *logger.Logger) *Planner {
	return &Planner{
		repo:       repo,
		thresholds: thresholds,
		log:        log,
	}
}

// Plan reads the user's inventory and builds the segmentation plan for it.
func (p *Planner) Plan(ctx context.Context, userID string) (core.SegmentationPlan, error) {
	items, err := p.repo.ListUserSamples(ctx, userID)
	if err != nil {
		return core.SegmentationPlan{}, fmt.Errorf(
			"failed to list samples for user '%s': %w", userID, err,
		)
	}

	plan := BuildPlan(userID, items, p.thresholds)

	p.log.Info(
		"Planned %s strategy for user %s: %d job(s), %d sample(s), %d lock target(s)",
		plan.Strategy, userID, len(plan.Jobs), plan.SampleTotal(), len(plan.LockPlan),
	)

	return plan, nil
}

// BuildPlan is the pure cascade over an already-read inventory. Items are
// expected in repository order; the cascade walks categories in the fixed
// emotion, sound, modulation order and keeps item order within each.
func BuildPlan(userID string, items []core.Item, thresholds Thresholds) core.SegmentationPlan {
	if plan, ok := individualPlan(userID, items, thresholds.Individual); ok {
		return plan
	}

	if plan, ok := categoryPlan(userID, items, thresholds.Category); ok {
		return plan
	}

	return combinedPlan(userID, items)
}

// individualPlan selects every unlocked item at or past the individual
// threshold, one job per item. Only this strategy produces lock targets:
// an individual voice represents that item alone, so consuming its samples
// is safe.
func individualPlan(userID string, items []core.Item, threshold int) (core.SegmentationPlan, bool) {
	plan := core.SegmentationPlan{
		UserID:      userID,
		Strategy:    core.StrategyIndividual,
		TargetItems: nil,
		Jobs:        nil,
		LockPlan:    nil,
	}

	for _, item := range itemsInCategoryOrder(items) {
		if item.Locked() || item.SampleCount() < threshold {
			continue
		}

		samples := item.UnlockedSamples()
		if len(samples) == 0 {
			continue
		}

		plan.TargetItems = append(plan.TargetItems, item.Name)
		plan.Jobs = append(plan.Jobs, core.CloneJob{
			Kind:      core.StrategyIndividual,
			Category:  item.Category,
			Items:     []string{item.Name},
			Samples:   samples,
			VoiceType: fmt.Sprintf("%s_%s", item.Category, item.Name),
		})
		plan.LockPlan = append(plan.LockPlan, core.LockTarget{
			Category: item.Category,
			ItemName: item.Name,
		})
	}

	return plan, len(plan.Jobs) > 0
}

// categoryPlan selects every category whose unlocked-sample sum reaches the
// category threshold, one job per category. The resulting voice is a blend
// of the category's items, so no item is ever locked by it.
func categoryPlan(userID string, items []core.Item, threshold int) (core.SegmentationPlan, bool) {
	plan := core.SegmentationPlan{
		UserID:      userID,
		Strategy:    core.StrategyCategory,
		TargetItems: nil,
		Jobs:        nil,
		LockPlan:    nil,
	}

	for _, category := range core.Categories() {
		var (
			names   []string
			samples []core.Sample
		)

		for _, item := range items {
			if item.Category != category || item.Locked() {
				continue
			}

			unlocked := item.UnlockedSamples()
			if len(unlocked) == 0 {
				continue
			}

			names = append(names, item.Name)
			samples = append(samples, unlocked...)
		}

		if len(samples) < threshold {
			continue
		}

		plan.TargetItems = append(plan.TargetItems, string(category))
		plan.Jobs = append(plan.Jobs, core.CloneJob{
			Kind:      core.StrategyCategory,
			Category:  category,
			Items:     names,
			Samples:   samples,
			VoiceType: fmt.Sprintf("%s_voice", category),
		})
	}

	return plan, len(plan.Jobs) > 0
}

// combinedPlan is the fallback: one job spanning every unlocked sample in
// every category. The job is emitted even when that union is empty; the
// orchestrator treats an empty plan as a no-op success.
func combinedPlan(userID string, items []core.Item) core.SegmentationPlan {
	var (
		names   []string
		samples []core.Sample
	)

	for _, item := range itemsInCategoryOrder(items) {
		if item.Locked() {
			continue
		}

		unlocked := item.UnlockedSamples()
		if len(unlocked) == 0 {
			continue
		}

		names = append(names, item.Name)
		samples = append(samples, unlocked...)
	}

	return core.SegmentationPlan{
		UserID:      userID,
		Strategy:    core.StrategyCombined,
		TargetItems: []string{core.CombinedTarget},
		Jobs: []core.CloneJob{{
			Kind:      core.StrategyCombined,
			Category:  "",
			Items:     names,
			Samples:   samples,
			VoiceType: "combined_voice",
		}},
		LockPlan: nil,
	}
}

// itemsInCategoryOrder reorders items into the fixed category priority
// while preserving repository order within each category.
func itemsInCategoryOrder(items []core.Item) []core.Item {
	ordered := make([]core.Item, 0, len(items))

	for _, category := range core.Categories() {
		for _, item := range items {
			if item.Category == category {
				ordered = append(ordered, item)
			}
		}
	}

	return ordered
}
