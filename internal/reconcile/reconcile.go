// Package reconcile applies the bookkeeping that follows successful clone
// jobs: writing voice ids back onto the stored samples, locking the items
// that earned their own voice, and purging the narrations the new voices
// just made stale.
//
// Every write in here is tolerant: a single sample, lock, or purge failure
// is logged and the loop continues. The voices already exist at the
// provider; bookkeeping failures must not turn that success into a
// failure.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
)

// Reconciler persists clone outcomes back into the sample repository and
// sweeps stale derived artifacts.
type Reconciler struct {
	repo  core.SampleRepository
	audio core.AudioStore
	log   *logger.Logger
}

// New creates a Reconciler.
func New(repo core.SampleRepository, audio core.AudioStore, log *logger.Logger) *Reconciler {
	return &Reconciler{
		repo:  repo,
		audio: audio,
		log:   log,
	}
}

// Reconcile writes the voice ids of the successful results onto the
// matching samples, locks the planned items, and purges the user's stale
// narrations. It reports whether locking was applied.
//
// Only the inventory read can fail the call; every subsequent write is
// per-sample tolerant.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	userID string,
	successes []core.CloneResult,
	lockPlan []core.LockTarget,
) (bool, error) {
	if len(successes) == 0 {
		return false, nil
	}

	items, err := r.repo.ListUserSamples(ctx, userID)
	if err != nil {
		return false, fmt.Errorf(
			"failed to list samples for reconciliation of user '%s': %w", userID, err,
		)
	}

	r.writeVoiceIDs(ctx, userID, items, successes)
	r.applyLocks(ctx, userID, lockPlan, successes)
	r.purgeNarrations(ctx, userID)

	return true, nil
}

// writeVoiceIDs stamps each successful result's voice id onto every sample
// of the items the result covers. The id is written to both legacy storage
// shapes; either write failing is logged and skipped, never fatal.
func (r *Reconciler) writeVoiceIDs(
	ctx context.Context,
	userID string,
	items []core.Item,
	successes []core.CloneResult,
) {
	for _, result := range successes {
		for _, name := range result.Items {
			for _, sample := range matchSamples(items, name) {
				r.writeOneSample(ctx, userID, sample, result.VoiceID)
			}
		}
	}
}

// writeOneSample performs the dual write for a single sample: once onto
// the per-user-sample shape, once onto the per-recording shape.
func (r *Reconciler) writeOneSample(ctx context.Context, userID string, sample core.Sample, voiceID string) {
	err := r.repo.WriteSampleVoiceID(ctx, userID, sample.UserESMID, voiceID)
	if err != nil {
		r.log.Error(
			"Failed to write voice id %s onto sample %s for user %s: %v",
			voiceID, sample.UserESMID, userID, err,
		)
	}

	err = r.repo.WriteRecordingVoiceID(ctx, sample.RecordingID, voiceID)
	if err != nil {
		r.log.Error(
			"Failed to write voice id %s onto recording %s for user %s: %v",
			voiceID, sample.RecordingID, userID, err,
		)
	}
}

// applyLocks locks the planned items whose individual job actually
// succeeded. Only items that individually crossed the threshold ever
// appear in the lock plan, so category and combined voices never lock
// anything; a failed job's item stays unlocked for the next run.
func (r *Reconciler) applyLocks(
	ctx context.Context,
	userID string,
	lockPlan []core.LockTarget,
	successes []core.CloneResult,
) {
	for _, target := range lockPlan {
		if !itemSucceeded(successes, target.ItemName) {
			continue
		}

		err := r.repo.SetLocked(ctx, userID, target.Category, target.ItemName)
		if err != nil {
			r.log.Error(
				"Failed to lock item %s/%s for user %s: %v",
				target.Category, target.ItemName, userID, err,
			)
		}
	}
}

// purgeNarrations deletes every narration the user had and the audio
// behind them. The sweep is unconditional: a new voice makes all prior
// narrations stale, whichever items changed.
func (r *Reconciler) purgeNarrations(ctx context.Context, userID string) {
	narrations, err := r.repo.ListNarrations(ctx, userID)
	if err != nil {
		r.log.Error("Failed to list narrations for user %s: %v", userID, err)
	}

	for _, narration := range narrations {
		deleteErr := r.repo.DeleteNarration(ctx, userID, narration.ID)
		if deleteErr != nil {
			r.log.Error(
				"Failed to delete stale narration %s for user %s: %v",
				narration.ID, userID, deleteErr,
			)
		}
	}

	audioErr := r.audio.DeleteUserAudio(ctx, userID)
	if audioErr != nil {
		r.log.Error("Failed to purge narration audio for user %s: %v", userID, audioErr)
	}
}

// itemSucceeded reports whether any successful result covers the item.
func itemSucceeded(successes []core.CloneResult, itemName string) bool {
	for _, result := range successes {
		for _, name := range result.Items {
			if name == itemName {
				return true
			}
		}
	}

	return false
}

// matchSamples finds the samples belonging to the named item. Exact name
// equality wins; if nothing matches exactly, a case-insensitive
// containment fallback covers results whose item names were decorated on
// the provider side.
func matchSamples(items []core.Item, name string) []core.Sample {
	var exact []core.Sample

	for _, item := range items {
		if item.Name == name {
			exact = append(exact, item.Samples...)
		}
	}

	if len(exact) > 0 {
		return exact
	}

	var loose []core.Sample

	lowered := strings.ToLower(name)

	for _, item := range items {
		itemName := strings.ToLower(item.Name)
		if itemName == "" {
			continue
		}

		if strings.Contains(lowered, itemName) || strings.Contains(itemName, lowered) {
			loose = append(loose, item.Samples...)
		}
	}

	return loose
}
