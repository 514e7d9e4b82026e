// Package core defines the domain types and collaborator interfaces for the
// voice-clone service.
package core

// Category classifies a recorded voice sample. Planning always walks
// categories in the fixed order returned by Categories.
type Category string

// The three sample categories.
const (
	CategoryEmotion    Category = "emotion"
	CategorySound      Category = "sound"
	CategoryModulation Category = "modulation"
)

// Categories returns all categories in planning priority order: emotions
// first, then sounds, then modulations.
func Categories() []Category {
	return []Category{CategoryEmotion, CategorySound, CategoryModulation}
}

// Sample is one recorded audio clip for a named item.
type Sample struct {
	// UserESMID identifies the per-user-sample row; one of the two
	// legacy storage shapes a voice id is written back to.
	UserESMID string
	// RecordingID identifies the raw recording; the second storage
	// shape, kept for cleanup and backward compatibility.
	RecordingID string
	Category    Category
	Name        string
	// AudioLocation is an opaque reference, resolved to a fetchable URL
	// against the configured public base at execution time.
	AudioLocation string
	Locked        bool
}

// Item aggregates the samples sharing one (category, name) key for a user.
type Item struct {
	Category Category
	Name     string
	Samples  []Sample
}

// SampleCount reports the number of samples recorded for the item.
func (i Item) SampleCount() int {
	return len(i.Samples)
}

// Locked reports whether the item has been consumed by a successful
// individual-level clone. Locking is applied to all of an item's samples
// at once, so any locked sample marks the whole item.
func (i Item) Locked() bool {
	for _, s := range i.Samples {
		if s.Locked {
			return true
		}
	}

	return false
}

// UnlockedSamples returns the item's samples still eligible for cloning,
// in repository order.
func (i Item) UnlockedSamples() []Sample {
	var unlocked []Sample

	for _, s := range i.Samples {
		if !s.Locked {
			unlocked = append(unlocked, s)
		}
	}

	return unlocked
}

// Narration is a previously generated story narration; it becomes stale as
// soon as any new voice is trained for its owner.
type Narration struct {
	ID       string
	UserID   string
	AudioKey string
}

// Strategy is the cloning granularity chosen by the planner. Exactly one
// strategy is selected per planning run.
type Strategy string

// The three mutually exclusive cloning strategies, in cascade priority
// order.
const (
	StrategyIndividual Strategy = "individual"
	StrategyCategory   Strategy = "category"
	StrategyCombined   Strategy = "combined"
)

// CombinedTarget is the sentinel target name used by a combined-strategy
// plan, which spans every unlocked sample regardless of item.
const CombinedTarget = "all"

// CloneJob describes one provider training call.
type CloneJob struct {
	Kind Strategy
	// Category is the job's category for individual and category jobs;
	// empty for combined jobs, which span all categories.
	Category Category
	// Items lists the names of the items whose samples feed the job.
	Items []string
	// Samples are the unlocked samples to train on, in plan order.
	Samples []Sample
	// VoiceType labels the resulting voice for provider-side metadata.
	VoiceType string
}

// RecordingIDs returns the recording ids of the job's samples, used for
// cleanup when the job fails.
func (j CloneJob) RecordingIDs() []string {
	ids := make([]string, 0, len(j.Samples))
	for _, s := range j.Samples {
		ids = append(ids, s.RecordingID)
	}

	return ids
}

// LockTarget names one item to lock if its individual job succeeds.
type LockTarget struct {
	Category Category
	ItemName string
}

// SegmentationPlan is the planner's output: the chosen strategy, the jobs
// to execute in order, and the items to lock on success. A plan is built
// once per orchestration run and never persisted.
type SegmentationPlan struct {
	UserID      string
	Strategy    Strategy
	TargetItems []string
	Jobs        []CloneJob
	LockPlan    []LockTarget
}

// SampleTotal reports the total number of samples across all planned jobs.
func (p SegmentationPlan) SampleTotal() int {
	total := 0
	for _, job := range p.Jobs {
		total += len(job.Samples)
	}

	return total
}

// CloneResult is the outcome of one provider training call. Exactly one of
// VoiceID and Error carries information, discriminated by Success.
type CloneResult struct {
	Success  bool
	VoiceID  string
	Error    string
	Kind     Strategy
	Category Category
	Items    []string
}

// SucceededClone builds the success variant of a job's result.
func SucceededClone(job CloneJob, voiceID string) CloneResult {
	return CloneResult{
		Success:  true,
		VoiceID:  voiceID,
		Error:    "",
		Kind:     job.Kind,
		Category: job.Category,
		Items:    job.Items,
	}
}

// FailedClone builds the failure variant of a job's result.
func FailedClone(job CloneJob, message string) CloneResult {
	return CloneResult{
		Success:  false,
		VoiceID:  "",
		Error:    message,
		Kind:     job.Kind,
		Category: job.Category,
		Items:    job.Items,
	}
}

// Phase identifies one step of an orchestration run.
type Phase string

// Orchestration phases, in the order a run moves through them.
const (
	PhasePlanning    Phase = "planning"
	PhaseExecuting   Phase = "executing"
	PhaseReconciling Phase = "reconciling"
	PhaseDone        Phase = "done"
	PhaseTimedOut    Phase = "timed_out"
)

// Step is one entry of the orchestration trail.
type Step struct {
	Phase  Phase
	Detail string
}

// OrchestrationResult is the single structured outcome of one
// plan-execute-reconcile run.
type OrchestrationResult struct {
	// Succeeded is true when at least one job produced a voice, or when
	// the run was a planned no-op with nothing to train.
	Succeeded      bool
	Strategy       Strategy
	Results        []CloneResult
	LockingApplied bool
	// TimedOut is true when the shared deadline fired before all jobs
	// finished; reconciliation is skipped for such runs.
	TimedOut bool
	// Error carries the fatal failure for runs that never got past
	// planning; empty otherwise.
	Error string
	// Steps is the ordered trail of phases the run moved through.
	Steps []Step
}

// VoiceIDs returns the voice ids of all successful results, in job order.
func (r OrchestrationResult) VoiceIDs() []string {
	var ids []string

	for _, res := range r.Results {
		if res.Success {
			ids = append(ids, res.VoiceID)
		}
	}

	return ids
}
