// Package orchestrator sequences planning, execution, and reconciliation
// into one clone run bounded by a single shared deadline.
//
// A run moves through Planning, Executing, Reconciling, and Done, with
// TimedOut reachable from Executing when the deadline fires. Whatever
// happens, Run hands back a structured result: only a repository read
// failure during planning aborts early, and even that is folded into the
// result rather than surfaced as a raw error.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/executor"
	"github.com/book-expert/voice-clone-service/internal/planner"
	"github.com/book-expert/voice-clone-service/internal/reconcile"
)

// Orchestrator is the façade the upstream workflow talks to.
type Orchestrator struct {
	planner    *planner.Planner
	executor   *executor.Executor
	reconciler *reconcile.Reconciler
	timeout    time.Duration
	log        *logger.Logger
}

// New creates an Orchestrator. timeout bounds one whole run: planning, all
// provider calls, and reconciliation together.
func New(
	plan *planner.Planner,
	exec *executor.Executor,
	rec *reconcile.Reconciler,
	timeout time.Duration,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		planner:    plan,
		executor:   exec,
		reconciler: rec,
		timeout:    timeout,
		log:        log,
	}
}

// ShouldRun reports whether a run would do any training work: true iff the
// plan holds at least one job with at least one sample. An empty combined
// fallback job is a planned no-op and does not justify the expensive path.
func (o *Orchestrator) ShouldRun(ctx context.Context, userID string) (bool, error) {
	plan, err := o.planner.Plan(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("pre-check planning failed for user '%s': %w", userID, err)
	}

	return plan.SampleTotal() > 0, nil
}

// Run performs one plan-execute-reconcile cycle for the user and returns
// the aggregate outcome. It never returns an error; fatal planning
// failures come back as a failed result.
func (o *Orchestrator) Run(ctx context.Context, userID string) core.OrchestrationResult {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result := core.OrchestrationResult{
		Succeeded:      false,
		Strategy:       "",
		Results:        nil,
		LockingApplied: false,
		TimedOut:       false,
		Error:          "",
		Steps:          nil,
	}

	plan, err := o.planner.Plan(ctx, userID)
	if err != nil {
		o.log.Error("Orchestration for user %s failed during planning: %v", userID, err)

		result.Error = err.Error()
		result.Steps = append(result.Steps, step(core.PhasePlanning, "inventory read failed"))

		return result
	}

	result.Strategy = plan.Strategy
	result.Steps = append(result.Steps, step(
		core.PhasePlanning,
		fmt.Sprintf("%s strategy, %d job(s), %d sample(s)", plan.Strategy, len(plan.Jobs), plan.SampleTotal()),
	))

	if plan.SampleTotal() == 0 {
		// Nothing unlocked anywhere: a no-op success, zero voices created.
		result.Succeeded = true
		result.Steps = append(result.Steps, step(core.PhaseDone, "no unlocked samples; nothing to train"))

		return result
	}

	result.Results = o.executor.Execute(ctx, plan)
	result.Steps = append(result.Steps, step(
		core.PhaseExecuting,
		fmt.Sprintf("%d/%d job(s) succeeded", countSuccesses(result.Results), len(result.Results)),
	))

	if ctx.Err() != nil {
		// Deadline fired mid-execution: keep what finished, skip
		// reconciliation entirely for this run.
		o.log.Warn("Orchestration for user %s timed out after %s", userID, o.timeout)

		result.TimedOut = true
		result.Error = ctx.Err().Error()
		result.Steps = append(result.Steps, step(core.PhaseTimedOut, "deadline elapsed; reconciliation skipped"))

		return result
	}

	successes := successfulResults(result.Results)
	result.Succeeded = len(successes) > 0

	if len(successes) > 0 {
		result.LockingApplied = o.runReconciliation(ctx, userID, successes, plan.LockPlan, &result)
	} else {
		result.Steps = append(result.Steps, step(core.PhaseReconciling, "no successful jobs; nothing to reconcile"))
	}

	result.Steps = append(result.Steps, step(core.PhaseDone, ""))

	return result
}

func (o *Orchestrator) runReconciliation(
	ctx context.Context,
	userID string,
	successes []core.CloneResult,
	lockPlan []core.LockTarget,
	result *core.OrchestrationResult,
) bool {
	applied, err := o.reconciler.Reconcile(ctx, userID, successes, lockPlan)
	if err != nil {
		// The voices exist; reconciliation trouble is recorded but does
		// not fail the run.
		o.log.Error("Reconciliation for user %s failed: %v", userID, err)

		result.Steps = append(result.Steps, step(core.PhaseReconciling, "reconciliation failed: "+err.Error()))

		return false
	}

	result.Steps = append(result.Steps, step(
		core.PhaseReconciling,
		fmt.Sprintf("%d voice id(s) persisted, %d lock target(s)", len(successes), len(lockPlan)),
	))

	return applied
}

func step(phase core.Phase, detail string) core.Step {
	return core.Step{Phase: phase, Detail: detail}
}

func countSuccesses(results []core.CloneResult) int {
	count := 0

	for _, result := range results {
		if result.Success {
			count++
		}
	}

	return count
}

func successfulResults(results []core.CloneResult) []core.CloneResult {
	var successes []core.CloneResult

	for _, result := range results {
		if result.Success {
			successes = append(successes, result)
		}
	}

	return successes
}
