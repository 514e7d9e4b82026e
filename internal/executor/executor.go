// Package executor runs a segmentation plan's clone jobs against the
// voice-cloning provider.
//
// Jobs run sequentially in plan order under the caller's shared deadline.
// One job's failure never aborts its siblings; every planned job yields
// exactly one result. When the deadline fires mid-run, the jobs still
// pending are marked as timeout failures instead of being attempted.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
)

// ErrNoAudioLocation marks a sample whose audio reference cannot be
// resolved to a fetchable URL.
var ErrNoAudioLocation = errors.New("sample has no audio location")

const errDeadlineExceeded = "orchestration deadline exceeded before job ran"

// Executor submits clone jobs to the provider one at a time.
type Executor struct {
	trainer       core.VoiceTrainer
	publicBaseURL string
	log           *logger.Logger
}

// New creates an Executor. publicBaseURL prefixes relative audio locations
// so the provider can fetch them.
func New(trainer core.VoiceTrainer, publicBaseURL string, log *logger.Logger) *Executor {
	return &Executor{
		trainer:       trainer,
		publicBaseURL: publicBaseURL,
		log:           log,
	}
}

// Execute runs every job in the plan and returns one result per job, in
// plan order. It never returns an error: per-job failures are recorded in
// the corresponding result, and deadline expiry marks the remaining jobs
// as failed without attempting them.
func (e *Executor) Execute(ctx context.Context, plan core.SegmentationPlan) []core.CloneResult {
	results := make([]core.CloneResult, 0, len(plan.Jobs))

	for index, job := range plan.Jobs {
		if ctx.Err() != nil {
			e.log.Warn(
				"Deadline expired before job %d/%d for user %s; marking as failed",
				index+1, len(plan.Jobs), plan.UserID,
			)
			results = append(results, core.FailedClone(job, errDeadlineExceeded))

			continue
		}

		results = append(results, e.runJob(ctx, plan.UserID, job))
	}

	return results
}

// runJob performs the single training attempt for one job. There are no
// per-job retries: at most one provider call per job per orchestration
// run.
func (e *Executor) runJob(ctx context.Context, userID string, job core.CloneJob) core.CloneResult {
	req := e.buildRequest(userID, job)

	voiceID, err := e.trainer.TrainVoice(ctx, req)
	if err != nil {
		e.log.Error(
			"Provider training call failed for user %s (%s, items %v, recordings %v): %v",
			userID, job.Kind, job.Items, job.RecordingIDs(), err,
		)

		return core.FailedClone(job, err.Error())
	}

	e.log.Info(
		"Provider created voice %s for user %s (%s, %d samples)",
		voiceID, userID, job.VoiceType, len(req.Samples),
	)

	return core.SucceededClone(job, voiceID)
}

// buildRequest resolves the job's sample locations and assembles the
// provider payload. A sample whose location cannot be resolved is logged
// and skipped; it never fails the job.
func (e *Executor) buildRequest(userID string, job core.CloneJob) core.TrainVoiceRequest {
	samples := make([]core.TrainSample, 0, len(job.Samples))

	for index, sample := range job.Samples {
		url, err := e.resolveURL(sample.AudioLocation)
		if err != nil {
			e.log.Warn(
				"Skipping sample %s for user %s: %v",
				sample.RecordingID, userID, err,
			)

			continue
		}

		samples = append(samples, core.TrainSample{
			Label:  sampleLabel(sample, job, index),
			URL:    url,
			Locked: sample.Locked,
		})
	}

	return core.TrainVoiceRequest{
		UserID:      userID,
		VoiceType:   job.VoiceType,
		Category:    string(job.Category),
		SampleCount: len(samples),
		Samples:     samples,
	}
}

// resolveURL turns an opaque audio location into a provider-fetchable
// absolute URL. Locations that are already absolute pass through.
func (e *Executor) resolveURL(location string) (string, error) {
	if location == "" {
		return "", ErrNoAudioLocation
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return location, nil
	}

	base := strings.TrimSuffix(e.publicBaseURL, "/")

	return base + "/" + strings.TrimPrefix(location, "/"), nil
}

// sampleLabel names one sample in the provider payload: the item name when
// present, a positional category label otherwise.
func sampleLabel(sample core.Sample, job core.CloneJob, index int) string {
	if sample.Name != "" {
		return sample.Name
	}

	category := job.Category
	if category == "" {
		category = sample.Category
	}

	return fmt.Sprintf("%s_%d", category, index)
}
