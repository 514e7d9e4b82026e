// Package executor_test tests clone-job execution against a mock provider.
package executor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockTrain = errors.New("mock training error")

// mockTrainer records every request and answers from a scripted list of
// outcomes, one per call.
type mockTrainer struct {
	requests []core.TrainVoiceRequest
	voiceIDs []string
	errs     []error
}

func (m *mockTrainer) TrainVoice(_ context.Context, req core.TrainVoiceRequest) (string, error) {
	call := len(m.requests)
	m.requests = append(m.requests, req)

	if call < len(m.errs) && m.errs[call] != nil {
		return "", m.errs[call]
	}

	if call < len(m.voiceIDs) {
		return m.voiceIDs[call], nil
	}

	return "voice-default", nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "executor-test.log")
	require.NoError(t, err)

	return log
}

func jobWithSamples(kind core.Strategy, category core.Category, name string, locations ...string) core.CloneJob {
	job := core.CloneJob{
		Kind:      kind,
		Category:  category,
		Items:     []string{name},
		Samples:   nil,
		VoiceType: string(category) + "_" + name,
	}

	for _, loc := range locations {
		job.Samples = append(job.Samples, core.Sample{
			UserESMID:     "esm",
			RecordingID:   "rec",
			Category:      category,
			Name:          name,
			AudioLocation: loc,
			Locked:        false,
		})
	}

	return job
}

func TestExecuteResolvesRelativeLocations(t *testing.T) {
	t.Parallel()

	trainer := &mockTrainer{requests: nil, voiceIDs: []string{"voice-1"}, errs: nil}
	exec := executor.New(trainer, "https://cdn.example.com/recordings/", newTestLogger(t))

	plan := core.SegmentationPlan{
		UserID:      "u1",
		Strategy:    core.StrategyIndividual,
		TargetItems: []string{"joy"},
		Jobs: []core.CloneJob{
			jobWithSamples(core.StrategyIndividual, core.CategoryEmotion, "joy",
				"audio/joy-0.wav", "https://elsewhere.example.com/joy-1.wav"),
		},
		LockPlan: nil,
	}

	results := exec.Execute(context.Background(), plan)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "voice-1", results[0].VoiceID)

	require.Len(t, trainer.requests, 1)
	req := trainer.requests[0]
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, 2, req.SampleCount)
	assert.Equal(t, "https://cdn.example.com/recordings/audio/joy-0.wav", req.Samples[0].URL)
	// Absolute locations pass through untouched.
	assert.Equal(t, "https://elsewhere.example.com/joy-1.wav", req.Samples[1].URL)
	assert.Equal(t, "joy", req.Samples[0].Label)
}

func TestExecuteSkipsUnresolvableSamples(t *testing.T) {
	t.Parallel()

	trainer := &mockTrainer{requests: nil, voiceIDs: []string{"voice-1"}, errs: nil}
	exec := executor.New(trainer, "https://cdn.example.com", newTestLogger(t))

	job := jobWithSamples(core.StrategyCategory, core.CategoryEmotion, "joy", "a.wav", "", "b.wav")
	plan := core.SegmentationPlan{
		UserID:      "u1",
		Strategy:    core.StrategyCategory,
		TargetItems: []string{"emotion"},
		Jobs:        []core.CloneJob{job},
		LockPlan:    nil,
	}

	results := exec.Execute(context.Background(), plan)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	require.Len(t, trainer.requests, 1)
	assert.Equal(t, 2, trainer.requests[0].SampleCount)
	assert.Len(t, trainer.requests[0].Samples, 2)
}

func TestExecuteUsesPositionalLabelFallback(t *testing.T) {
	t.Parallel()

	trainer := &mockTrainer{requests: nil, voiceIDs: nil, errs: nil}
	exec := executor.New(trainer, "https://cdn.example.com", newTestLogger(t))

	job := core.CloneJob{
		Kind:     core.StrategyCombined,
		Category: "",
		Items:    nil,
		Samples: []core.Sample{{
			UserESMID:     "esm-1",
			RecordingID:   "rec-1",
			Category:      core.CategorySound,
			Name:          "",
			AudioLocation: "rain.wav",
			Locked:        false,
		}},
		VoiceType: "combined_voice",
	}
	plan := core.SegmentationPlan{
		UserID:      "u1",
		Strategy:    core.StrategyCombined,
		TargetItems: []string{core.CombinedTarget},
		Jobs:        []core.CloneJob{job},
		LockPlan:    nil,
	}

	exec.Execute(context.Background(), plan)

	require.Len(t, trainer.requests, 1)
	assert.Equal(t, "sound_0", trainer.requests[0].Samples[0].Label)
}

func TestExecuteContinuesPastFailedJobs(t *testing.T) {
	t.Parallel()

	trainer := &mockTrainer{
		requests: nil,
		voiceIDs: []string{"", "voice-2"},
		errs:     []error{errMockTrain, nil},
	}
	exec := executor.New(trainer, "https://cdn.example.com", newTestLogger(t))

	plan := core.SegmentationPlan{
		UserID:      "u1",
		Strategy:    core.StrategyIndividual,
		TargetItems: []string{"joy", "rain"},
		Jobs: []core.CloneJob{
			jobWithSamples(core.StrategyIndividual, core.CategoryEmotion, "joy", "j.wav"),
			jobWithSamples(core.StrategyIndividual, core.CategorySound, "rain", "r.wav"),
		},
		LockPlan: nil,
	}

	results := exec.Execute(context.Background(), plan)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.Equal(t, errMockTrain.Error(), results[0].Error)
	assert.Equal(t, []string{"joy"}, results[0].Items)

	assert.True(t, results[1].Success)
	assert.Equal(t, "voice-2", results[1].VoiceID)
}

func TestExecuteMarksRemainingJobsOnExpiredDeadline(t *testing.T) {
	t.Parallel()

	trainer := &mockTrainer{requests: nil, voiceIDs: nil, errs: nil}
	exec := executor.New(trainer, "https://cdn.example.com", newTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	<-ctx.Done()

	plan := core.SegmentationPlan{
		UserID:      "u1",
		Strategy:    core.StrategyIndividual,
		TargetItems: []string{"joy", "rain"},
		Jobs: []core.CloneJob{
			jobWithSamples(core.StrategyIndividual, core.CategoryEmotion, "joy", "j.wav"),
			jobWithSamples(core.StrategyIndividual, core.CategorySound, "rain", "r.wav"),
		},
		LockPlan: nil,
	}

	results := exec.Execute(ctx, plan)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)
	// No provider call is attempted once the deadline has fired.
	assert.Empty(t, trainer.requests)
}
