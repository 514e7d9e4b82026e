package core

import "context"

// SampleRepository is the storage collaborator for labeled voice samples,
// the per-recording rows they came from, and the narrations derived from
// them. All reads and writes are scoped to a single user.
type SampleRepository interface {
	// ListUserSamples returns the user's samples grouped into items, in
	// category order (emotion, sound, modulation) and insertion order
	// within a category.
	ListUserSamples(ctx context.Context, userID string) ([]Item, error)

	// WriteSampleVoiceID writes a trained voice id onto the
	// per-user-sample shape.
	WriteSampleVoiceID(ctx context.Context, userID, userESMID, voiceID string) error

	// WriteRecordingVoiceID writes the same voice id onto the
	// per-recording shape, kept in step for backward compatibility.
	WriteRecordingVoiceID(ctx context.Context, recordingID, voiceID string) error

	// SetLocked marks every sample of the named item as consumed by an
	// individual-level clone. Never unset by this subsystem.
	SetLocked(ctx context.Context, userID string, category Category, itemName string) error

	// ListNarrations returns the user's previously generated narrations.
	ListNarrations(ctx context.Context, userID string) ([]Narration, error)

	// DeleteNarration removes one narration record.
	DeleteNarration(ctx context.Context, userID, narrationID string) error
}

// AudioStore is the blob-storage collaborator holding generated narration
// audio.
type AudioStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error

	// DeleteUserAudio removes every stored object belonging to the user.
	DeleteUserAudio(ctx context.Context, userID string) error
}

// TrainSample is one sample reference submitted to the provider.
type TrainSample struct {
	Label  string `json:"label"`
	URL    string `json:"url"`
	Locked bool   `json:"locked"`
}

// TrainVoiceRequest is the payload of one provider training call.
type TrainVoiceRequest struct {
	UserID      string        `json:"user_id"`
	VoiceType   string        `json:"voice_type"`
	Category    string        `json:"category,omitempty"`
	SampleCount int           `json:"sample_count"`
	Samples     []TrainSample `json:"samples"`
}

// CloneOrchestrator is the façade exposed to the upstream workflow.
type CloneOrchestrator interface {
	// ShouldRun reports whether a run would do any training work, so
	// callers can avoid the expensive path needlessly.
	ShouldRun(ctx context.Context, userID string) (bool, error)

	// Run performs one plan-execute-reconcile cycle and always returns a
	// structured result.
	Run(ctx context.Context, userID string) OrchestrationResult
}

// VoiceTrainer is the remote voice-cloning provider. One call per clone
// job, no streaming, no provider-side retries assumed: a failure is
// terminal for that job within one orchestration run.
type VoiceTrainer interface {
	// TrainVoice submits the samples and returns the provider-assigned
	// voice id.
	TrainVoice(ctx context.Context, req TrainVoiceRequest) (string, error)
}
