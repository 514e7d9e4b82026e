// Package samplekv provides a NATS JetStream key-value implementation of
// the sample repository.
//
// Three record shapes share one bucket, discriminated by key prefix:
//
//	esm.<userID>.<sampleID>   per-user-sample record
//	rec.<recordingID>         per-recording record (legacy shape)
//	narr.<userID>.<narrID>    narration record
//
// Keeping both sample shapes is what makes the reconciler's dual voice-id
// write observable end to end.
package samplekv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/nats-io/nats.go"
)

// Key prefixes for the three record shapes.
const (
	prefixSample    = "esm."
	prefixRecording = "rec."
	prefixNarration = "narr."
)

// ErrRecordNotFound is returned when a targeted write misses.
var ErrRecordNotFound = errors.New("record not found")

// sampleRecord is the stored per-user-sample shape.
type sampleRecord struct {
	RecordingID   string        `json:"recording_id"`
	Category      core.Category `json:"category"`
	Name          string        `json:"name"`
	AudioLocation string        `json:"audio_location"`
	Locked        bool          `json:"locked"`
	VoiceID       string        `json:"voice_id,omitempty"`
}

// recordingRecord is the stored per-recording shape.
type recordingRecord struct {
	UserID        string `json:"user_id"`
	AudioLocation string `json:"audio_location"`
	VoiceID       string `json:"voice_id,omitempty"`
}

// narrationRecord is the stored narration shape.
type narrationRecord struct {
	AudioKey string `json:"audio_key"`
}

// Store implements core.SampleRepository on a JetStream key-value bucket.
type Store struct {
	bucket string
	kv     nats.KeyValue
}

// New creates a Store bound to the named bucket, creating it when absent.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	kv, err := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:       bucketName,
		Description:  fmt.Sprintf("Voice samples for the %s bucket.", bucketName),
		MaxValueSize: 0,
		History:      1,
		TTL:          0,
		MaxBytes:     0,
		Storage:      nats.FileStorage,
		Replicas:     1,
		Placement:    nil,
		RePublish:    nil,
		Mirror:       nil,
		Sources:      nil,
	})
	if err != nil {
		kv, err = jetstreamContext.KeyValue(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to key-value bucket '%s': %w", bucketName, err)
		}
	}

	return &Store{
		bucket: bucketName,
		kv:     kv,
	}, nil
}

// AddSample stores a new sample under both shapes. Upstream recording
// flows call this when a user finishes a clip.
func (s *Store) AddSample(_ context.Context, userID, sampleID string, sample core.Sample) error {
	record := sampleRecord{
		RecordingID:   sample.RecordingID,
		Category:      sample.Category,
		Name:          sample.Name,
		AudioLocation: sample.AudioLocation,
		Locked:        sample.Locked,
		VoiceID:       "",
	}

	err := s.putJSON(prefixSample+userID+"."+sampleID, record)
	if err != nil {
		return err
	}

	return s.putJSON(prefixRecording+sample.RecordingID, recordingRecord{
		UserID:        userID,
		AudioLocation: sample.AudioLocation,
		VoiceID:       "",
	})
}

// AddNarration stores a narration record.
func (s *Store) AddNarration(_ context.Context, userID string, narration core.Narration) error {
	return s.putJSON(prefixNarration+userID+"."+narration.ID, narrationRecord{
		AudioKey: narration.AudioKey,
	})
}

// ListUserSamples returns the user's samples grouped into items, ordered
// by category priority and key order within a category.
func (s *Store) ListUserSamples(_ context.Context, userID string) ([]core.Item, error) {
	keys, err := s.userKeys(prefixSample + userID + ".")
	if err != nil {
		return nil, err
	}

	grouped := make(map[string]*core.Item)

	var order []string

	for _, key := range keys {
		var record sampleRecord

		getErr := s.getJSON(key, &record)
		if getErr != nil {
			return nil, getErr
		}

		sample := core.Sample{
			UserESMID:     strings.TrimPrefix(key, prefixSample+userID+"."),
			RecordingID:   record.RecordingID,
			Category:      record.Category,
			Name:          record.Name,
			AudioLocation: record.AudioLocation,
			Locked:        record.Locked,
		}

		groupKey := string(record.Category) + "/" + record.Name

		item, ok := grouped[groupKey]
		if !ok {
			item = &core.Item{
				Category: record.Category,
				Name:     record.Name,
				Samples:  nil,
			}
			grouped[groupKey] = item
			order = append(order, groupKey)
		}

		item.Samples = append(item.Samples, sample)
	}

	items := make([]core.Item, 0, len(order))

	for _, category := range core.Categories() {
		for _, groupKey := range order {
			if grouped[groupKey].Category == category {
				items = append(items, *grouped[groupKey])
			}
		}
	}

	return items, nil
}

// WriteSampleVoiceID stamps a voice id onto the per-user-sample shape.
func (s *Store) WriteSampleVoiceID(_ context.Context, userID, userESMID, voiceID string) error {
	key := prefixSample + userID + "." + userESMID

	var record sampleRecord

	err := s.getJSON(key, &record)
	if err != nil {
		return err
	}

	record.VoiceID = voiceID

	return s.putJSON(key, record)
}

// WriteRecordingVoiceID stamps the same voice id onto the per-recording
// shape.
func (s *Store) WriteRecordingVoiceID(_ context.Context, recordingID, voiceID string) error {
	key := prefixRecording + recordingID

	var record recordingRecord

	err := s.getJSON(key, &record)
	if err != nil {
		return err
	}

	record.VoiceID = voiceID

	return s.putJSON(key, record)
}

// SetLocked marks every sample of the named item as locked.
func (s *Store) SetLocked(_ context.Context, userID string, category core.Category, itemName string) error {
	keys, err := s.userKeys(prefixSample + userID + ".")
	if err != nil {
		return err
	}

	for _, key := range keys {
		var record sampleRecord

		getErr := s.getJSON(key, &record)
		if getErr != nil {
			return getErr
		}

		if record.Category != category || record.Name != itemName {
			continue
		}

		record.Locked = true

		putErr := s.putJSON(key, record)
		if putErr != nil {
			return putErr
		}
	}

	return nil
}

// ListNarrations returns the user's narration records.
func (s *Store) ListNarrations(_ context.Context, userID string) ([]core.Narration, error) {
	prefix := prefixNarration + userID + "."

	keys, err := s.userKeys(prefix)
	if err != nil {
		return nil, err
	}

	narrations := make([]core.Narration, 0, len(keys))

	for _, key := range keys {
		var record narrationRecord

		getErr := s.getJSON(key, &record)
		if getErr != nil {
			return nil, getErr
		}

		narrations = append(narrations, core.Narration{
			ID:       strings.TrimPrefix(key, prefix),
			UserID:   userID,
			AudioKey: record.AudioKey,
		})
	}

	return narrations, nil
}

// DeleteNarration removes one narration record.
func (s *Store) DeleteNarration(_ context.Context, userID, narrationID string) error {
	key := prefixNarration + userID + "." + narrationID

	err := s.kv.Delete(key)
	if err != nil {
		return fmt.Errorf("failed to delete narration '%s' from bucket '%s': %w",
			narrationID, s.bucket, err)
	}

	return nil
}

// userKeys lists the bucket keys under one prefix, sorted for a stable
// inventory order.
func (s *Store) userKeys(prefix string) ([]string, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list keys in bucket '%s': %w", s.bucket, err)
	}

	var matched []string

	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}

	sort.Strings(matched)

	return matched, nil
}

func (s *Store) getJSON(key string, out any) error {
	entry, err := s.kv.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("%w: key '%s' in bucket '%s'", ErrRecordNotFound, key, s.bucket)
		}

		return fmt.Errorf("failed to get key '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	err = json.Unmarshal(entry.Value(), out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal key '%s': %w", key, err)
	}

	return nil
}

func (s *Store) putJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal key '%s': %w", key, err)
	}

	_, err = s.kv.Put(key, data)
	if err != nil {
		return fmt.Errorf("failed to put key '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}
