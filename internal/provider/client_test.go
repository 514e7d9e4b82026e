// Package provider_test tests the voice-cloning provider HTTP client.
package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardRequest() core.TrainVoiceRequest {
	return core.TrainVoiceRequest{
		UserID:      "u1",
		VoiceType:   "emotion_joy",
		Category:    "emotion",
		SampleCount: 2,
		Samples: []core.TrainSample{
			{Label: "joy", URL: "https://cdn.example.com/joy-0.wav", Locked: false},
			{Label: "joy", URL: "https://cdn.example.com/joy-1.wav", Locked: false},
		},
	}
}

func TestTrainVoiceSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/v1/voices/train", request.URL.Path)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var req core.TrainVoiceRequest

			err := json.NewDecoder(request.Body).Decode(&req)
			require.NoError(t, err)
			assert.Equal(t, "u1", req.UserID)
			assert.Equal(t, "emotion_joy", req.VoiceType)
			assert.Len(t, req.Samples, 2)

			responseWriter.Header().Set("Content-Type", "application/json")

			writeErr := json.NewEncoder(responseWriter).Encode(provider.TrainVoiceResponse{
				VoiceID: "voice-123",
			})
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := provider.New(server.URL, 10*time.Second)

	voiceID, err := client.TrainVoice(context.Background(), standardRequest())
	require.NoError(t, err)
	assert.Equal(t, "voice-123", voiceID)
}

func TestTrainVoiceRejectsEmptySampleSet(t *testing.T) {
	t.Parallel()

	client := provider.New("http://127.0.0.1:1", time.Second)

	req := standardRequest()
	req.Samples = nil

	_, err := client.TrainVoice(context.Background(), req)
	require.ErrorIs(t, err, provider.ErrNoSamples)
}

func TestTrainVoiceStructuredError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusUnprocessableEntity)

			writeErr := json.NewEncoder(responseWriter).Encode(provider.ErrorResponse{
				Detail:    "samples too short",
				ErrorCode: "SAMPLES_TOO_SHORT",
			})
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := provider.New(server.URL, 10*time.Second)

	_, err := client.TrainVoice(context.Background(), standardRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "samples too short")
	assert.Contains(t, err.Error(), "SAMPLES_TOO_SHORT")
}

func TestTrainVoiceRejectsEmptyVoiceID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")

			_, writeErr := responseWriter.Write([]byte(`{}`))
			require.NoError(t, writeErr)
		},
	))
	defer server.Close()

	client := provider.New(server.URL, 10*time.Second)

	_, err := client.TrainVoice(context.Background(), standardRequest())
	require.ErrorIs(t, err, provider.ErrEmptyVoiceID)
}

func TestTrainVoiceHonorsContextDeadline(t *testing.T) {
	t.Parallel()

	blocker := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			<-blocker

			responseWriter.WriteHeader(http.StatusOK)
		},
	))

	defer func() {
		close(blocker)
		server.Close()
	}()

	client := provider.New(server.URL, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.TrainVoice(ctx, standardRequest())
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/health", request.URL.Path)
			responseWriter.WriteHeader(http.StatusOK)
		},
	))
	defer healthy.Close()

	client := provider.New(healthy.URL, 10*time.Second)
	require.NoError(t, client.HealthCheck(context.Background()))

	unhealthy := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.WriteHeader(http.StatusServiceUnavailable)
		},
	))
	defer unhealthy.Close()

	client = provider.New(unhealthy.URL, 10*time.Second)
	require.Error(t, client.HealthCheck(context.Background()))
}
