// Package provider implements the HTTP client for the remote voice-cloning
// service.
//
// The contract is one training call per clone job: submit resolved sample
// URLs with labels and metadata, receive a provider-assigned voice id or a
// structured error. No streaming, no provider-side retries.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/voice-clone-service/internal/core"
)

// API endpoints.
const (
	apiTrainVoice = "/v1/voices/train"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
)

// Static errors.
var (
	ErrNoSamples    = errors.New("training request has no samples")
	ErrEmptyVoiceID = errors.New("provider returned an empty voice id")
)

// TrainVoiceResponse is the success payload of a training call.
type TrainVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// ErrorResponse is the structured error payload the provider returns on
// non-success status codes.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Client talks to the voice-cloning provider over HTTP. It implements
// core.VoiceTrainer.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a provider client. baseURL includes protocol and port
// (e.g. "http://localhost:8100"); timeout applies to every call.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TrainVoice submits one training request and returns the new voice id.
// Degenerate requests are rejected at the boundary before any network
// traffic.
func (c *Client) TrainVoice(ctx context.Context, req core.TrainVoiceRequest) (string, error) {
	if len(req.Samples) == 0 {
		return "", ErrNoSamples
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal training request: %w", err)
	}

	url := c.baseURL + apiTrainVoice

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create training request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf(
			"failed to send training request to provider at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseErrorResponse(resp)
	}

	var trainResp TrainVoiceResponse

	err = json.NewDecoder(resp.Body).Decode(&trainResp)
	if err != nil {
		return "", fmt.Errorf("failed to decode training response: %w", err)
	}

	if trainResp.VoiceID == "" {
		return "", ErrEmptyVoiceID
	}

	return trainResp.VoiceID, nil
}

// HealthCheck verifies the provider is reachable and reports healthy.
// Callers use it to fail fast before an expensive orchestration run.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for provider at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes the provider's structured error; if the body
// is not JSON the raw text is preserved for diagnostics.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp ErrorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(
			"provider error (%s): %s (code: %s)",
			resp.Status, errorResp.Detail, errorResp.ErrorCode,
		)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"provider returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
