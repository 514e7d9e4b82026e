// Package worker provides a NATS worker that triggers clone orchestration
// runs.
//
// Upstream publishes a SamplesRecordedEvent whenever a user finishes
// recording; the worker pre-checks the inventory and, when worthwhile,
// runs one orchestration and replies with the outcome.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrUserIDEmpty indicates that the trigger event carries no user id.
var ErrUserIDEmpty = errors.New("user id cannot be empty")

// SamplesRecordedEvent is the upstream trigger: a user's sample inventory
// changed and may now warrant cloning.
type SamplesRecordedEvent struct {
	Header events.EventHeader `json:"header"`
}

// VoicesCreatedEvent is the worker's reply with the orchestration outcome.
type VoicesCreatedEvent struct {
	Header         events.EventHeader `json:"header"`
	Ran            bool               `json:"ran"`
	Succeeded      bool               `json:"succeeded"`
	Strategy       core.Strategy      `json:"strategy,omitempty"`
	VoiceIDs       []string           `json:"voice_ids,omitempty"`
	LockingApplied bool               `json:"locking_applied"`
	TimedOut       bool               `json:"timed_out"`
	Error          string             `json:"error,omitempty"`
}

// Worker listens for trigger events on a NATS subject and runs clone
// orchestrations for them.
type Worker struct {
	natsConnection *nats.Conn
	subject        string
	orchestrator   core.CloneOrchestrator
	log            *logger.Logger
}

// New creates a Worker.
func New(
	natsConnection *nats.Conn,
	subject string,
	orchestrator core.CloneOrchestrator,
	log *logger.Logger,
) (*Worker, error) {
	return &Worker{
		natsConnection: natsConnection,
		subject:        subject,
		orchestrator:   orchestrator,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *Worker) handleMessage(msg *nats.Msg) {
	// The orchestrator applies its own shared deadline per run.
	ctx := context.Background()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate trigger event: %v", err)

		return
	}

	reply := w.orchestrate(ctx, event)

	publishErr := w.publishReply(msg, reply)
	if publishErr != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID, publishErr,
		)
	}
}

// orchestrate runs the pre-check and, when it passes, one full
// orchestration for the event's user.
func (w *Worker) orchestrate(ctx context.Context, event *SamplesRecordedEvent) *VoicesCreatedEvent {
	userID := event.Header.UserID
	reply := &VoicesCreatedEvent{
		Header:         w.replyHeader(event),
		Ran:            false,
		Succeeded:      false,
		Strategy:       "",
		VoiceIDs:       nil,
		LockingApplied: false,
		TimedOut:       false,
		Error:          "",
	}

	shouldRun, err := w.orchestrator.ShouldRun(ctx, userID)
	if err != nil {
		w.log.Error("Pre-check failed for user %s: %v", userID, err)

		reply.Error = err.Error()

		return reply
	}

	if !shouldRun {
		w.log.Info("Skipping clone run for user %s: nothing to train", userID)

		reply.Succeeded = true

		return reply
	}

	result := w.orchestrator.Run(ctx, userID)

	reply.Ran = true
	reply.Succeeded = result.Succeeded
	reply.Strategy = result.Strategy
	reply.VoiceIDs = result.VoiceIDs()
	reply.LockingApplied = result.LockingApplied
	reply.TimedOut = result.TimedOut
	reply.Error = result.Error

	return reply
}

func (w *Worker) replyHeader(event *SamplesRecordedEvent) events.EventHeader {
	return events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: event.Header.WorkflowID,
		EventID:    uuid.NewString(),
		UserID:     event.Header.UserID,
		TenantID:   event.Header.TenantID,
	}
}

func (w *Worker) publishReply(msg *nats.Msg, reply *VoicesCreatedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *Worker) parseAndValidateEvent(msg *nats.Msg) (*SamplesRecordedEvent, error) {
	var event SamplesRecordedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger event: %w", err)
	}

	if event.Header.UserID == "" {
		return nil, ErrUserIDEmpty
	}

	return &event, nil
}
