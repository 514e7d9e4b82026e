// clone-trigger publishes a clone trigger event for a user and prints the
// orchestration outcome, or checks the voice-cloning provider's health.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/config"
	"github.com/book-expert/voice-clone-service/internal/provider"
	"github.com/book-expert/voice-clone-service/internal/worker"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Flag names and descriptions.
const (
	flagUser        = "user"
	flagUserDesc    = "User id to trigger a clone run for"
	flagHealth      = "health"
	flagHealthDesc  = "Check voice-cloning provider health and exit"
	flagTimeout     = "timeout"
	flagTimeoutDesc = "How long to wait for the orchestration reply"
)

const defaultReplyTimeout = 6 * time.Minute

// ErrUserRequired indicates that no user id was provided.
var ErrUserRequired = errors.New("--user must be provided")

type appFlags struct {
	user    string
	health  bool
	timeout time.Duration
}

func main() {
	err := run()
	if err != nil {
		// The file logger may not be initialized yet, so use the
		// standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	appLog, err := logger.New(os.TempDir(), "clone-trigger.log")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		closeErr := appLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	cfg, err := config.Load(appLog)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags.health {
		return handleHealthCheck(cfg)
	}

	if flags.user == "" {
		flag.Usage()

		return ErrUserRequired
	}

	return handleTrigger(cfg, flags)
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.user, flagUser, "", flagUserDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.DurationVar(&flags.timeout, flagTimeout, defaultReplyTimeout, flagTimeoutDesc)
	flag.Parse()

	return flags
}

// handleHealthCheck performs a provider health check and prints the result.
func handleHealthCheck(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := provider.New(cfg.Cloning.ProviderURL, 10*time.Second)

	err := client.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Provider is not healthy: %v\n", err)

		return err
	}

	fmt.Println("Provider is healthy")

	return nil
}

// handleTrigger publishes the trigger event and waits for the worker's
// reply.
func handleTrigger(cfg *config.Config, flags appFlags) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	event := worker.SamplesRecordedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     flags.user,
			TenantID:   "",
		},
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger event: %w", err)
	}

	replyMsg, err := natsConnection.Request(cfg.NATS.SamplesRecordedSubject, eventData, flags.timeout)
	if err != nil {
		return fmt.Errorf("failed to receive orchestration reply: %w", err)
	}

	var reply worker.VoicesCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &reply)
	if err != nil {
		return fmt.Errorf("failed to unmarshal reply event: %w", err)
	}

	fmt.Println(formatReply(reply))

	return nil
}

// formatReply renders the worker's reply for the terminal.
func formatReply(reply worker.VoicesCreatedEvent) string {
	if !reply.Ran {
		if reply.Error != "" {
			return "Run skipped: " + reply.Error
		}

		return "Run skipped: nothing to train"
	}

	var b strings.Builder

	if reply.Succeeded {
		b.WriteString("Run succeeded")
	} else {
		b.WriteString("Run failed")
	}

	fmt.Fprintf(&b, " (strategy: %s)", reply.Strategy)

	if len(reply.VoiceIDs) > 0 {
		fmt.Fprintf(&b, "\nVoices created: %s", strings.Join(reply.VoiceIDs, ", "))
	}

	if reply.LockingApplied {
		b.WriteString("\nLocking applied")
	}

	if reply.TimedOut {
		b.WriteString("\nRun timed out before all jobs finished")
	}

	if reply.Error != "" {
		fmt.Fprintf(&b, "\nError: %s", reply.Error)
	}

	return b.String()
}
