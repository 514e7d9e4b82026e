// main package for the voice-clone-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-clone-service/internal/audiostore"
	"github.com/book-expert/voice-clone-service/internal/config"
	"github.com/book-expert/voice-clone-service/internal/executor"
	"github.com/book-expert/voice-clone-service/internal/orchestrator"
	"github.com/book-expert/voice-clone-service/internal/planner"
	"github.com/book-expert/voice-clone-service/internal/provider"
	"github.com/book-expert/voice-clone-service/internal/reconcile"
	"github.com/book-expert/voice-clone-service/internal/samplekv"
	"github.com/book-expert/voice-clone-service/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-clone-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve connects the collaborators and runs the trigger worker until a
// shutdown signal arrives.
func serve(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	repo, err := samplekv.New(jetstreamContext, cfg.NATS.SampleKVBucket)
	if err != nil {
		return fmt.Errorf("failed to open sample store: %w", err)
	}

	audio, err := audiostore.New(jetstreamContext, cfg.NATS.NarrationAudioBucket)
	if err != nil {
		return fmt.Errorf("failed to open narration audio store: %w", err)
	}

	trainer := provider.New(cfg.Cloning.ProviderURL, cfg.Cloning.ProviderTimeout())

	orch := orchestrator.New(
		planner.New(repo, planner.Thresholds{
			Individual: cfg.Cloning.IndividualThreshold,
			Category:   cfg.Cloning.CategoryThreshold,
		}, log),
		executor.New(trainer, cfg.Cloning.PublicBaseURL, log),
		reconcile.New(repo, audio, log),
		cfg.Cloning.OrchestrationTimeout(),
		log,
	)

	triggerWorker, err := worker.New(natsConnection, cfg.NATS.SamplesRecordedSubject, orch, log)
	if err != nil {
		return fmt.Errorf("failed to create trigger worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.System(
		"Voice-clone-service initialized. Listening for trigger events on subject: %s",
		cfg.NATS.SamplesRecordedSubject,
	)

	err = triggerWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("trigger worker stopped: %w", err)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
