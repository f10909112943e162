package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/spf13/cobra"

	"github.com/notecast/notecast/internal/api"
	"github.com/notecast/notecast/internal/config"
	"github.com/notecast/notecast/internal/fileutil"
	"github.com/notecast/notecast/internal/jobs"
	"github.com/notecast/notecast/internal/podcast"
	"github.com/notecast/notecast/internal/speech"
	"github.com/notecast/notecast/internal/upload"
)

const logFileName = "notecast.log"

const healthCheckTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "notecast",
	Short: "NoteCast turns notes and papers into a personal podcast library.",
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(healthCmd)
}

// app bundles the wired components every command needs.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	client     *api.Client
	collection *podcast.Collection
	tracker    *jobs.Tracker
	coord      *upload.Coordinator
	engine     speech.Engine
}

// newApp loads configuration and wires the client stack. A temporary
// bootstrap logger covers the window before the configured log directory is
// known.
func newApp() (*app, error) {
	bootstrapLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	err = fileutil.EnsureDir(cfg.Paths.BaseLogsDir)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client := api.NewClient(cfg.Backend.BaseURL, cfg.Timeout(), nil)
	collection := podcast.NewCollection()
	tracker := jobs.NewTracker(client, cfg.PollInterval(), cfg.Backend.MaxPollAttempts, log)

	coord := upload.NewCoordinator(
		client,
		tracker,
		collection,
		nil,
		cfg.MaxUploadBytes(),
		log,
	)

	player := speech.NewCommandPlayer(cfg.Speech.PlayerCommand, log)
	local := speech.NewLocalEngine(cfg.Speech.SynthesizerCommand, player, log)
	remote := speech.NewRemoteEngine(client, player, log)
	engine := speech.Select(local, remote, log)

	return &app{
		cfg:        cfg,
		log:        log,
		client:     client,
		collection: collection,
		tracker:    tracker,
		coord:      coord,
		engine:     engine,
	}, nil
}

// close tears down the app scope: polling loops stop and any in-flight
// playback is cancelled.
func (a *app) close() {
	a.tracker.Close()
	a.engine.Cancel()

	closeErr := a.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the generation backend is reachable.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), healthCheckTimeout)
		defer cancel()

		err = a.client.Health(ctx)
		if err != nil {
			a.log.Error("Health check failed: %v", err)

			return fmt.Errorf("backend is not healthy: %w", err)
		}

		fmt.Println("Backend is healthy.")

		return nil
	},
}
