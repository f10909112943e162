package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// Default audio players probed when none is configured, in preference order.
var defaultPlayers = []string{"aplay", "afplay", "paplay"}

// ErrNoPlayer indicates that no audio player binary could be found.
var ErrNoPlayer = errors.New("no audio player binary available")

const (
	playbackFilePattern = "%s.wav"
	playbackFilePerms   = 0o600
)

// Player plays a rendered audio payload to completion or context
// cancellation.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// CommandPlayer plays audio by handing a temporary file to an on-host player
// binary. Cancellation kills the player process.
type CommandPlayer struct {
	command string
	log     *logger.Logger
}

// NewCommandPlayer creates a player around the given binary. An empty command
// probes the standard players on PATH and keeps the first one found; the
// returned player may be unavailable, which Play reports per call.
func NewCommandPlayer(command string, log *logger.Logger) *CommandPlayer {
	if command == "" {
		command = probeDefaultPlayer()
	}

	return &CommandPlayer{
		command: command,
		log:     log,
	}
}

// Available reports whether the player binary can be resolved on PATH.
func (p *CommandPlayer) Available() bool {
	if p.command == "" {
		return false
	}

	_, err := exec.LookPath(p.command)

	return err == nil
}

// Play writes the audio to a temporary file and blocks until the player
// process exits or the context is cancelled.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if !p.Available() {
		return ErrNoPlayer
	}

	audioPath := filepath.Join(
		os.TempDir(),
		fmt.Sprintf(playbackFilePattern, uuid.NewString()),
	)

	err := os.WriteFile(audioPath, audio, playbackFilePerms)
	if err != nil {
		return fmt.Errorf("failed to write playback file: %w", err)
	}

	defer func() {
		removeErr := os.Remove(audioPath)
		if removeErr != nil {
			p.log.Warn("Failed to remove playback file '%s': %v", audioPath, removeErr)
		}
	}()

	// #nosec G204 -- the command comes from configuration, the argument is our temp file
	cmd := exec.CommandContext(ctx, p.command, audioPath)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("player execution failed: %w - output: %s", err, string(output))
	}

	return nil
}

func probeDefaultPlayer() string {
	for _, candidate := range defaultPlayers {
		_, err := exec.LookPath(candidate)
		if err == nil {
			return candidate
		}
	}

	return ""
}
