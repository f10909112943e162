package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/notecast/notecast/internal/speech/text"
)

// Default synthesizer binary. espeak-ng is the common no-network TTS on the
// hosts this client targets.
const defaultSynthesizer = "espeak-ng"

// espeak argument names and baselines for mapping SpeakOptions.
const (
	argVoice     = "-v"
	argWriteWAV  = "-w"
	argRate      = "-s"
	argPitch     = "-p"
	argAmplitude = "-a"

	baselineWordsPerMinute = 175
	baselinePitch          = 50
	baselineAmplitude      = 100
)

// Synthesizer voice listing.
const (
	voicesFlag           = "--voices"
	voiceListMinFields   = 4
	voiceLanguageField   = 1
	voiceGenderField     = 2
	voiceNameField       = 3
	synthesisFilePattern = "%s.wav"
)

// LocalEngine performs text-to-speech entirely in-process on this host by
// shelling out to a synthesizer binary, no network involved.
type LocalEngine struct {
	command string
	player  Player
	log     *logger.Logger

	mu      sync.Mutex
	speaker speaker
}

// NewLocalEngine creates a local engine around the given synthesizer command
// and player. An empty command uses the default synthesizer.
func NewLocalEngine(command string, player Player, log *logger.Logger) *LocalEngine {
	if command == "" {
		command = defaultSynthesizer
	}

	return &LocalEngine{
		command: command,
		player:  player,
		log:     log,
	}
}

// Available reports whether the synthesizer binary resolves on PATH.
func (e *LocalEngine) Available() bool {
	_, err := exec.LookPath(e.command)

	return err == nil
}

// Voices lists the synthesizer's voice catalog, normalized to the same
// descriptor shape the remote catalog uses. The list may be empty when the
// synthesizer reports none.
func (e *LocalEngine) Voices(ctx context.Context) ([]Voice, error) {
	if !e.Available() {
		return nil, ErrEngineUnavailable
	}

	// #nosec G204 -- the command comes from configuration
	cmd := exec.CommandContext(ctx, e.command, voicesFlag)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	return parseVoiceList(string(output)), nil
}

// Speak renders the text to a temporary WAV file and starts playback,
// cancelling any utterance already in progress. The returned channel
// receives exactly one value when playback ends or fails.
func (e *LocalEngine) Speak(
	ctx context.Context,
	speakText, voiceID string,
	opts SpeakOptions,
) (<-chan error, error) {
	if speakText == "" {
		return nil, ErrNothingToSpeak
	}

	if !e.Available() {
		return nil, ErrEngineUnavailable
	}

	e.mu.Lock()
	u, utterCtx := e.speaker.begin(ctx)
	e.mu.Unlock()

	go func() {
		err := e.renderAndPlay(utterCtx, speakText, voiceID, opts)

		e.mu.Lock()
		e.speaker.settle(u, err)
		e.mu.Unlock()
	}()

	return u.done, nil
}

// Cancel stops the in-flight utterance, if any.
func (e *LocalEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.speaker.stop()
}

func (e *LocalEngine) renderAndPlay(
	ctx context.Context,
	speakText, voiceID string,
	opts SpeakOptions,
) error {
	audio, err := e.synthesize(ctx, speakText, voiceID, opts)
	if err != nil {
		return err
	}

	err = e.player.Play(ctx, audio)
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	return nil
}

// synthesize runs the synthesizer binary against a temporary output file and
// returns the audio bytes.
func (e *LocalEngine) synthesize(
	ctx context.Context,
	speakText, voiceID string,
	opts SpeakOptions,
) ([]byte, error) {
	outputPath := filepath.Join(
		os.TempDir(),
		fmt.Sprintf(synthesisFilePattern, uuid.NewString()),
	)

	defer func() {
		removeErr := os.Remove(outputPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			e.log.Warn("Failed to remove synthesis file '%s': %v", outputPath, removeErr)
		}
	}()

	args := buildSynthesisArgs(outputPath, voiceID, opts)
	args = append(args, text.Normalize(speakText))

	// #nosec G204 -- the command comes from configuration, arguments are built above
	cmd := exec.CommandContext(ctx, e.command, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf(
			"synthesizer execution failed: %w - output: %s",
			err,
			string(output),
		)
	}

	audio, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	return audio, nil
}

// buildSynthesisArgs maps the normalized options onto espeak-style flags.
// Multipliers are applied against the synthesizer baselines.
func buildSynthesisArgs(outputPath, voiceID string, opts SpeakOptions) []string {
	args := []string{argWriteWAV, outputPath}

	if voiceID != "" {
		args = append(args, argVoice, voiceID)
	}

	if opts.Rate > 0 {
		words := int(opts.Rate * baselineWordsPerMinute)
		args = append(args, argRate, strconv.Itoa(words))
	}

	if opts.Pitch > 0 {
		args = append(args, argPitch, strconv.Itoa(int(opts.Pitch*baselinePitch)))
	}

	if opts.Volume > 0 {
		args = append(args, argAmplitude, strconv.Itoa(int(opts.Volume*baselineAmplitude)))
	}

	return args
}

// parseVoiceList parses the synthesizer's tabular voice listing. The first
// line is a header; each following line carries at least priority, language,
// age/gender, and voice name columns. Malformed lines are skipped.
func parseVoiceList(output string) []Voice {
	lines := strings.Split(output, "\n")
	if len(lines) <= 1 {
		return nil
	}

	voices := make([]Voice, 0, len(lines)-1)

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < voiceListMinFields {
			continue
		}

		language := fields[voiceLanguageField]
		name := fields[voiceNameField]

		voices = append(voices, Voice{
			ID:           name + "-" + language,
			Name:         name,
			LanguageCode: language,
			Gender:       fields[voiceGenderField],
		})
	}

	return voices
}
