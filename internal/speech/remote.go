package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/book-expert/logger"

	"github.com/notecast/notecast/internal/api"
	"github.com/notecast/notecast/internal/speech/text"
)

// RemoteEngine renders speech by asking the backend's preview endpoint for
// audio and playing the payload locally. It is the universal fallback when
// no local synthesizer is installed.
type RemoteEngine struct {
	client *api.Client
	player Player
	log    *logger.Logger

	mu      sync.Mutex
	speaker speaker
}

// NewRemoteEngine creates a remote engine around the given backend client
// and player.
func NewRemoteEngine(client *api.Client, player Player, log *logger.Logger) *RemoteEngine {
	return &RemoteEngine{
		client: client,
		player: player,
		log:    log,
	}
}

// Available always reports true: the remote engine is the fallback variant,
// and backend reachability is a per-call concern.
func (e *RemoteEngine) Available() bool {
	return true
}

// Voices fetches the backend's voice catalog, normalized to the shared
// descriptor shape.
func (e *RemoteEngine) Voices(ctx context.Context) ([]Voice, error) {
	remote, err := e.client.ListVoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote voices: %w", err)
	}

	voices := make([]Voice, 0, len(remote))
	for _, v := range remote {
		voices = append(voices, Voice{
			ID:           v.ID,
			Name:         v.Name,
			LanguageCode: v.LanguageCode,
			Gender:       v.Gender,
		})
	}

	return voices, nil
}

// Speak requests rendered audio for the text and starts playback, cancelling
// any utterance already in progress. Text beyond the backend's preview cap is
// rejected by the client before any request goes out; callers wanting
// best-effort behavior truncate first.
func (e *RemoteEngine) Speak(
	ctx context.Context,
	speakText, voiceID string,
	opts SpeakOptions,
) (<-chan error, error) {
	if speakText == "" {
		return nil, ErrNothingToSpeak
	}

	e.mu.Lock()
	u, utterCtx := e.speaker.begin(ctx)
	e.mu.Unlock()

	go func() {
		err := e.renderAndPlay(utterCtx, speakText, voiceID)

		e.mu.Lock()
		e.speaker.settle(u, err)
		e.mu.Unlock()
	}()

	return u.done, nil
}

// Cancel stops the in-flight utterance, if any.
func (e *RemoteEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.speaker.stop()
}

func (e *RemoteEngine) renderAndPlay(ctx context.Context, speakText, voiceID string) error {
	audio, err := e.client.PreviewVoice(ctx, text.Normalize(speakText), voiceID)
	if err != nil {
		return fmt.Errorf("remote rendering failed: %w", err)
	}

	err = e.player.Play(ctx, audio)
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	return nil
}
