// Package speech provides the pluggable speech-synthesis abstraction used
// for voice previews and playback of podcast scripts.
//
// Two engine variants exist: a local one that shells out to an on-host
// synthesizer, and a remote one that asks the backend for rendered audio and
// plays it locally. Call sites select an engine once at startup and never
// need to know which variant is active.
package speech

import (
	"context"
	"errors"

	"github.com/book-expert/logger"
)

// Static errors shared by the engine implementations.
var (
	ErrEngineUnavailable = errors.New("speech engine is not available on this host")
	ErrNothingToSpeak    = errors.New("text cannot be empty")
)

// Voice is a normalized descriptor for one synthesizable voice, identical in
// shape whether it came from the local synthesizer or the remote catalog.
type Voice struct {
	ID           string
	Name         string
	LanguageCode string
	Gender       string
}

// SpeakOptions tune an utterance. Zero values mean engine defaults.
type SpeakOptions struct {
	// Rate is a playback-speed multiplier; 1.0 is normal speed.
	Rate float64
	// Pitch is a pitch multiplier; 1.0 is the voice default.
	Pitch float64
	// Volume is an amplitude multiplier; 1.0 is the voice default.
	Volume float64
}

// Engine is the uniform contract over the speech backends.
//
// Speak never blocks on playback: it starts the utterance and returns a
// channel that receives exactly one value when playback ends (nil) or fails.
// Starting a new utterance implicitly cancels the one in progress; there is
// no queueing. Cancel is safe to call when nothing is speaking.
type Engine interface {
	Available() bool
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, text, voiceID string, opts SpeakOptions) (<-chan error, error)
	Cancel()
}

// Select probes the local engine once and returns it when it can synthesize
// on this host, falling back to the remote engine otherwise. The capability
// check happens here, at startup, not per call.
func Select(local, remote Engine, log *logger.Logger) Engine {
	if local != nil && local.Available() {
		log.Info("Using local speech engine")

		return local
	}

	log.Info("Local speech engine unavailable, using remote rendering")

	return remote
}

// utterance is one in-flight Speak call. The done channel is buffered so the
// playback goroutine never blocks on an abandoned caller.
type utterance struct {
	cancel context.CancelFunc
	done   chan error
}

// speaker serializes utterances for one engine instance: starting a new one
// cancels the previous, so at most one plays at a time.
type speaker struct {
	current *utterance
}

// begin cancels any in-flight utterance and registers a new one. Callers
// hold the owning engine's lock.
func (s *speaker) begin(parent context.Context) (*utterance, context.Context) {
	if s.current != nil {
		s.current.cancel()
	}

	ctx, cancel := context.WithCancel(parent)

	u := &utterance{
		cancel: cancel,
		done:   make(chan error, 1),
	}
	s.current = u

	return u, ctx
}

// settle resolves an utterance and clears it if it is still the current one.
// Callers hold the owning engine's lock.
func (s *speaker) settle(u *utterance, err error) {
	u.cancel()
	u.done <- err

	if s.current == u {
		s.current = nil
	}
}

// stop cancels the in-flight utterance, if any. Callers hold the owning
// engine's lock.
func (s *speaker) stop() {
	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}
