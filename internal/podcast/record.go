// Package podcast defines the podcast record model and the in-memory
// collection that serves as the single source of truth for the library view.
package podcast

import "fmt"

// Status represents the lifecycle state of a podcast record.
type Status string

// Record lifecycle states. A record transitions from pending to exactly one
// terminal state; after that nothing mutates it except user deletion.
const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Default MIME type for inline audio when the backend does not name one.
const defaultAudioContentType = "audio/wav"

// Data URI format for inline base64 audio payloads.
const dataURIFormat = "data:%s;base64,%s"

// Record is one entry in the podcast library. The ID is either a
// server-issued job id (async flow) or a client-generated timestamp id
// (synchronous flow) and is unique within a Collection.
type Record struct {
	ID             string   `json:"id"`
	FileName       string   `json:"fileName"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Summary        string   `json:"summary"`
	AudioReference string   `json:"audioReference,omitempty"`
	Voice          string   `json:"voice"`
	Date           string   `json:"date"`
	Tags           []string `json:"tags,omitempty"`
}

// Terminal reports whether the record has reached a state that permits no
// further transitions.
func (r Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// HasAudio reports whether the record carries a playable audio reference.
func (r Record) HasAudio() bool {
	return r.AudioReference != ""
}

// AudioReference materializes a playable reference from a backend payload.
// A direct URL wins; otherwise inline base64 audio becomes a data URI using
// the reported content type (audio/wav when unspecified); with neither the
// record has no playable audio and only the summary is shown.
func AudioReference(audioURL, audioBase64, contentType string) string {
	if audioURL != "" {
		return audioURL
	}

	if audioBase64 == "" {
		return ""
	}

	if contentType == "" {
		contentType = defaultAudioContentType
	}

	return fmt.Sprintf(dataURIFormat, contentType, audioBase64)
}

// merge overlays the non-zero fields of incoming onto base, preserving any
// field the incoming payload does not specify. Last write wins per field.
func merge(base, incoming Record) Record {
	merged := base

	if incoming.FileName != "" {
		merged.FileName = incoming.FileName
	}

	if incoming.Title != "" {
		merged.Title = incoming.Title
	}

	if incoming.Status != "" {
		merged.Status = incoming.Status
	}

	if incoming.Summary != "" {
		merged.Summary = incoming.Summary
	}

	if incoming.AudioReference != "" {
		merged.AudioReference = incoming.AudioReference
	}

	if incoming.Voice != "" {
		merged.Voice = incoming.Voice
	}

	if incoming.Date != "" {
		merged.Date = incoming.Date
	}

	if incoming.Tags != nil {
		merged.Tags = incoming.Tags
	}

	return merged
}
