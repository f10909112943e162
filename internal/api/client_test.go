// Package api_test tests the backend HTTP client.
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecast/notecast/internal/api"
)

const testTimeout = 5 * time.Second

// staticTokens is a TokenProvider returning a fixed token.
type staticTokens struct {
	token string
}

func (s staticTokens) Token(_ context.Context) (string, error) {
	return s.token, nil
}

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return api.NewClient(server.URL, testTimeout, nil)
}

func TestSubmitGeneration_AcceptedForAsync(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate-podcast", r.URL.Path)

		parseErr := r.ParseMultipartForm(1 << 20)
		require.NoError(t, parseErr)
		assert.Equal(t, "Joanna", r.FormValue("voice"))

		file, header, fileErr := r.FormFile("file")
		require.NoError(t, fileErr)

		defer file.Close()

		assert.Equal(t, "notes.txt", header.Filename)

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "abc"})
	})

	client := newTestClient(t, handler)

	result, err := client.SubmitGeneration(
		context.Background(),
		"notes.txt",
		strings.NewReader("some notes"),
		"Joanna",
	)
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "abc", result.JobID)
	assert.Nil(t, result.Inline)
}

func TestSubmitGeneration_SynchronousSuccess(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":            true,
			"summary":            "S2",
			"audio_base64":       "AAAA",
			"audio_content_type": "audio/wav",
		})
	})

	client := newTestClient(t, handler)

	result, err := client.SubmitGeneration(
		context.Background(),
		"notes.txt",
		strings.NewReader("some notes"),
		"Joanna",
	)
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	require.NotNil(t, result.Inline)
	assert.Equal(t, "S2", result.Inline.Summary)
	assert.Equal(t, "AAAA", result.Inline.AudioBase64)
}

func TestSubmitGeneration_SuccessFalseIsTerminalFailure(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "no text extracted from file",
		})
	})

	client := newTestClient(t, handler)

	_, err := client.SubmitGeneration(
		context.Background(),
		"notes.txt",
		strings.NewReader(""),
		"Joanna",
	)
	require.Error(t, err)
	require.ErrorIs(t, err, api.ErrGenerationRejected)
	assert.Contains(t, err.Error(), "no text extracted from file")
}

func TestSubmitGeneration_ServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	})

	client := newTestClient(t, handler)

	_, err := client.SubmitGeneration(
		context.Background(),
		"notes.txt",
		strings.NewReader("some notes"),
		"Joanna",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestJobStatus(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tts-job/abc", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"job": map[string]any{
				"job_id":     "abc",
				"status":     "completed",
				"summary":    "S",
				"audio_url":  "http://x/a.mp3",
				"file_path":  "/uploads/notes.txt",
				"updated_at": "2026-08-31T10:00:00Z",
				"voice":      "Joanna",
			},
		})
	})

	client := newTestClient(t, handler)

	job, err := client.JobStatus(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", job.JobID)
	assert.Equal(t, api.JobStatusCompleted, job.Status)
	assert.Equal(t, "S", job.Summary)
	assert.Equal(t, "http://x/a.mp3", job.AudioURL)
	assert.Equal(t, "/uploads/notes.txt", job.FilePath)
}

func TestJobStatus_EmptyIDRejectedLocally(t *testing.T) {
	t.Parallel()

	client := api.NewClient("http://127.0.0.1:1", testTimeout, nil)

	_, err := client.JobStatus(context.Background(), "")
	require.ErrorIs(t, err, api.ErrJobIDEmpty)
}

func TestListVoices(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tts/voices", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"voices": []map[string]string{
				{"Id": "Joanna", "Name": "Joanna", "LanguageCode": "en-US", "Gender": "Female"},
			},
		})
	})

	client := newTestClient(t, handler)

	voices, err := client.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Joanna", voices[0].ID)
	assert.Equal(t, "en-US", voices[0].LanguageCode)
}

func TestPreviewVoice(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tts/preview", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string

		decodeErr := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, decodeErr)
		assert.Equal(t, "hello", payload["text"])
		assert.Equal(t, "Joanna", payload["voiceId"])

		_, _ = w.Write([]byte("fake-wav-data"))
	})

	client := newTestClient(t, handler)

	audio, err := client.PreviewVoice(context.Background(), "hello", "Joanna")
	require.NoError(t, err)
	assert.Equal(t, "fake-wav-data", string(audio))
}

func TestPreviewVoice_TextCapEnforcedLocally(t *testing.T) {
	t.Parallel()

	requests := 0

	handler := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		requests++
	})

	client := newTestClient(t, handler)

	tooLong := strings.Repeat("a", api.PreviewCharLimit+1)

	_, err := client.PreviewVoice(context.Background(), tooLong, "Joanna")
	require.ErrorIs(t, err, api.ErrTextTooLong)
	assert.Equal(t, 0, requests, "no request should reach the backend")

	_, err = client.PreviewVoice(context.Background(), "", "Joanna")
	require.ErrorIs(t, err, api.ErrTextEmpty)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := api.NewClient(server.URL, testTimeout, staticTokens{token: "secret"})

	err := client.Health(context.Background())
	require.NoError(t, err)
}

func TestClient_TransportErrorIsWrapped(t *testing.T) {
	t.Parallel()

	// Nothing listens on this port.
	client := api.NewClient("http://127.0.0.1:1", time.Second, nil)

	err := client.Health(context.Background())
	require.Error(t, err)

	var submitErr error

	_, submitErr = client.JobStatus(context.Background(), "abc")
	require.Error(t, submitErr)
	assert.False(t, errors.Is(submitErr, api.ErrGenerationRejected))
}
