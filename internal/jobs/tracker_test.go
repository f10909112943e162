// Package jobs_test tests the job polling tracker.
package jobs_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecast/notecast/internal/api"
	"github.com/notecast/notecast/internal/jobs"
	"github.com/notecast/notecast/internal/podcast"
)

const (
	fastInterval = 10 * time.Millisecond
	slowInterval = time.Hour
	waitTimeout  = 5 * time.Second
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "tracker-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

// jobServer serves a scripted sequence of status responses for one job id
// and counts the requests it saw.
type jobServer struct {
	mu        sync.Mutex
	responses []func(w http.ResponseWriter)
	requests  int
}

func (s *jobServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		index := s.requests
		s.requests++

		if index >= len(s.responses) {
			index = len(s.responses) - 1
		}

		respond := s.responses[index]
		s.mu.Unlock()

		respond(w)
	})
}

func (s *jobServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests
}

func jobStatusResponse(job map[string]any) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		_ = json.NewEncoder(w).Encode(map[string]any{"job": job})
	}
}

func serverErrorResponse() func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		http.Error(w, "transient", http.StatusInternalServerError)
	}
}

func newTracked(
	t *testing.T,
	server *jobServer,
	interval time.Duration,
	maxAttempts int,
) (*jobs.Tracker, chan podcast.Record) {
	t.Helper()

	httpServer := httptest.NewServer(server.handler())
	t.Cleanup(httpServer.Close)

	client := api.NewClient(httpServer.URL, time.Second, nil)
	tracker := jobs.NewTracker(client, interval, maxAttempts, newTestLogger(t))
	t.Cleanup(tracker.Close)

	updates := make(chan podcast.Record, 10)

	tracker.Track("abc", func(record podcast.Record) {
		updates <- record
	})

	return tracker, updates
}

func awaitUpdate(t *testing.T, updates chan podcast.Record) podcast.Record {
	t.Helper()

	select {
	case record := <-updates:
		return record
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for terminal update")

		return podcast.Record{}
	}
}

func TestTracker_PendingThenCompleted(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
			jobStatusResponse(map[string]any{
				"job_id":     "abc",
				"status":     "completed",
				"summary":    "S",
				"audio_url":  "http://x/a.mp3",
				"file_path":  "/uploads/notes.txt",
				"updated_at": "2026-08-31T10:00:00Z",
				"voice":      "Joanna",
			}),
		},
	}

	tracker, updates := newTracked(t, server, fastInterval, 0)

	record := awaitUpdate(t, updates)

	assert.Equal(t, "abc", record.ID)
	assert.Equal(t, podcast.StatusCompleted, record.Status)
	assert.Equal(t, "S", record.Summary)
	assert.Equal(t, "http://x/a.mp3", record.AudioReference)
	assert.Equal(t, "notes.txt", record.FileName)
	assert.Equal(t, "notes", record.Title)
	assert.Equal(t, "2026-08-31", record.Date)
	assert.Equal(t, "Joanna", record.Voice)

	// Polling stops permanently after the terminal status.
	settled := server.requestCount()

	time.Sleep(5 * fastInterval)
	assert.Equal(t, settled, server.requestCount())
	assert.False(t, tracker.Tracking("abc"))

	// And the callback never fires again.
	select {
	case <-updates:
		t.Fatal("onUpdate fired more than once")
	default:
	}
}

func TestTracker_TransportFailuresAreTransient(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			serverErrorResponse(),
			serverErrorResponse(),
			jobStatusResponse(map[string]any{
				"job_id":  "abc",
				"status":  "completed",
				"summary": "S",
			}),
		},
	}

	_, updates := newTracked(t, server, fastInterval, 0)

	record := awaitUpdate(t, updates)
	assert.Equal(t, podcast.StatusCompleted, record.Status)
	assert.GreaterOrEqual(t, server.requestCount(), 3)
}

func TestTracker_JobReportedFailure(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{
				"job_id":     "abc",
				"status":     "failed",
				"updated_at": "2026-08-31T10:00:00Z",
				"voice":      "Joanna",
			}),
		},
	}

	_, updates := newTracked(t, server, fastInterval, 0)

	record := awaitUpdate(t, updates)
	assert.Equal(t, podcast.StatusFailed, record.Status)
	assert.Equal(t, "Failed to generate", record.Summary)
	assert.Equal(t, "2026-08-31", record.Date)
}

func TestTracker_SecondTrackForSameJobIsNoOp(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
		},
	}

	tracker, updates := newTracked(t, server, slowInterval, 0)

	// A second loop would issue its own immediate status check.
	tracker.Track("abc", func(record podcast.Record) {
		updates <- record
	})

	require.Eventually(t, func() bool {
		return server.requestCount() >= 1
	}, waitTimeout, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, server.requestCount())
	assert.True(t, tracker.Tracking("abc"))
}

func TestTracker_CancelHaltsWithoutCallback(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
		},
	}

	tracker, updates := newTracked(t, server, fastInterval, 0)

	require.Eventually(t, func() bool {
		return server.requestCount() >= 1
	}, waitTimeout, time.Millisecond)

	tracker.Cancel("abc")
	assert.False(t, tracker.Tracking("abc"))

	settled := server.requestCount()

	time.Sleep(5 * fastInterval)
	assert.LessOrEqual(t, server.requestCount(), settled+1)

	select {
	case <-updates:
		t.Fatal("onUpdate fired after Cancel")
	default:
	}
}

func TestTracker_CancelUnknownJobIsNoOp(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
		},
	}

	tracker, _ := newTracked(t, server, slowInterval, 0)

	tracker.Cancel("never-tracked")
	assert.True(t, tracker.Tracking("abc"))
}

func TestTracker_MaxAttemptsProducesSyntheticFailure(t *testing.T) {
	t.Parallel()

	server := &jobServer{
		responses: []func(w http.ResponseWriter){
			jobStatusResponse(map[string]any{"job_id": "abc", "status": "pending"}),
		},
	}

	_, updates := newTracked(t, server, fastInterval, 3)

	record := awaitUpdate(t, updates)
	assert.Equal(t, podcast.StatusFailed, record.Status)
	assert.Contains(t, record.Summary, "no result after 3 status checks")
	assert.Equal(t, 3, server.requestCount())
}
