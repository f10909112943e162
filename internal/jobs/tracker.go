// Package jobs tracks asynchronous podcast-generation jobs to completion.
//
// A Tracker owns one polling loop per accepted job id: an immediate status
// check, then a fixed cadence until the backend reports a terminal state.
// Transport faults during polling are transient and never terminate a loop
// on their own.
package jobs

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/notecast/notecast/internal/api"
	"github.com/notecast/notecast/internal/fileutil"
	"github.com/notecast/notecast/internal/podcast"
)

// DefaultPollInterval is the cadence between job status checks.
const DefaultPollInterval = 3 * time.Second

// Fallback values for records materialized from sparse job payloads.
const (
	fallbackTitle         = "Podcast"
	failedTitle           = "Failed"
	failedSummary         = "Failed to generate"
	isoDateLayout         = "2006-01-02"
	isoDatePrefixLength   = 10
	timedOutSummaryFormat = "Failed to generate: no result after %d status checks"
)

// Log formats.
const (
	logFmtPollFailed   = "Status check for job %s failed, will retry: %v"
	logFmtJobTerminal  = "Job %s reached terminal status %q"
	logFmtJobTimedOut  = "Job %s exceeded %d status checks, marking failed"
	logFmtJobCancelled = "Stopped tracking job %s"
)

// UpdateFunc receives the terminal record for a tracked job. It is invoked
// exactly once per job id, and never after the job's tracking was cancelled.
type UpdateFunc func(record podcast.Record)

// Tracker polls the backend for job completion. The zero value is not usable;
// construct with NewTracker. All methods are safe for concurrent use.
type Tracker struct {
	client      *api.Client
	interval    time.Duration
	maxAttempts int
	log         *logger.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a tracker that polls through the given client at the
// given cadence. A non-positive interval falls back to the default. A
// positive maxAttempts bounds the number of status checks per job, after
// which the job is reported failed; zero means poll until the backend
// answers, matching the original behavior.
func NewTracker(
	client *api.Client,
	interval time.Duration,
	maxAttempts int,
	log *logger.Logger,
) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Tracker{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
		active:      make(map[string]context.CancelFunc),
	}
}

// Track begins polling for the given job id. Starting tracking for an id
// that is already being tracked is a no-op: at most one loop runs per id.
// The callback fires once, with the terminal record, when the job completes
// or fails; intermediate pending polls do not trigger it.
func (t *Tracker) Track(jobID string, onUpdate UpdateFunc) {
	if jobID == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, tracking := t.active[jobID]
	if tracking {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.active[jobID] = cancel

	t.wg.Add(1)

	go t.poll(ctx, jobID, onUpdate)
}

// Tracking reports whether a polling loop is active for the given job id.
func (t *Tracker) Tracking(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, tracking := t.active[jobID]

	return tracking
}

// Cancel stops tracking the given job id without invoking its callback.
// Cancelling an untracked id is a no-op.
func (t *Tracker) Cancel(jobID string) {
	t.mu.Lock()
	cancel, tracking := t.active[jobID]

	if tracking {
		delete(t.active, jobID)
	}
	t.mu.Unlock()

	if tracking {
		cancel()
		t.log.Info(logFmtJobCancelled, jobID)
	}
}

// Close cancels all active polling loops and waits for them to exit. No
// callback fires after Close returns.
func (t *Tracker) Close() {
	t.mu.Lock()
	for jobID, cancel := range t.active {
		cancel()
		delete(t.active, jobID)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

// poll runs the status loop for one job: one immediate check, then one per
// tick until a terminal record is produced or tracking is cancelled.
func (t *Tracker) poll(ctx context.Context, jobID string, onUpdate UpdateFunc) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	attempts := 0

	for {
		attempts++

		record, terminal := t.check(ctx, jobID)
		if !terminal && t.maxAttempts > 0 && attempts >= t.maxAttempts {
			t.log.Warn(logFmtJobTimedOut, jobID, t.maxAttempts)

			record = timedOutRecord(jobID, t.maxAttempts)
			terminal = true
		}

		if terminal {
			t.finish(jobID, record, onUpdate)

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// check performs one status request. A transport failure is logged and
// reported as non-terminal so the loop keeps going.
func (t *Tracker) check(ctx context.Context, jobID string) (podcast.Record, bool) {
	job, err := t.client.JobStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() == nil {
			t.log.Warn(logFmtPollFailed, jobID, err)
		}

		return podcast.Record{}, false
	}

	switch job.Status {
	case api.JobStatusCompleted:
		return completedRecord(job), true
	case api.JobStatusFailed:
		return failedRecord(job), true
	default:
		return podcast.Record{}, false
	}
}

// finish is the single commit point for a terminal record. Removing the
// job's handle under the lock guarantees the callback fires at most once and
// never races a concurrent Cancel.
func (t *Tracker) finish(jobID string, record podcast.Record, onUpdate UpdateFunc) {
	t.mu.Lock()
	cancel, tracking := t.active[jobID]

	if tracking {
		delete(t.active, jobID)
	}
	t.mu.Unlock()

	if !tracking {
		return
	}

	cancel()
	t.log.Info(logFmtJobTerminal, jobID, record.Status)

	if onUpdate != nil {
		onUpdate(record)
	}
}

// completedRecord translates a completed job payload into a podcast record.
func completedRecord(job *api.Job) podcast.Record {
	fileName := baseFileName(job.FilePath, job.JobID)

	title := fileutil.TitleFromFileName(fileName)
	if job.FilePath == "" {
		title = fallbackTitle
	}

	return podcast.Record{
		ID:             job.JobID,
		FileName:       fileName,
		Title:          title,
		Status:         podcast.StatusCompleted,
		Summary:        job.Summary,
		AudioReference: podcast.AudioReference(job.AudioURL, job.AudioBase64, ""),
		Voice:          job.Voice,
		Date:           isoDate(job.UpdatedAt),
		Tags:           nil,
	}
}

// failedRecord translates a failed job payload into a podcast record.
func failedRecord(job *api.Job) podcast.Record {
	summary := failedSummary
	if job.Error != "" {
		summary = job.Error
	}

	return podcast.Record{
		ID:       job.JobID,
		FileName: baseFileName(job.FilePath, job.JobID),
		Title:    failedTitle,
		Status:   podcast.StatusFailed,
		Summary:  summary,
		Voice:    job.Voice,
		Date:     isoDate(job.UpdatedAt),
	}
}

// timedOutRecord synthesizes a failed record for a job that never reached a
// terminal status within the configured attempt budget.
func timedOutRecord(jobID string, attempts int) podcast.Record {
	return podcast.Record{
		ID:       jobID,
		FileName: jobID,
		Title:    failedTitle,
		Status:   podcast.StatusFailed,
		Summary:  fmt.Sprintf(timedOutSummaryFormat, attempts),
		Date:     time.Now().Format(isoDateLayout),
	}
}

// baseFileName extracts a display file name from a server-side path,
// falling back to the job id when the backend reported none.
func baseFileName(filePath, jobID string) string {
	if filePath == "" {
		return jobID
	}

	// Server paths use forward slashes regardless of the client platform.
	return path.Base(filePath)
}

// isoDate keeps the date portion of a backend timestamp, or stamps today
// when the backend reported none.
func isoDate(updatedAt string) string {
	if len(updatedAt) >= isoDatePrefixLength {
		return updatedAt[:isoDatePrefixLength]
	}

	return time.Now().Format(isoDateLayout)
}
