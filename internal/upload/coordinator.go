// Package upload coordinates podcast generation: it validates a selected
// source document, submits it to the backend, and reconciles the resulting
// records into the library collection.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/book-expert/logger"

	"github.com/notecast/notecast/internal/api"
	"github.com/notecast/notecast/internal/core"
	"github.com/notecast/notecast/internal/fileutil"
	"github.com/notecast/notecast/internal/jobs"
	"github.com/notecast/notecast/internal/podcast"
)

// Static errors.
var (
	ErrUnsupportedFileType = errors.New("unsupported file format, upload a PDF or TXT file")
	ErrGenerationInFlight  = errors.New("a generation is already in flight")
	ErrFileTooLarge        = errors.New("file exceeds the upload size limit")
)

// Placeholder summary shown while a job is pending.
const pendingSummary = "Processing..."

const isoDateLayout = "2006-01-02"

// persistTimeout bounds write-through saves so a slow store never stalls the
// generation flow.
const persistTimeout = 10 * time.Second

// Coordinator drives one generation flow at a time: validate, submit, insert
// a pending record, and hand terminal-state reconciliation to the tracker.
type Coordinator struct {
	client     *api.Client
	tracker    *jobs.Tracker
	collection *podcast.Collection
	store      core.RecordStore
	maxBytes   int64
	log        *logger.Logger
	generating atomic.Bool
}

// NewCoordinator creates a coordinator. The store may be nil, in which case
// records live only in the collection. A non-positive maxBytes disables the
// client-side size check.
func NewCoordinator(
	client *api.Client,
	tracker *jobs.Tracker,
	collection *podcast.Collection,
	store core.RecordStore,
	maxBytes int64,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		client:     client,
		tracker:    tracker,
		collection: collection,
		store:      store,
		maxBytes:   maxBytes,
		log:        log,
	}
}

// IsGenerating reports whether a submission is currently in flight. This is
// a UI-level throttle for disabling the generate action, not a correctness
// guarantee enforced by the tracker.
func (c *Coordinator) IsGenerating() bool {
	return c.generating.Load()
}

// Generate validates and submits a source document for podcast generation.
//
// Validation failures and submission failures return an error and leave the
// collection untouched. An accepted asynchronous job inserts a pending
// record immediately, before any poll completes, and the terminal record
// later replaces it via the tracker. A synchronous backend response inserts
// a completed record directly.
func (c *Coordinator) Generate(ctx context.Context, filePath, voiceID string) error {
	if !fileutil.IsAllowedSourceFile(filePath) {
		return ErrUnsupportedFileType
	}

	if !c.generating.CompareAndSwap(false, true) {
		return ErrGenerationInFlight
	}
	defer c.generating.Store(false)

	fileName := filepath.Base(filePath)

	file, err := c.openValidated(filePath)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			c.log.Warn("Failed to close source file '%s': %v", filePath, closeErr)
		}
	}()

	result, err := c.client.SubmitGeneration(ctx, fileName, file, voiceID)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	if result.Accepted {
		c.acceptJob(result.JobID, fileName, voiceID)

		return nil
	}

	c.acceptInline(result.Inline, fileName, voiceID)

	return nil
}

// Delete removes a record from the library permanently, halting any polling
// still associated with it and propagating the deletion to the store.
func (c *Coordinator) Delete(ctx context.Context, id string) {
	c.tracker.Cancel(id)
	c.collection.Remove(id)

	if c.store == nil {
		return
	}

	err := c.store.Delete(ctx, id)
	if err != nil {
		c.log.Warn("Failed to delete record %s from store: %v", id, err)
	}
}

func (c *Coordinator) openValidated(filePath string) (*os.File, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}

	if c.maxBytes > 0 && info.Size() > c.maxBytes {
		return nil, fmt.Errorf(
			"%w: %s is %s",
			ErrFileTooLarge,
			filePath,
			fileutil.FormatFileSize(info.Size()),
		)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}

	return file, nil
}

// acceptJob registers the pending record and starts tracking. The pending
// record goes in before any network round trip completes so the library
// reflects in-flight work immediately.
func (c *Coordinator) acceptJob(jobID, fileName, voiceID string) {
	pending := podcast.Record{
		ID:       jobID,
		FileName: fileName,
		Title:    fileutil.TitleFromFileName(fileName),
		Status:   podcast.StatusPending,
		Summary:  pendingSummary,
		Voice:    voiceID,
		Date:     time.Now().Format(isoDateLayout),
	}

	c.collection.Upsert(pending, false)
	c.tracker.Track(jobID, c.onTerminal)
}

// acceptInline inserts the completed record a synchronous response carried.
// The id is client-generated since the backend issued no job id.
func (c *Coordinator) acceptInline(inline *api.GenerationResult, fileName, voiceID string) {
	completed := podcast.Record{
		ID:       strconv.FormatInt(time.Now().UnixMilli(), 10),
		FileName: fileName,
		Title:    fileutil.TitleFromFileName(fileName),
		Status:   podcast.StatusCompleted,
		Summary:  inline.Summary,
		AudioReference: podcast.AudioReference(
			inline.AudioURL,
			inline.AudioBase64,
			inline.AudioContentType,
		),
		Voice: voiceID,
		Date:  time.Now().Format(isoDateLayout),
	}

	c.collection.Upsert(completed, false)
	c.persist(completed)
}

// onTerminal reconciles a terminal record from the tracker into the
// collection by merge-overwriting the pending record with the same id.
func (c *Coordinator) onTerminal(record podcast.Record) {
	c.collection.Upsert(record, true)
	c.persist(record)
}

func (c *Coordinator) persist(record podcast.Record) {
	if c.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := c.store.Save(ctx, record)
	if err != nil {
		c.log.Warn("Failed to persist record %s: %v", record.ID, err)
	}
}
