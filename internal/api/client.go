// Package api provides the HTTP client for the note-to-podcast backend.
//
// The backend owns summarization, speech rendering, and the job queue; this
// package implements only the client side of its HTTP contract: submitting
// generation work, polling job status, listing voices, and fetching voice
// previews.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/notecast/notecast/internal/core"
)

// API endpoints and paths.
const (
	apiHealth          = "/api/health"
	apiGeneratePodcast = "/api/generate-podcast"
	apiJobStatus       = "/api/tts-job/"
	apiVoices          = "/api/tts/voices"
	apiPreview         = "/api/tts/preview"
)

// HTTP headers.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// Multipart form field names for generation submissions.
const (
	formFieldFile  = "file"
	formFieldVoice = "voice"
)

// PreviewCharLimit is the maximum preview text length the backend accepts.
const PreviewCharLimit = 2000

// Job states reported by the status endpoint.
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Static errors.
var (
	ErrTextEmpty          = errors.New("preview text cannot be empty")
	ErrTextTooLong        = errors.New("preview text exceeds the allowed length")
	ErrJobIDEmpty         = errors.New("job id cannot be empty")
	ErrGenerationRejected = errors.New("generation request rejected")
	ErrMissingJobID       = errors.New("accepted response carried no job id")
)

// Error formats.
const (
	errFmtRequestFailed  = "request to backend at %s failed: %w"
	errFmtNonOKStatus    = "backend returned non-OK status: %s, body: %s"
	errFmtDecodeResponse = "failed to decode backend response: %w"
	errFmtTokenLookup    = "failed to obtain auth token: %w"
)

// Client is an HTTP client for the generation backend. It encapsulates the
// base URL, request timeout, and optional bearer authentication.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     core.TokenProvider
}

// GenerationResult is the inline payload of a synchronous generation
// response, and doubles as the decoded body of a terminal job status.
type GenerationResult struct {
	Success          bool   `json:"success"`
	Summary          string `json:"summary"`
	AudioBase64      string `json:"audio_base64"`
	AudioURL         string `json:"audio_url"`
	AudioContentType string `json:"audio_content_type"`
	Error            string `json:"error"`
}

// SubmissionResult describes the backend's answer to a generation request.
// Accepted submissions carry a job id and must be tracked; synchronous
// responses carry the completed result inline.
type SubmissionResult struct {
	Accepted bool
	JobID    string
	Inline   *GenerationResult
}

// Job is the backend's record of one generation request.
type Job struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	AudioBase64 string `json:"audio_base64"`
	AudioURL    string `json:"audio_url"`
	FilePath    string `json:"file_path"`
	UpdatedAt   string `json:"updated_at"`
	Voice       string `json:"voice"`
	Error       string `json:"error"`
}

// Voice is the backend's descriptor for one synthesizable voice. Field names
// follow the wire contract.
type Voice struct {
	ID           string `json:"Id"`
	Name         string `json:"Name"`
	LanguageCode string `json:"LanguageCode"`
	Gender       string `json:"Gender"`
}

type acceptedResponse struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	Job Job `json:"job"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

type previewRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

// NewClient creates and configures an HTTP client for the backend. The
// baseURL should include the protocol and port (e.g., "http://localhost:5000").
// The timeout applies to all requests made by this client. The token provider
// may be nil, in which case requests go out unauthenticated.
func NewClient(baseURL string, timeout time.Duration, tokens core.TokenProvider) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// Health verifies that the backend is running and reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, apiHealth, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(errFmtRequestFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.nonOKError(resp)
	}

	return nil
}

// SubmitGeneration uploads a source document and voice selection to the
// generation endpoint as a multipart form.
//
// Two success shapes exist: 202 Accepted with a job id (the caller must poll
// for the result), and 200 OK with the summary and audio inline. A 200 body
// with success=false, and any other status, is a terminal failure carrying
// the server's error message when one was provided.
func (c *Client) SubmitGeneration(
	ctx context.Context,
	fileName string,
	file io.Reader,
	voiceID string,
) (*SubmissionResult, error) {
	body, contentType, err := buildSubmissionForm(fileName, file, voiceID)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, apiGeneratePodcast, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set(headerContentType, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return decodeAccepted(resp.Body)
	case http.StatusOK:
		return decodeInline(resp.Body)
	default:
		return nil, c.nonOKError(resp)
	}
}

// JobStatus fetches the backend's current view of one generation job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, ErrJobIDEmpty
	}

	req, err := c.newRequest(ctx, http.MethodGet, apiJobStatus+jobID, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.nonOKError(resp)
	}

	var decoded jobResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeResponse, err)
	}

	return &decoded.Job, nil
}

// ListVoices fetches the backend's voice catalog. An empty list is a valid
// response; callers tolerate it and may re-query.
func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := c.newRequest(ctx, http.MethodGet, apiVoices, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.nonOKError(resp)
	}

	var decoded voicesResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeResponse, err)
	}

	return decoded.Voices, nil
}

// PreviewVoice renders a short text with the given voice and returns the raw
// audio bytes. Text beyond the backend's preview cap is rejected here before
// any request goes out.
func (c *Client) PreviewVoice(ctx context.Context, text, voiceID string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	if utf8.RuneCountInString(text) > PreviewCharLimit {
		return nil, fmt.Errorf("%w: limit is %d characters", ErrTextTooLong, PreviewCharLimit)
	}

	payload, err := json.Marshal(previewRequest{Text: text, VoiceID: voiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preview request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, apiPreview, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf(errFmtRequestFailed, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.nonOKError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read preview audio: %w", err)
	}

	return audio, nil
}

// newRequest builds a request against the backend, attaching a bearer token
// when a provider is configured.
func (c *Client) newRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.tokens != nil {
		token, tokenErr := c.tokens.Token(ctx)
		if tokenErr != nil {
			return nil, fmt.Errorf(errFmtTokenLookup, tokenErr)
		}

		if token != "" {
			req.Header.Set(headerAuthorization, bearerPrefix+token)
		}
	}

	return req, nil
}

// nonOKError converts a non-success response into an error, preferring the
// structured error message when the body decodes as JSON and falling back to
// the raw body so diagnostics are never lost.
func (c *Client) nonOKError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var decoded GenerationResult

	decodeErr := json.Unmarshal(raw, &decoded)
	if decodeErr == nil && decoded.Error != "" {
		return fmt.Errorf("%w: %s (%s)", ErrGenerationRejected, decoded.Error, resp.Status)
	}

	return fmt.Errorf(errFmtNonOKStatus, resp.Status, string(raw))
}

func buildSubmissionForm(
	fileName string,
	file io.Reader,
	voiceID string,
) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(formFieldFile, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to copy file into form: %w", err)
	}

	err = writer.WriteField(formFieldVoice, voiceID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write voice field: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

func decodeAccepted(body io.Reader) (*SubmissionResult, error) {
	var decoded acceptedResponse

	err := json.NewDecoder(body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeResponse, err)
	}

	if decoded.JobID == "" {
		return nil, ErrMissingJobID
	}

	return &SubmissionResult{Accepted: true, JobID: decoded.JobID, Inline: nil}, nil
}

func decodeInline(body io.Reader) (*SubmissionResult, error) {
	var decoded GenerationResult

	err := json.NewDecoder(body).Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf(errFmtDecodeResponse, err)
	}

	if !decoded.Success {
		message := decoded.Error
		if message == "" {
			message = "generation failed"
		}

		return nil, fmt.Errorf("%w: %s", ErrGenerationRejected, message)
	}

	return &SubmissionResult{Accepted: false, JobID: "", Inline: &decoded}, nil
}
