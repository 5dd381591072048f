package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/resilience"
)

// UploadResult is the storage endpoint's response shape (spec.md §6).
type UploadResult struct {
	URL           string `json:"url"`
	FallbackURL   string `json:"fallbackUrl,omitempty"`
	StreamingMP4  string `json:"streamingMp4,omitempty"`
	StreamingHLS  string `json:"streamingHls,omitempty"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	SHA256        string `json:"sha256"`
	Size          int64  `json:"size"`
	ContentType   string `json:"type"`
}

// Uploader performs the streamed PUT upload described in spec.md §4.5 step
// 3 / §6, with 409-as-success and 5xx exponential-backoff retry.
type Uploader struct {
	client   *http.Client
	endpoint string
	logger   zerolog.Logger
}

// NewUploader constructs an Uploader against a storage endpoint. client may
// be nil, in which case a default *http.Client is used — per-attempt
// timeouts are enforced via context, mirroring the teacher's preflight
// provider rather than setting client.Timeout.
func NewUploader(client *http.Client, endpoint string) *Uploader {
	if client == nil {
		client = &http.Client{}
	}
	return &Uploader{client: client, endpoint: endpoint, logger: log.WithComponent("publish")}
}

// Upload streams body as contentType with the given Authorization header,
// retrying 5xx responses up to 3 attempts total with the transient-
// transport backoff schedule (spec.md §7).
func (u *Uploader) Upload(ctx context.Context, body io.Reader, contentType, authHeader string) (*UploadResult, error) {
	backoff := resilience.NewBackoff()
	const maxAttempts = 3

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if seeker, ok := body.(io.Seeker); ok && attempt > 1 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
		result, retryable, err := u.attempt(ctx, body, contentType, authHeader)
		if err == nil {
			metrics.IncPublishStage("upload", "success")
			return result, nil
		}
		if !retryable {
			metrics.IncPublishStage("upload", "failed")
			return nil, err
		}
		if attempt == maxAttempts {
			metrics.IncPublishStage("upload", "failed")
			return nil, fmt.Errorf("%w: %v", ErrUploadExhausted, err)
		}
		u.logger.Warn().Err(err).Int("attempt", attempt).Msg("upload attempt failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff.Next()):
		}
	}
	return nil, ErrUploadExhausted
}

func (u *Uploader) attempt(ctx context.Context, body io.Reader, contentType, authHeader string) (result *UploadResult, retryable bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, 65*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, u.endpoint, body)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("publish: upload request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out UploadResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("publish: decode upload response: %w", err)
		}
		return &out, false, nil

	case resp.StatusCode == http.StatusConflict:
		// Idempotent success: the server already has this content-addressed
		// blob. The canonical URL is derived from the hash client-side
		// (spec.md §6), but we still try to decode a body in case the server
		// returns one anyway.
		var out UploadResult
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return &out, false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, ErrAuthRequired

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("publish: upload: server error %d", resp.StatusCode)

	default:
		return nil, false, fmt.Errorf("%w: status %d", ErrMalformedUpload, resp.StatusCode)
	}
}

// CanonicalURL derives the content-addressed URL for a hash when the server
// responds 409 without a body (spec.md §6: `{server}/{sha256}.{ext}`).
func CanonicalURL(endpoint, hashHex, ext string) string {
	return endpoint + "/" + hashHex + "." + ext
}
