package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/untreu2/divinefeed/internal/feed"
	"github.com/untreu2/divinefeed/internal/log"
	"github.com/untreu2/divinefeed/internal/metrics"
	"github.com/untreu2/divinefeed/internal/transport"
	"github.com/untreu2/divinefeed/internal/video"
)

// VideoSink accepts the locally-synthesized descriptor on successful
// publish (spec.md §4.5 step 7).
type VideoSink interface {
	AddDescriptor(d *video.Descriptor)
}

// Pipeline implements the Publish Pipeline (spec.md §4.5).
type Pipeline struct {
	uploader   *Uploader
	thumbUploader *Uploader
	signer     Signer
	t          transport.EventTransport
	sink       VideoSink
	clientName string
	logger     zerolog.Logger
	clock      func() time.Time
}

// Options configures a new Pipeline.
type Options struct {
	Uploader        *Uploader
	ThumbnailUploader *Uploader
	Signer          Signer
	Transport       transport.EventTransport
	Sink            VideoSink
	ClientName      string
}

// New constructs a Pipeline.
func New(opts Options) *Pipeline {
	thumb := opts.ThumbnailUploader
	if thumb == nil {
		thumb = opts.Uploader
	}
	return &Pipeline{
		uploader:      opts.Uploader,
		thumbUploader: thumb,
		signer:        opts.Signer,
		t:             opts.Transport,
		sink:          opts.Sink,
		clientName:    opts.ClientName,
		logger:        log.WithComponent("publish"),
		clock:         time.Now,
	}
}

// Metadata is the author-supplied descriptive metadata for a publish call,
// independent of what gets computed during the pipeline (hash, urls).
type Metadata struct {
	Title    string
	Summary  string
	Hashtags []string
	Alt      string
	Duration int64
	Dims     *video.Dimensions
}

// Publish runs the full §4.5 pipeline for one PendingUpload and returns the
// published event id on success.
func (p *Pipeline) Publish(ctx context.Context, up *PendingUpload, meta Metadata) (string, error) {
	up.Status = StatusUploading

	videoResult, hashHex, size, err := p.uploadVideo(ctx, up.LocalPath)
	if err != nil {
		up.Status = StatusFailed
		up.FailureReason = err.Error()
		up.Retryable = isRetryable(err)
		metrics.IncPublishStage("video_upload", "failed")
		return "", &Error{Stage: "upload", Retryable: up.Retryable, Err: err}
	}
	up.VideoHash = hashHex
	up.ResultURLs = videoResult
	up.Status = StatusUploaded
	metrics.IncPublishStage("video_upload", "success")

	if up.ThumbnailPath != "" {
		thumbResult, err := p.uploadThumbnail(ctx, up.ThumbnailPath)
		if err != nil {
			// Best-effort per spec.md §4.5 step 4: absence of a thumbnail is
			// acceptable, so a thumbnail failure does not fail the publish.
			p.logger.Warn().Err(err).Str("local_id", up.LocalID).Msg("thumbnail upload failed, continuing without it")
		} else {
			up.ThumbnailResult = thumbResult
		}
	}

	up.Status = StatusPublishing

	best := videoResult.URL
	var fallbacks []string
	if videoResult.FallbackURL != "" {
		fallbacks = append(fallbacks, videoResult.FallbackURL)
	}
	if videoResult.StreamingHLS != "" {
		fallbacks = append(fallbacks, videoResult.StreamingHLS)
	}

	thumbURL := ""
	if up.ThumbnailResult != nil {
		thumbURL = up.ThumbnailResult.URL
	}

	now := p.clock().Unix()
	ev := AssembleEvent(p.signer.PubKey(), now, AssembleMetadata{
		// Videos are content-addressed (the upload endpoint dedupes and
		// serves by sha256, spec.md §6), so the addressable event's d tag is
		// the hash rather than up.LocalID: two uploads of the same bytes —
		// whether the second gets a fresh 201 or a deduping 409 — must
		// resolve to the same {author, kind, d} and so replace one another
		// (spec.md §8 scenario 5: "a subsequent publish uses d = H").
		StableIdentifier: hashHex,
		BestURL:          best,
		FallbackURLs:     fallbacks,
		ThumbnailURL:     thumbURL,
		Dims:             meta.Dims,
		SizeBytes:        size,
		HashHex:          hashHex,
		Title:            meta.Title,
		Summary:          meta.Summary,
		Hashtags:         meta.Hashtags,
		ClientName:       p.clientName,
		PublishedAt:      now,
		DurationSec:      meta.Duration,
		Alt:              meta.Alt,
	})

	signed, err := p.signer.Sign(ev)
	if err != nil {
		up.Status = StatusFailed
		up.FailureReason = err.Error()
		up.Retryable = false
		return "", &Error{Stage: "sign", Retryable: false, Err: err}
	}

	acks, err := p.t.Publish(ctx, signed)
	if err != nil {
		up.Status = StatusFailed
		up.FailureReason = err.Error()
		up.Retryable = true
		metrics.IncPublishStage("broadcast", "error")
		return "", &Error{Stage: "broadcast", Retryable: true, Err: err}
	}
	if !atLeastOneAck(acks) {
		up.Status = StatusFailed
		up.FailureReason = ErrBroadcastFailed.Error()
		up.Retryable = true
		metrics.IncPublishStage("broadcast", "no_ack")
		return "", &Error{Stage: "broadcast", Retryable: true, Err: ErrBroadcastFailed}
	}
	metrics.IncPublishStage("broadcast", "success")

	// Local reconciliation (spec.md §4.5 step 7): synthesize a Descriptor
	// from the just-broadcast event and admit it as if received from the
	// network.
	p.sink.AddDescriptor(feed.DescriptorFromEvent(signed))

	up.Status = StatusPublished
	up.PublishedEventID = signed.ID
	return signed.ID, nil
}

func atLeastOneAck(acks []transport.EndpointAck) bool {
	for _, a := range acks {
		if a.OK {
			return true
		}
	}
	return false
}

func (p *Pipeline) uploadVideo(ctx context.Context, path string) (*UploadResult, string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", 0, err
	}
	defer f.Close()

	hashHex, size, err := HashFile(f)
	if err != nil {
		return nil, "", 0, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, "", 0, err
	}

	authHeader, err := p.buildAuthHeader(size, hashHex)
	if err != nil {
		return nil, "", 0, err
	}

	result, err := p.uploader.Upload(ctx, f, "video/mp4", authHeader)
	if err != nil {
		return nil, "", 0, err
	}
	if result.URL == "" {
		result.URL = CanonicalURL(p.uploader.endpoint, hashHex, "mp4")
	}
	return result, hashHex, size, nil
}

func (p *Pipeline) uploadThumbnail(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hashHex, size, err := HashFile(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	authHeader, err := p.buildAuthHeader(size, hashHex)
	if err != nil {
		return nil, err
	}

	// The server is known to misreport thumbnail content type as .mp4;
	// fix the extension client-side before deriving a canonical URL
	// (spec.md §4.5 step 4).
	ext := fixThumbnailExtension(filepath.Ext(path))
	result, err := p.thumbUploader.Upload(ctx, f, "image/"+strings.TrimPrefix(ext, "."), authHeader)
	if err != nil {
		return nil, err
	}
	if result.URL == "" {
		result.URL = CanonicalURL(p.thumbUploader.endpoint, hashHex, ext[1:])
	}
	return result, nil
}

func fixThumbnailExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "", ".mp4":
		return ".jpg"
	default:
		return strings.ToLower(ext)
	}
}

func (p *Pipeline) buildAuthHeader(size int64, hashHex string) (string, error) {
	now := p.clock().Unix()
	authEvent := BuildAuthorizationEvent(p.signer.PubKey(), now, now+300, size, hashHex)
	signedAuth, err := p.signer.Sign(authEvent)
	if err != nil {
		return "", fmt.Errorf("publish: sign authorization: %w", err)
	}
	return EncodeAuthorizationHeader(signedAuth)
}

// isRetryable classifies an upload failure per the error taxonomy in
// spec.md §7: auth and malformed-input failures are terminal, everything
// else (exhausted transient-transport retries, local I/O errors) is
// considered retryable by the caller's bounded upload-retry policy.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return false
	case errors.Is(err, ErrMalformedUpload):
		return false
	default:
		return true
	}
}
