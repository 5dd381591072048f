package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/transport"
	"github.com/untreu2/divinefeed/internal/video"
)

type fakeSigner struct {
	pubkey string
	seq    atomic.Int64
}

func (s *fakeSigner) PubKey() string { return s.pubkey }

func (s *fakeSigner) Sign(ev *nostrwire.Event) (*nostrwire.Event, error) {
	out := *ev
	out.ID = "signed-" + strconv.FormatInt(s.seq.Add(1), 10)
	out.Sig = "fake-sig"
	return &out, nil
}

type fakeVideoSink struct {
	added []*video.Descriptor
}

func (s *fakeVideoSink) AddDescriptor(d *video.Descriptor) { s.added = append(s.added, d) }

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipeline_PublishSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(UploadResult{URL: "https://cdn.example.com/abc.mp4", SHA256: "abc"})
	}))
	defer server.Close()

	path := writeTempFile(t, "fake video bytes")
	uploader := NewUploader(server.Client(), server.URL)
	fakeT := transport.NewFake()
	sink := &fakeVideoSink{}

	p := New(Options{
		Uploader:   uploader,
		Signer:     &fakeSigner{pubkey: "pk1"},
		Transport:  fakeT,
		Sink:       sink,
		ClientName: "testclient",
	})

	up := &PendingUpload{LocalID: "local1", LocalPath: path, Status: StatusPending}
	id, err := p.Publish(context.Background(), up, Metadata{Title: "hello", Summary: "a video"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, StatusPublished, up.Status)
	require.Len(t, sink.added, 1)
	require.Len(t, fakeT.Published, 1)
}

func TestPipeline_409IsIdempotentSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	path := writeTempFile(t, "duplicate content")
	uploader := NewUploader(server.Client(), server.URL)
	p := New(Options{
		Uploader:  uploader,
		Signer:    &fakeSigner{pubkey: "pk1"},
		Transport: transport.NewFake(),
		Sink:      &fakeVideoSink{},
	})

	up := &PendingUpload{LocalID: "local1", LocalPath: path}
	id, err := p.Publish(context.Background(), up, Metadata{Title: "t", Summary: "s"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Contains(t, up.ResultURLs.URL, up.VideoHash)
}

func TestPipeline_PublishUsesContentHashAsStableIdentifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	path := writeTempFile(t, "duplicate content")
	uploader := NewUploader(server.Client(), server.URL)
	fakeT := transport.NewFake()
	p := New(Options{
		Uploader:  uploader,
		Signer:    &fakeSigner{pubkey: "pk1"},
		Transport: fakeT,
		Sink:      &fakeVideoSink{},
	})

	up := &PendingUpload{LocalID: "local1", LocalPath: path}
	_, err := p.Publish(context.Background(), up, Metadata{Title: "t", Summary: "s"})
	require.NoError(t, err)
	require.NotEmpty(t, up.VideoHash)

	require.Len(t, fakeT.Published, 1)
	require.Equal(t, []string{"d", up.VideoHash}, fakeT.Published[0].Tags[0],
		"an idempotent (409) upload and a fresh upload of the same bytes must publish the same d, so one replaces the other")
}

func TestPipeline_401IsNotRetryable(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	path := writeTempFile(t, "content")
	uploader := NewUploader(server.Client(), server.URL)
	p := New(Options{
		Uploader:  uploader,
		Signer:    &fakeSigner{pubkey: "pk1"},
		Transport: transport.NewFake(),
		Sink:      &fakeVideoSink{},
	})

	up := &PendingUpload{LocalID: "local1", LocalPath: path}
	_, err := p.Publish(context.Background(), up, Metadata{})
	require.Error(t, err)
	require.Equal(t, StatusFailed, up.Status)
	require.False(t, up.Retryable)
	require.Equal(t, 1, calls, "401 must not be retried")
}

func TestPipeline_BroadcastNoAckFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(UploadResult{URL: "https://cdn.example.com/x.mp4"})
	}))
	defer server.Close()

	path := writeTempFile(t, "content")
	uploader := NewUploader(server.Client(), server.URL)
	fakeT := transport.NewFake()
	fakeT.PublishResult = []transport.EndpointAck{{Endpoint: "relay1", OK: false, Reason: "rejected"}}

	p := New(Options{
		Uploader:  uploader,
		Signer:    &fakeSigner{pubkey: "pk1"},
		Transport: fakeT,
		Sink:      &fakeVideoSink{},
	})

	up := &PendingUpload{LocalID: "local1", LocalPath: path}
	_, err := p.Publish(context.Background(), up, Metadata{})
	require.ErrorIs(t, err, ErrBroadcastFailed)
	require.Equal(t, StatusFailed, up.Status)
	require.True(t, up.Retryable)
}

func TestAssembleEvent_TagOrder(t *testing.T) {
	ev := AssembleEvent("pk1", 1000, AssembleMetadata{
		StableIdentifier: "stable1",
		BestURL:          "https://cdn.example.com/best.mp4",
		FallbackURLs:     []string{"https://cdn.example.com/fallback.mp4"},
		ThumbnailURL:     "https://cdn.example.com/thumb.jpg",
		Dims:             &video.Dimensions{Width: 1080, Height: 1920},
		SizeBytes:        2048,
		HashHex:          "deadbeef",
		Title:            "My Video",
		Summary:          "A summary",
		Hashtags:         []string{"Nostr", "video"},
		ClientName:       "divinefeed",
		PublishedAt:      1000,
		DurationSec:      30,
	})

	require.Equal(t, []string{"d", "stable1"}, ev.Tags[0])
	require.Equal(t, "imeta", ev.Tags[1][0])
	require.Equal(t, "url https://cdn.example.com/best.mp4", ev.Tags[1][1])
	require.Contains(t, ev.Tags[1], "url https://cdn.example.com/fallback.mp4")
	require.Contains(t, ev.Tags[1], "m video/mp4")
	require.Contains(t, ev.Tags[1], "x deadbeef")
	require.Equal(t, []string{"title", "My Video"}, ev.Tags[2])
	require.Equal(t, []string{"summary", "A summary"}, ev.Tags[3])
	require.Equal(t, []string{"t", "nostr"}, ev.Tags[4])
	require.Equal(t, []string{"t", "video"}, ev.Tags[5])
	require.Equal(t, []string{"client", "divinefeed"}, ev.Tags[6])
}
