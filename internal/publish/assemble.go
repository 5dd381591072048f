package publish

import (
	"strconv"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/video"
)

// AssembleMetadata carries every input needed to build the addressable
// short-video event (spec.md §4.5 step 5).
type AssembleMetadata struct {
	StableIdentifier string
	BestURL          string
	FallbackURLs     []string
	ThumbnailURL     string
	Dims             *video.Dimensions
	SizeBytes        int64
	HashHex          string
	Blurhash         string

	Title       string
	Summary     string
	Hashtags    []string
	ClientName  string
	PublishedAt int64
	DurationSec int64
	Alt         string
	ExpirationUnix int64

	// Attestations carries arbitrary extra verification tags (best-effort
	// perceptual-hash placeholder, etc.) appended verbatim after the
	// standard fields.
	Attestations [][]string
}

// AssembleEvent builds the unsigned kind-34236 addressable short-video
// event, with tags in the exact order spec.md §4.5 step 5 specifies.
func AssembleEvent(pubkey string, createdAt int64, m AssembleMetadata) *nostrwire.Event {
	var tags [][]string

	tags = append(tags, []string{"d", m.StableIdentifier})

	imeta := []string{"imeta", "url " + m.BestURL}
	for _, fb := range m.FallbackURLs {
		imeta = append(imeta, "url "+fb)
	}
	imeta = append(imeta, "m video/mp4")
	if m.ThumbnailURL != "" {
		imeta = append(imeta, "image "+m.ThumbnailURL)
	}
	if m.Dims != nil {
		imeta = append(imeta, "dim "+strconv.Itoa(m.Dims.Width)+"x"+strconv.Itoa(m.Dims.Height))
	}
	if m.SizeBytes > 0 {
		imeta = append(imeta, "size "+strconv.FormatInt(m.SizeBytes, 10))
	}
	if m.HashHex != "" {
		imeta = append(imeta, "x "+m.HashHex)
	}
	if m.Blurhash != "" {
		imeta = append(imeta, "blurhash "+m.Blurhash)
	}
	tags = append(tags, imeta)

	if m.Title != "" {
		tags = append(tags, []string{"title", m.Title})
	}
	if m.Summary != "" {
		tags = append(tags, []string{"summary", m.Summary})
	}
	for _, h := range m.Hashtags {
		tags = append(tags, []string{"t", video.NormalizeHashtag(h)})
	}
	if m.ClientName != "" {
		tags = append(tags, []string{"client", m.ClientName})
	}
	tags = append(tags, []string{"published_at", strconv.FormatInt(m.PublishedAt, 10)})
	if m.DurationSec > 0 {
		tags = append(tags, []string{"duration", strconv.FormatInt(m.DurationSec, 10)})
	}
	if m.Alt != "" {
		tags = append(tags, []string{"alt", m.Alt})
	}
	if m.ExpirationUnix > 0 {
		tags = append(tags, []string{"expiration", strconv.FormatInt(m.ExpirationUnix, 10)})
	}
	tags = append(tags, m.Attestations...)

	return &nostrwire.Event{
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      nostrwire.KindShortVideo,
		Content:   m.Summary,
		Tags:      tags,
	}
}
