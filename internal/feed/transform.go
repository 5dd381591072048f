package feed

import (
	"strings"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/video"
)

// DescriptorFromEvent exports transform for callers outside this package
// that need the same event→Descriptor synthesis — notably the Publish
// Pipeline's local reconciliation step (spec.md §4.5 step 7), which
// synthesizes a Descriptor from its own freshly-broadcast event as if it
// had arrived from the network.
func DescriptorFromEvent(ev *nostrwire.Event) *video.Descriptor {
	return transform(ev)
}

// transform converts a raw kind-34236/34235 event into a Descriptor. It
// does not enforce admission rules — callers apply those separately so the
// rules stay independently testable (spec.md §4.2).
func transform(ev *nostrwire.Event) *video.Descriptor {
	d := &video.Descriptor{
		ID:               ev.ID,
		AuthorKey:        ev.PubKey,
		CreatedAtSeconds: ev.CreatedAt,
		ContentText:      ev.Content,
		Tags:             ev.Tags,
		StableIdentifier: ev.DTag(),
	}

	var urls []string
	for _, imeta := range ev.AllTagValues("imeta") {
		urls = append(urls, extractImetaURLs(imeta)...)
	}
	for _, u := range ev.AllTagValues("url") {
		if len(u) > 0 {
			urls = append(urls, u[0])
		}
	}
	d.VideoURLs = video.RankVideoURLs(urls)

	if thumbs := ev.TagValues("image"); len(thumbs) > 0 {
		d.ThumbnailURL = thumbs[0]
	}
	for _, t := range ev.AllTagValues("t") {
		if len(t) > 0 {
			d.Hashtags = append(d.Hashtags, video.NormalizeHashtag(t[0]))
		}
	}
	if dur := ev.TagValues("duration"); len(dur) > 0 {
		d.DurationSecs = parseInt64(dur[0])
	}
	if dim := ev.TagValues("dim"); len(dim) > 0 {
		if w, h, ok := parseDim(dim[0]); ok {
			d.Dims = &video.Dimensions{Width: w, Height: h}
		}
	}
	if bh := ev.TagValues("blurhash"); len(bh) > 0 {
		d.Blurhash = bh[0]
	}

	return d
}

// extractImetaURLs pulls every `url` entry out of a composite `imeta` tag,
// whose fields are themselves "key value" pairs (spec.md §4.5 step 5).
func extractImetaURLs(imeta []string) []string {
	var urls []string
	for _, field := range imeta {
		if v, ok := strings.CutPrefix(field, "url "); ok {
			urls = append(urls, v)
		}
	}
	return urls
}

func parseInt64(s string) int64 {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

func parseDim(s string) (int, int, bool) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w := int(parseInt64(parts[0]))
	h := int(parseInt64(parts[1]))
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	return w, h, true
}
