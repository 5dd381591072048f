// Package video holds the VideoDescriptor data model, feed ordering, and the
// URL-scoring heuristic shared by the feed pipeline and the controller pool.
package video

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Dimensions is the optional width/height pair carried by a descriptor.
type Dimensions struct {
	Width  int
	Height int
}

// Descriptor is the immutable, validated view of a received event used by
// the feed pipeline. Once accepted into a feed list it is never mutated.
type Descriptor struct {
	ID               string // 64-hex event id
	AuthorKey        string
	CreatedAtSeconds int64
	ContentText      string
	Tags             [][]string // ordered, each a non-empty list of strings

	VideoURLs     []string // priority-ranked, best first
	ThumbnailURL  string
	Hashtags      []string
	DurationSecs  int64
	Dims          *Dimensions
	Blurhash      string

	// StableIdentifier is the replaceable event's `d` tag value, present only
	// for descriptors synthesized from kind 34236/34235 events.
	StableIdentifier string
}

// Hashtags are normalized to lowercase NFC form so "#Bitcoin" and "#bitcoin"
// collide the way the wire protocol's `#t` tag selector expects.
func NormalizeHashtag(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	return strings.ToLower(norm.NFC.String(raw))
}

// Less implements the feed ordering invariant (V4): strictly descending by
// (createdAt, id).
func Less(a, b *Descriptor) bool {
	if a.CreatedAtSeconds != b.CreatedAtSeconds {
		return a.CreatedAtSeconds > b.CreatedAtSeconds
	}
	return a.ID > b.ID
}

// SortDescriptors sorts in place per the feed ordering invariant.
func SortDescriptors(list []*Descriptor) {
	sort.SliceStable(list, func(i, j int) bool { return Less(list[i], list[j]) })
}

// InsertSorted returns the index at which d should be inserted into an
// already-sorted list to preserve the ordering invariant, using binary
// search so admission stays O(log n) comparisons.
func InsertSorted(list []*Descriptor, d *Descriptor) int {
	return sort.Search(len(list), func(i int) bool {
		return !Less(list[i], d)
	})
}
