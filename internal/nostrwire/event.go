// Package nostrwire defines the event/filter/frame wire types described in
// spec.md §6. Cryptographic signing and id hashing are external
// collaborators (out of scope per spec.md §1); this package only models the
// shapes and the pure, dependency-free parts of validation (id format,
// canonical serialization for hashing inputs).
package nostrwire

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Known kinds referenced by spec.md §6.
const (
	KindProfileMetadata    = 0
	KindNote               = 1
	KindContacts           = 3
	KindRepost             = 6
	KindReaction           = 7
	KindAccountVanish      = 62
	KindFileMetadata       = 1063
	KindStorageAuth        = 24242
	KindCurationSet        = 30005
	KindShortVideo         = 34236
	KindShortVideoLegacy   = 34235 // accepted on read during the migration window
)

var hexID = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IsValidID reports whether id is a well-formed 64-hex lowercase event id.
func IsValidID(id string) bool { return hexID.MatchString(id) }

// Event is the wire representation of a signed event.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string      `json:"sig"`
}

// CanonicalSerialization returns the ordered array that, once SHA-256
// hashed, yields the event id. The hash itself and the signature are
// produced by an external signing collaborator; this function only builds
// the exact bytes that collaborator must hash/sign over.
func (e *Event) CanonicalSerialization() ([]byte, error) {
	arr := []any{0, e.PubKey, e.CreatedAt, e.Kind, e.Tags, e.Content}
	return json.Marshal(arr)
}

// TagValues returns the values (excluding the tag name) of the first tag
// whose name matches, or nil if absent.
func (e *Event) TagValues(name string) []string {
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			return t[1:]
		}
	}
	return nil
}

// AllTagValues returns every tag matching name (e.g. repeated `t` hashtag
// tags, or repeated `url` tags inside an `imeta` composite).
func (e *Event) AllTagValues(name string) [][]string {
	var out [][]string
	for _, t := range e.Tags {
		if len(t) > 0 && t[0] == name {
			out = append(out, t[1:])
		}
	}
	return out
}

// DTag returns the addressable event's `d` tag value, or "" if absent
// (kind 0/3 replaceable-by-pubkey events have no `d` tag).
func (e *Event) DTag() string {
	v := e.TagValues("d")
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// AddressableKey identifies a replaceable/addressable event for newest-wins
// comparison: {authorKey, kind, d-tag-value}.
type AddressableKey struct {
	AuthorKey string
	Kind      int
	DTag      string
}

func (e *Event) AddressableKey() AddressableKey {
	return AddressableKey{AuthorKey: e.PubKey, Kind: e.Kind, DTag: e.DTag()}
}

func (k AddressableKey) String() string {
	return fmt.Sprintf("%s:%d:%s", k.AuthorKey, k.Kind, k.DTag)
}
