package publish

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/untreu2/divinefeed/internal/nostrwire"
)

// Signer is the external signing collaborator (spec.md §1, "Out of
// scope"): it hashes and signs an event's canonical serialization and
// returns the completed id/sig, without ever exposing the key material to
// this package.
type Signer interface {
	Sign(ev *nostrwire.Event) (*nostrwire.Event, error)
	PubKey() string
}

// BuildAuthorizationEvent constructs the unsigned kind-24242 scoped
// capability event for an upload of size bytes with digest hashHex,
// expiring at the absolute unix time expirationUnix (spec.md §4.5 step 2, §6
// "Storage protocol").
func BuildAuthorizationEvent(pubkey string, createdAt, expirationUnix int64, size int64, hashHex string) *nostrwire.Event {
	return &nostrwire.Event{
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      nostrwire.KindStorageAuth,
		Tags: [][]string{
			{"t", "upload"},
			{"expiration", strconv.FormatInt(expirationUnix, 10)},
			{"size", strconv.FormatInt(size, 10)},
			{"x", hashHex},
		},
	}
}

// EncodeAuthorizationHeader base64-encodes the signed event's canonical
// JSON for use as the `Authorization: Nostr <...>` header value (spec.md
// §6).
func EncodeAuthorizationHeader(signed *nostrwire.Event) (string, error) {
	raw, err := json.Marshal(signed)
	if err != nil {
		return "", err
	}
	return "Nostr " + base64.StdEncoding.EncodeToString(raw), nil
}
