package feed

import (
	"time"

	"github.com/untreu2/divinefeed/internal/nostrwire"
	"github.com/untreu2/divinefeed/internal/video"
)

// AlreadySeenService is the user-local, persistent seen set external
// collaborator (spec.md §4.2 admission rule 5). A replay flag bypasses it.
type AlreadySeenService interface {
	HasSeen(id string) bool
}

// admissionResult names which rule rejected an event, for metrics/logging.
type admissionResult string

const (
	admitted            admissionResult = "admitted"
	rejectDuplicate      admissionResult = "duplicate"
	rejectNoURL          admissionResult = "no_usable_url"
	rejectEmptyContent   admissionResult = "empty_content"
	rejectTooOld         admissionResult = "too_old"
	rejectAlreadySeen    admissionResult = "already_seen"
)

// checkAdmission applies spec.md §4.2 admission rules 2-5 (rule 1,
// per-feed duplicate detection, is applied by the caller via seenIDSet
// since it needs mutable state shared across the whole decision).
func checkAdmission(ev *nostrwire.Event, d *video.Descriptor, maxAge time.Duration, now time.Time, alreadySeen AlreadySeenService, replay bool) admissionResult {
	if len(d.VideoURLs) == 0 {
		return rejectNoURL
	}

	hasTitle := false
	for _, t := range ev.AllTagValues("title") {
		if len(t) > 0 && t[0] != "" {
			hasTitle = true
			break
		}
	}
	if d.ContentText == "" && !hasTitle {
		return rejectEmptyContent
	}

	if maxAge > 0 {
		age := now.Unix() - ev.CreatedAt
		if age > int64(maxAge.Seconds()) {
			return rejectTooOld
		}
	}

	if !replay && alreadySeen != nil && alreadySeen.HasSeen(ev.ID) {
		return rejectAlreadySeen
	}

	return admitted
}
