package pool

import (
	"context"

	"github.com/untreu2/divinefeed/internal/video"
)

// State is the VideoState lattice from spec.md §3:
// NotLoaded -> Loading -> Ready | Failed | PermanentlyFailed -> Disposed.
type State int

const (
	NotLoaded State = iota
	Loading
	Ready
	Failed
	PermanentlyFailed
	Disposed
)

func (s State) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case PermanentlyFailed:
		return "permanently_failed"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ControllerHandle owns an OS/media resource. It is created only while an
// entry is in Loading and destroyed on Disposed or implicit eviction. The
// pool is its exclusive owner; nothing outside this package ever holds a
// ControllerHandle across a state transition.
type ControllerHandle interface {
	// Dispose releases the underlying media resource. Idempotent.
	Dispose()
	// Pause suspends playback without releasing the resource.
	Pause()
	// Resume resumes playback after Pause.
	Resume()
}

// Initializer is the platform media layer collaborator (out of scope per
// spec.md §1) that turns a descriptor into a live ControllerHandle.
type Initializer func(ctx context.Context, d *video.Descriptor) (ControllerHandle, error)
