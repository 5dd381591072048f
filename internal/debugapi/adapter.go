package debugapi

import (
	"github.com/untreu2/divinefeed/internal/pool"
	"github.com/untreu2/divinefeed/internal/video"
)

// PoolAdapter adapts *pool.Pool to the PoolView interface this package
// depends on, translating internal/pool's types to this package's JSON
// wire shapes.
type PoolAdapter struct {
	Pool *pool.Pool
}

func (a PoolAdapter) DebugInfo() DebugInfo {
	d := a.Pool.DebugInfo()
	return DebugInfo{
		TotalVideos:     d.TotalVideos,
		ControllerCount: d.ControllerCount,
		CursorIndex:     d.CursorIndex,
		StateCounts:     d.StateCounts,
	}
}

func (a PoolAdapter) Videos() []VideoView {
	videos := a.Pool.Videos()
	out := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		out = append(out, videoViewOf(v))
	}
	return out
}

func videoViewOf(d *video.Descriptor) VideoView {
	return VideoView{
		ID:           d.ID,
		AuthorKey:    d.AuthorKey,
		CreatedAt:    d.CreatedAtSeconds,
		ThumbnailURL: d.ThumbnailURL,
	}
}
