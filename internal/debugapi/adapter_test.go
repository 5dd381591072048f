package debugapi

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/untreu2/divinefeed/internal/config"
	"github.com/untreu2/divinefeed/internal/pool"
	"github.com/untreu2/divinefeed/internal/video"
)

func TestPoolAdapter_VideosMatchesUnderlyingDescriptors(t *testing.T) {
	init := func(ctx context.Context, d *video.Descriptor) (pool.ControllerHandle, error) {
		return noopHandle{}, nil
	}
	p := pool.New(config.PoolConfig{MaxVideos: 10, MaxControllers: 2}, init)
	p.AddDescriptor(&video.Descriptor{ID: "b", AuthorKey: "pk2", CreatedAtSeconds: 200, ThumbnailURL: "https://cdn/b.jpg"})
	p.AddDescriptor(&video.Descriptor{ID: "a", AuthorKey: "pk1", CreatedAtSeconds: 100, ThumbnailURL: "https://cdn/a.jpg"})

	adapter := PoolAdapter{Pool: p}
	got := adapter.Videos()
	want := []VideoView{
		{ID: "b", AuthorKey: "pk2", CreatedAt: 200, ThumbnailURL: "https://cdn/b.jpg"},
		{ID: "a", AuthorKey: "pk1", CreatedAt: 100, ThumbnailURL: "https://cdn/a.jpg"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Videos() mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolAdapter_DebugInfoReportsCounts(t *testing.T) {
	init := func(ctx context.Context, d *video.Descriptor) (pool.ControllerHandle, error) {
		return noopHandle{}, nil
	}
	p := pool.New(config.PoolConfig{MaxVideos: 10, MaxControllers: 2}, init)
	p.AddDescriptor(&video.Descriptor{ID: "a", CreatedAtSeconds: 1})
	p.AddDescriptor(&video.Descriptor{ID: "b", CreatedAtSeconds: 2})

	adapter := PoolAdapter{Pool: p}
	info := adapter.DebugInfo()
	if diff := cmp.Diff(DebugInfo{TotalVideos: 2, CursorIndex: 1, StateCounts: map[string]int{"not_loaded": 2}}, info); diff != "" {
		t.Fatalf("DebugInfo() mismatch (-want +got):\n%s", diff)
	}
}

type noopHandle struct{}

func (noopHandle) Dispose() {}
func (noopHandle) Pause()   {}
func (noopHandle) Resume()  {}
