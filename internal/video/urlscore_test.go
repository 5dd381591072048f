package video

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUsableVideoURL(t *testing.T) {
	cases := []struct {
		url    string
		usable bool
	}{
		{"https://cdn.example.com/video.mp4", true},
		{"https://cdn.example.com/video-1080p.mp4", true},
		{"https://cdn.satellite.earth/abcd", true},
		{"https://blossom.primal.net/abcd", true},
		{"ftp://cdn.example.com/video.mp4", false},
		{"https://random-host.example.com/clip", false},
		{"not a url", false},
	}
	for _, c := range cases {
		require.Equal(t, c.usable, IsUsableVideoURL(c.url), c.url)
	}
}

func TestRankVideoURLs_PrefersResolutionSuffixThenMP4ThenHLS(t *testing.T) {
	candidates := []string{
		"https://cdn.example.com/video.m3u8",
		"https://cdn.example.com/video.mp4",
		"https://cdn.example.com/video-1080p.mp4",
		"https://not-a-video-host.example.com/clip",
	}
	ranked := RankVideoURLs(candidates)
	require.Equal(t, []string{
		"https://cdn.example.com/video-1080p.mp4",
		"https://cdn.example.com/video.mp4",
		"https://cdn.example.com/video.m3u8",
	}, ranked)
}

func TestRankVideoURLs_AllowListedStreamingHostRanksBetweenMP4AndHLS(t *testing.T) {
	candidates := []string{
		"https://cdn.satellite.earth/blob1",
		"https://cdn.example.com/video.m3u8",
		"https://cdn.example.com/video.mp4",
	}
	ranked := RankVideoURLs(candidates)
	require.Equal(t, []string{
		"https://cdn.example.com/video.mp4",
		"https://cdn.satellite.earth/blob1",
		"https://cdn.example.com/video.m3u8",
	}, ranked)
}
