package video

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// knownVideoExtensions is consulted by the feed pipeline's admission rule 2.
var knownVideoExtensions = []string{".mp4", ".mov", ".webm", ".m3u8", ".m4v"}

// streamingHostAllowList covers hosts that serve playable video without a
// recognizable file extension in the path (admission rule 2, alternate leg).
var streamingHostAllowList = map[string]bool{
	"cdn.satellite.earth": true,
	"blossom.primal.net":  true,
	"nostr.build":         true,
	"void.cat":            true,
}

var resolutionSuffix = regexp.MustCompile(`(?i)[-_](2160|1440|1080|720|480|360)p?\.(mp4|mov|m4v)$`)

// IsUsableVideoURL implements spec admission rule 2: the URL must resolve to
// http(s), and either end with a known video extension or target an
// allow-listed streaming host.
func IsUsableVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range knownVideoExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return streamingHostAllowList[normalizeHost(u.Hostname())]
}

// normalizeHost converts an internationalized hostname to its ASCII/punycode
// form so an allow-listed host matches regardless of how a relay or uploader
// rendered it. Falls back to a plain lowercase compare if the host isn't a
// valid IDN (e.g. already-ASCII hosts, or malformed input rejected upstream).
func normalizeHost(host string) string {
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(ascii)
}

// ScoreVideoURL resolves Open Question 2: prefer a streaming MP4 carrying an
// explicit resolution suffix, then any other .mp4/.mov/.m4v URL, then any
// other usable URL (an allow-listed host without a recognizable extension,
// or a .webm file), then HLS manifests last. Lower is better; unusable URLs
// score last of all.
func ScoreVideoURL(raw string) int {
	if !IsUsableVideoURL(raw) {
		return 1000
	}
	u, _ := url.Parse(raw)
	path := strings.ToLower(u.Path)

	switch {
	case resolutionSuffix.MatchString(path):
		return 0
	case strings.HasSuffix(path, ".mp4") || strings.HasSuffix(path, ".mov") || strings.HasSuffix(path, ".m4v"):
		return 1
	case strings.HasSuffix(path, ".m3u8"):
		return 3
	default:
		return 2 // allow-listed streaming host, no recognizable extension
	}
}

// RankVideoURLs sorts candidate URLs best-first per ScoreVideoURL, dropping
// anything that isn't a usable video URL.
func RankVideoURLs(candidates []string) []string {
	usable := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if IsUsableVideoURL(c) {
			usable = append(usable, c)
		}
	}
	scores := make(map[string]int, len(usable))
	for _, u := range usable {
		scores[u] = ScoreVideoURL(u)
	}
	// stable sort by score, preserving relative order of ties
	for i := 1; i < len(usable); i++ {
		j := i
		for j > 0 && scores[usable[j-1]] > scores[usable[j]] {
			usable[j-1], usable[j] = usable[j], usable[j-1]
			j--
		}
	}
	return usable
}
