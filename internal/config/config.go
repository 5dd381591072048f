// Package config loads and resolves the network-class-aware tunables that
// govern the controller pool, feed pipeline, and profile fetcher.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NetworkClass selects which tunable profile applies (spec.md §4.1, §5).
type NetworkClass string

const (
	NetworkCellular NetworkClass = "cellular"
	NetworkWiFi     NetworkClass = "wifi"
	NetworkTesting  NetworkClass = "testing"
)

// PoolConfig holds the resolved Video Controller Pool tunables.
type PoolConfig struct {
	MaxControllers int           `yaml:"maxControllers"`
	MaxVideos      int           `yaml:"maxVideos"`
	MaxRetries     int           `yaml:"maxRetries"`
	PreloadTimeout time.Duration `yaml:"preloadTimeout"`
	PreloadAhead   int           `yaml:"preloadAhead"`
	PreloadBehind  int           `yaml:"preloadBehind"`
	GracePeriod    time.Duration `yaml:"gracePeriod"`
}

// ProfileFetcherConfig holds the resolved Profile Fetcher tunables.
type ProfileFetcherConfig struct {
	DebounceMin      time.Duration `yaml:"debounceMin"`
	DebounceMax      time.Duration `yaml:"debounceMax"`
	BatchFallback    time.Duration `yaml:"batchFallback"`
	NegativeTTL      time.Duration `yaml:"negativeTTL"`
	HardTTL          time.Duration `yaml:"hardTTL"`
	SoftRefreshAfter time.Duration `yaml:"softRefreshAfter"`
	RefreshRateEvery time.Duration `yaml:"refreshRateEvery"`
	MaxBatchAuthors  int           `yaml:"maxBatchAuthors"`
}

// FeedConfig holds the resolved Feed Pipeline tunables.
type FeedConfig struct {
	SeenIDCapacity   int           `yaml:"seenIDCapacity"`
	MaxEventAge      time.Duration `yaml:"maxEventAge"`
	HealthCheckEvery time.Duration `yaml:"healthCheckEvery"`
	StaleAfter       time.Duration `yaml:"staleAfter"`
}

// DebugAPIConfig holds the local-only introspection HTTP surface tunables
// (SPEC_FULL.md domain-stack supplement, not present in spec.md itself).
type DebugAPIConfig struct {
	ListenAddr   string `yaml:"listenAddr"`
	RateLimitRPS int    `yaml:"rateLimitRPS"`
}

// Profile bundles the network-class-dependent tunables.
type Profile struct {
	Pool    PoolConfig
	Profile ProfileFetcherConfig
	Feed    FeedConfig
}

// FileConfig is the on-disk YAML shape. Mirrors the teacher's FileConfig:
// a thin root with nested, mostly-optional sections.
type FileConfig struct {
	NetworkClass NetworkClass       `yaml:"networkClass,omitempty"`
	DataDir      string             `yaml:"dataDir,omitempty"`
	LogLevel     string             `yaml:"logLevel,omitempty"`
	MetricsAddr  string             `yaml:"metricsAddr,omitempty"`
	Cellular     *ProfileOverrides  `yaml:"cellular,omitempty"`
	WiFi         *ProfileOverrides  `yaml:"wifi,omitempty"`
	Testing      *ProfileOverrides  `yaml:"testing,omitempty"`
	StorageEndpoints []string       `yaml:"storageEndpoints,omitempty"`
	RelayEndpoints   []string       `yaml:"relayEndpoints,omitempty"`
	DebugAPI         *DebugAPIConfig `yaml:"debugAPI,omitempty"`
}

// ResolveDebugAPI returns the effective DebugAPIConfig, defaulting to a
// loopback-only listener so the introspection surface is never exposed
// beyond the local host unless an operator explicitly overrides it.
func (fc *FileConfig) ResolveDebugAPI() DebugAPIConfig {
	cfg := DebugAPIConfig{ListenAddr: "127.0.0.1:9797", RateLimitRPS: 20}
	if fc.DebugAPI == nil {
		return cfg
	}
	if fc.DebugAPI.ListenAddr != "" {
		cfg.ListenAddr = fc.DebugAPI.ListenAddr
	}
	if fc.DebugAPI.RateLimitRPS > 0 {
		cfg.RateLimitRPS = fc.DebugAPI.RateLimitRPS
	}
	return cfg
}

// ProfileOverrides lets an operator override any tunable for a network
// class without repeating the full Profile shape.
type ProfileOverrides struct {
	MaxControllers *int           `yaml:"maxControllers,omitempty"`
	MaxVideos      *int           `yaml:"maxVideos,omitempty"`
	MaxRetries     *int           `yaml:"maxRetries,omitempty"`
	PreloadTimeout *time.Duration `yaml:"preloadTimeout,omitempty"`
}

// defaultProfiles implements the literal defaults from spec.md §3–§5.
func defaultProfiles() map[NetworkClass]Profile {
	base := func(maxVideos int, preloadTimeout time.Duration) Profile {
		return Profile{
			Pool: PoolConfig{
				MaxControllers: 15,
				MaxVideos:      maxVideos,
				MaxRetries:     2,
				PreloadTimeout: preloadTimeout,
				PreloadAhead:   2,
				PreloadBehind:  1,
				GracePeriod:    30 * time.Second,
			},
			Profile: ProfileFetcherConfig{
				DebounceMin:      50 * time.Millisecond,
				DebounceMax:      100 * time.Millisecond,
				BatchFallback:    30 * time.Second,
				NegativeTTL:      10 * time.Minute,
				HardTTL:          365 * 24 * time.Hour,
				SoftRefreshAfter: 7 * 24 * time.Hour,
				RefreshRateEvery: 30 * time.Second,
				MaxBatchAuthors:  500,
			},
			Feed: FeedConfig{
				SeenIDCapacity:   1000,
				MaxEventAge:      30 * 24 * time.Hour,
				HealthCheckEvery: 2 * time.Minute,
				StaleAfter:       10 * time.Minute,
			},
		}
	}
	return map[NetworkClass]Profile{
		NetworkCellular: base(50, 15*time.Second),
		NetworkWiFi:     base(100, 15*time.Second),
		NetworkTesting:  base(100, 500*time.Millisecond),
	}
}

// Resolve returns the effective Profile for class, applying any overrides
// present in fc.
func (fc *FileConfig) Resolve(class NetworkClass) Profile {
	p := defaultProfiles()[class]
	var ov *ProfileOverrides
	switch class {
	case NetworkCellular:
		ov = fc.Cellular
	case NetworkWiFi:
		ov = fc.WiFi
	case NetworkTesting:
		ov = fc.Testing
	}
	if ov == nil {
		return p
	}
	if ov.MaxControllers != nil {
		p.Pool.MaxControllers = *ov.MaxControllers
	}
	if ov.MaxVideos != nil {
		p.Pool.MaxVideos = *ov.MaxVideos
	}
	if ov.MaxRetries != nil {
		p.Pool.MaxRetries = *ov.MaxRetries
	}
	if ov.PreloadTimeout != nil {
		p.Pool.PreloadTimeout = *ov.PreloadTimeout
	}
	return p
}

// Load reads and parses a YAML config file.
func Load(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.NetworkClass == "" {
		fc.NetworkClass = NetworkWiFi
	}
	return &fc, nil
}
