package track

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config controls tracing limits, caching and the default recursion policy.
type Config struct {
	// MaxDepth caps call nesting; 0 means unlimited. The root is depth 0.
	MaxDepth int `yaml:"maxDepth"`
	// MaxNodes caps the total node count over a whole trace tree; 0 means
	// unlimited.
	MaxNodes int `yaml:"maxNodes"`
	// CacheSize bounds the instrumentation cache (entries). 0 picks the
	// default.
	CacheSize int `yaml:"cacheSize"`
	// Leaves lists callees the default policy never recurses into, even
	// when a graph is obtainable.
	Leaves []string `yaml:"leaves"`
	// FallbackOnRewriteError degrades a failed rewrite to a leaf call
	// instead of surfacing the error.
	FallbackOnRewriteError bool `yaml:"fallbackOnRewriteError"`
	// Debug enables verbose logging, like EnableDebugLogs.
	Debug bool `yaml:"debug"`
}

const defaultCacheSize = 1024

// DefaultConfig returns the configuration used when callers pass a zero
// Config.
func DefaultConfig() Config {
	return Config{
		CacheSize:              defaultCacheSize,
		FallbackOnRewriteError: true,
	}
}

func (c *Config) sanitize() error {
	if c.MaxDepth < 0 || c.MaxNodes < 0 || c.CacheSize < 0 {
		return errors.New("track: limits must not be negative")
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
	return nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "track: read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "track: parse config")
	}
	if err := cfg.sanitize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
