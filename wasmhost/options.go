package wasmhost

import "log/slog"

// Option configures a Host at creation time.
type Option func(*hostConfig)

type hostConfig struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // 0 = wazero default (4GB)
	moduleName       string
	logger           *slog.Logger
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		moduleName: DefaultModuleName,
		logger:     slog.Default(),
	}
}

// WithDiskCache enables a persistent compilation cache. Optionally provide
// a directory; otherwise $XDG_CACHE_HOME/hostrpc or ~/.cache/hostrpc is
// used.
//
//	wasmhost.New(ctx, registry, wasmhost.WithDiskCache())
//	wasmhost.New(ctx, registry, wasmhost.WithDiskCache("/tmp/cache"))
func WithDiskCache(dir ...string) Option {
	return func(c *hostConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit caps guest memory. Each page is 64KB:
//   - WithMemoryLimit(16) = 1MB max
//   - WithMemoryLimit(256) = 16MB max
//   - WithMemoryLimit(1024) = 64MB max
func WithMemoryLimit(pages uint32) Option {
	return func(c *hostConfig) {
		c.memoryLimitPages = pages
	}
}

// WithModuleName sets the import module name guests use.
func WithModuleName(name string) Option {
	return func(c *hostConfig) {
		c.moduleName = name
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = l
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16
	MemoryLimit16MB  uint32 = 256
	MemoryLimit64MB  uint32 = 1024
	MemoryLimit256MB uint32 = 4096
)
