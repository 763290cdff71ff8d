package hssp

import "github.com/rs/zerolog"

const (
	MinCompressionLevel     = 0
	MaxCompressionLevel     = 9
	DefaultCompressionLevel = 5
)

type readConfig struct {
	version     Version
	gate        *cryptoGate
	registry    *Registry
	allowUnsafe bool
	limits      Limits
	logger      zerolog.Logger
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{limits: defaultLimits(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}

type ReadOption func(*readConfig)

// WithReadVersion skips version detection and parses the buffer as v.
func WithReadVersion(v Version) ReadOption {
	return func(c *readConfig) { c.version = v }
}

// WithReadPassword supplies the password for encrypted archives. An empty
// password means none.
func WithReadPassword(password string) ReadOption {
	return func(c *readConfig) { c.gate = newCryptoGate(password) }
}

// WithReadRegistry replaces the default compression registry.
func WithReadRegistry(r *Registry) ReadOption {
	return func(c *readConfig) { c.registry = r }
}

// WithAllowUnsafe disables the UnsafeOperation check on oversized declared lengths.
func WithAllowUnsafe(v bool) ReadOption {
	return func(c *readConfig) { c.allowUnsafe = v }
}

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

func WithReadLogger(l zerolog.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}

type writeConfig struct {
	version     Version
	gate        *cryptoGate
	compression string
	level       int
	comment     string
	registry    *Registry
	limits      Limits
	logger      zerolog.Logger
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{
		version: LatestVersion,
		level:   DefaultCompressionLevel,
		limits:  defaultLimits(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}

type WriteOption func(*writeConfig)

// WithVersion selects the revision Create writes. Defaults to LatestVersion.
func WithVersion(v Version) WriteOption {
	return func(c *writeConfig) { c.version = v }
}

// WithPassword encrypts the body. The password is turned into key material
// immediately and cannot be read back from the option.
func WithPassword(password string) WriteOption {
	return func(c *writeConfig) { c.gate = newCryptoGate(password) }
}

// WithCompression selects a registered compression algorithm by name. An empty
// name disables compression.
func WithCompression(name string) WriteOption {
	return func(c *writeConfig) { c.compression = name }
}

// WithCompressionLevel sets the level passed to the compressor (0-9, default 5).
func WithCompressionLevel(level int) WriteOption {
	return func(c *writeConfig) { c.level = level }
}

// WithComment stores up to 16 bytes of UTF-8 text in v4 and v5 headers.
func WithComment(comment string) WriteOption {
	return func(c *writeConfig) { c.comment = comment }
}

// WithRegistry replaces the default compression registry.
func WithRegistry(r *Registry) WriteOption {
	return func(c *writeConfig) { c.registry = r }
}

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

func WithWriteLogger(l zerolog.Logger) WriteOption {
	return func(c *writeConfig) { c.logger = l }
}
