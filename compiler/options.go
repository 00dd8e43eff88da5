package compiler

import (
	"github.com/pmdscript/ssb/bytecode"
	"github.com/rs/zerolog"
)

// Option configures Assemble.
type Option func(*config)

type config struct {
	region bytecode.Region
	logger zerolog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		region: bytecode.RegionUS,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRegion selects the region whose languages the localized pool holds.
func WithRegion(r bytecode.Region) Option {
	return func(cfg *config) {
		cfg.region = r
	}
}

// WithLogger sets the logger used for layout debugging and source map
// warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}
