package bytecode

import "github.com/rs/zerolog"

// Option configures Decode and Encode.
type Option func(*config)

type config struct {
	region Region
	codec  Codec
	logger zerolog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		region: RegionUS,
		codec:  Windows1252,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithRegion selects the header variant used by Decode. Encode always uses
// the container's own region.
func WithRegion(r Region) Option {
	return func(cfg *config) {
		cfg.region = r
	}
}

// WithCodec sets the text codec for pool strings.
func WithCodec(c Codec) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithLogger sets the logger that receives non-fatal decode warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}
