package main

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/tamirms/haph"
)

// config is the on-disk build configuration:
//
//	[build]
//	hasher = "xxh3"
//	width = 32
//	workers = 4
//	compress = true
//	max_seed_attempts = 1000
type config struct {
	Build buildConfig `toml:"build"`
}

type buildConfig struct {
	Hasher          string `toml:"hasher"`
	Width           int    `toml:"width"`
	Workers         int    `toml:"workers"`
	Compress        bool   `toml:"compress"`
	MaxSeedAttempts int    `toml:"max_seed_attempts"`
}

func defaultBuildConfig() buildConfig {
	return buildConfig{
		Hasher: haph.HasherXXH3.String(),
		Width:  32,
	}
}

// loadConfig decodes path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (buildConfig, error) {
	cfg := config{Build: defaultBuildConfig()}
	if path == "" {
		return cfg.Build, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return buildConfig{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return buildConfig{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	return cfg.Build, nil
}

// buildFlags binds the build settings to fs.
type buildFlags struct {
	hasher          string
	width           int
	workers         int
	compress        bool
	maxSeedAttempts int
}

func (f *buildFlags) register(fs *flag.FlagSet) {
	def := defaultBuildConfig()
	fs.StringVar(&f.hasher, "hasher", def.Hasher, "hash function: xxh3, xxhash or murmur3")
	fs.IntVar(&f.width, "width", def.Width, "hash word width in bits: 8, 16, 32 or 64")
	fs.IntVar(&f.workers, "workers", def.Workers, "goroutines hashing keys per seed attempt")
	fs.BoolVar(&f.compress, "compress", def.Compress, "lz4-compress the entry region")
	fs.IntVar(&f.maxSeedAttempts, "max-seed-attempts", def.MaxSeedAttempts, "seeds to try before giving up (0 = library default)")
}

// merge overlays the flags explicitly set on fs onto cfg.
func (f *buildFlags) merge(fs *flag.FlagSet, cfg buildConfig) buildConfig {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "hasher":
			cfg.Hasher = f.hasher
		case "width":
			cfg.Width = f.width
		case "workers":
			cfg.Workers = f.workers
		case "compress":
			cfg.Compress = f.compress
		case "max-seed-attempts":
			cfg.MaxSeedAttempts = f.maxSeedAttempts
		}
	})
	return cfg
}
