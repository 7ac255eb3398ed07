package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dshills/loom/internal/config/loader"
)

// LoadOptions selects the sources for Load.
type LoadOptions struct {
	// Path is a YAML or TOML file. A missing file is not an error.
	Path string

	// EnvFiles are .env files read before the environment.
	EnvFiles []string

	// FS reads Path. Defaults to the OS file system.
	FS loader.FileSystem

	// Environ replaces os.Environ.
	Environ func() []string
}

// Load merges defaults, the file, and the environment, then decodes and
// validates the result.
func Load(opts LoadOptions) (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	if opts.Path != "" {
		fsys := opts.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		fileCfg, err := loader.NewFileLoaderWithFS(fsys, opts.Path).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}

	env := loader.NewEnvLoader(loader.EnvPrefix, opts.EnvFiles...)
	if opts.Environ != nil {
		env.SetEnviron(opts.Environ)
	}
	envCfg, err := env.Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, envCfg)

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func toMap(c *Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// decode rejects keys that match no Config field.
func decode(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}
