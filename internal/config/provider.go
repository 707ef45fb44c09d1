// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider resolves and loads the effective build configuration. Load
// returns the configuration together with the path of the file it was
// read from; an empty path means the built-in defaults were used.
type Provider interface {
	Load(ctx context.Context) (*Config, string, error)
}

type fileProvider struct {
	opts LoadOptions
}

// NewProvider creates a configuration provider bound to the given
// loading options.
func NewProvider(opts LoadOptions) Provider {
	return &fileProvider{opts: opts}
}

// Load runs the lookup chain (explicit path, project-local file, config
// directory, defaults) and returns the result.
func (p *fileProvider) Load(ctx context.Context) (*Config, string, error) {
	return loadWithOptions(ctx, p.opts)
}
