package config

import (
	"os"
	"path/filepath"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"gopkg.in/yaml.v3"
)

const sampleHeader = `# fleetd configuration
#
# Every key can be overridden from the environment with the FLEETD_ prefix,
# e.g. FLEETD_SERVER_ADDR=0.0.0.0:8082 or FLEETD_LOG_LEVEL=debug.
# Hosts are probed over SSH; "ssh" may be an ~/.ssh/config alias and
# defaults to the alias itself.

`

// Render marshals cfg as YAML.
func Render(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render config", "")
	}
	return out, nil
}

// WriteSample writes the default config to path. An existing file is only
// replaced when force is set.
func WriteSample(path string, force bool) error {
	return Write(path, DefaultConfig(), force)
}

// Write validates cfg and writes it to path with the sample header.
func Write(path string, cfg *Config, force bool) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				path+" already exists",
				"Use --force to overwrite it.")
		}
	}

	body, err := Render(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't create "+dir, "")
		}
	}
	if err := os.WriteFile(path, append([]byte(sampleHeader), body...), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't write "+path, "Check directory permissions")
	}
	return nil
}
