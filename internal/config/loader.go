package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "fleetd.yaml"
	// GlobalConfigDir is the directory for the per-user config.
	GlobalConfigDir = ".config/fleetd"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. FLEETD_SERVER_ADDR.
	EnvPrefix = "FLEETD"
)

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. fleetd.yaml in current directory
// 3. ~/.config/fleetd/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// Load reads config from path, layered over defaults and under FLEETD_*
// environment overrides. An empty path loads defaults and environment only.
// The result is validated.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'fleetd config init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg, err := parseConfig(v, path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault finds and loads the config, falling back to defaults when
// no file exists. It returns the path that was used, if any.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// parseConfig converts viper config to our Config struct.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}
	if cfg.Session.AllowedLockCommands == nil {
		cfg.Session.AllowedLockCommands = []string{}
	}
	expandPaths(cfg)
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.public_dir", d.Server.PublicDir)

	hosts := make([]map[string]any, len(d.Hosts))
	for i, h := range d.Hosts {
		hosts[i] = map[string]any{"alias": h.Alias, "ssh": h.SSH}
	}
	v.SetDefault("hosts", hosts)

	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.ping", d.Timeouts.Ping)
	v.SetDefault("timeouts.info", d.Timeouts.Info)
	v.SetDefault("timeouts.processes", d.Timeouts.Processes)
	v.SetDefault("timeouts.local_containers", d.Timeouts.LocalContainers)
	v.SetDefault("timeouts.remote_containers", d.Timeouts.RemoteContainers)
	v.SetDefault("timeouts.grace", d.Timeouts.Grace)

	v.SetDefault("probe.max_parallel", d.Probe.MaxParallel)
	v.SetDefault("probe.strict_host_key_checking", d.Probe.StrictHostKeyChecking)
	v.SetDefault("probe.instrumentation", d.Probe.Instrumentation)

	v.SetDefault("containers.runtime", d.Containers.Runtime)

	v.SetDefault("session.status_file", d.Session.StatusFile)
	v.SetDefault("session.break_end_file", d.Session.BreakEndFile)
	v.SetDefault("session.lock_command", d.Session.LockCommand)
	v.SetDefault("session.allowed_lock_commands", d.Session.AllowedLockCommands)

	v.SetDefault("wallpaper.nitrogen_config", d.Wallpaper.NitrogenConfig)
	v.SetDefault("calendar.file", d.Calendar.File)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
}
