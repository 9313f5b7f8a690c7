package config

import "time"

// Config represents the complete fleetd.yaml configuration file.
type Config struct {
	Server     ServerConfig    `yaml:"server" mapstructure:"server"`
	Hosts      []Host          `yaml:"hosts" mapstructure:"hosts" validate:"dive"`
	Timeouts   TimeoutConfig   `yaml:"timeouts" mapstructure:"timeouts"`
	Probe      ProbeConfig     `yaml:"probe" mapstructure:"probe"`
	Containers ContainerConfig `yaml:"containers" mapstructure:"containers"`
	Session    SessionConfig   `yaml:"session" mapstructure:"session"`
	Wallpaper  WallpaperConfig `yaml:"wallpaper" mapstructure:"wallpaper"`
	Calendar   CalendarConfig  `yaml:"calendar" mapstructure:"calendar"`
	Log        LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is host:port to listen on.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`

	// PublicDir holds the dashboard's static assets. Empty disables them.
	PublicDir string `yaml:"public_dir" mapstructure:"public_dir"`
}

// Host is a named remote machine probed over SSH.
type Host struct {
	// Alias is the key the host appears under in every response.
	Alias string `yaml:"alias" mapstructure:"alias" validate:"required,alias"`

	// SSH is the connection target: an ssh_config alias, hostname or
	// user@hostname[:port]. Defaults to Alias.
	SSH string `yaml:"ssh,omitempty" mapstructure:"ssh"`
}

// Target returns the SSH connection string for the host.
func (h Host) Target() string {
	if h.SSH != "" {
		return h.SSH
	}
	return h.Alias
}

// TimeoutConfig holds per-probe time limits.
type TimeoutConfig struct {
	Connect          time.Duration `yaml:"connect" mapstructure:"connect" validate:"gt=0s"`
	Ping             time.Duration `yaml:"ping" mapstructure:"ping" validate:"gt=0s"`
	Info             time.Duration `yaml:"info" mapstructure:"info" validate:"gt=0s"`
	Processes        time.Duration `yaml:"processes" mapstructure:"processes" validate:"gt=0s"`
	LocalContainers  time.Duration `yaml:"local_containers" mapstructure:"local_containers" validate:"gt=0s"`
	RemoteContainers time.Duration `yaml:"remote_containers" mapstructure:"remote_containers" validate:"gt=0s"`

	// Grace is added to the longest probe timeout to bound a whole request.
	Grace time.Duration `yaml:"grace" mapstructure:"grace" validate:"gte=0s"`
}

// ProbeConfig controls how probes run.
type ProbeConfig struct {
	// MaxParallel bounds concurrent probes per request.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel" validate:"gte=1,lte=64"`

	// StrictHostKeyChecking rejects hosts missing from known_hosts.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	// Instrumentation selects the local reader: auto, host or fallback.
	Instrumentation string `yaml:"instrumentation" mapstructure:"instrumentation" validate:"oneof=auto host fallback"`
}

// ContainerConfig selects the container runtime CLI.
type ContainerConfig struct {
	Runtime string `yaml:"runtime" mapstructure:"runtime" validate:"oneof=docker podman"`
}

// SessionConfig locates the focus-timer flag files and the lock tool.
type SessionConfig struct {
	StatusFile   string `yaml:"status_file" mapstructure:"status_file" validate:"required"`
	BreakEndFile string `yaml:"break_end_file" mapstructure:"break_end_file" validate:"required"`

	// LockCommand is launched when a request names no tool.
	LockCommand string `yaml:"lock_command" mapstructure:"lock_command"`

	// AllowedLockCommands are the other tools a request may name.
	AllowedLockCommands []string `yaml:"allowed_lock_commands" mapstructure:"allowed_lock_commands"`
}

// WallpaperConfig points at nitrogen's saved state.
type WallpaperConfig struct {
	NitrogenConfig string `yaml:"nitrogen_config" mapstructure:"nitrogen_config"`
}

// CalendarConfig points at the calendar credentials file.
type CalendarConfig struct {
	File string `yaml:"file" mapstructure:"file" validate:"required"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// DefaultConfig returns the configuration of the stock deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      "localhost:8082",
			PublicDir: "public",
		},
		Hosts: []Host{
			{Alias: "got_is_tod"},
			{Alias: "azure-aluminium"},
		},
		Timeouts: TimeoutConfig{
			Connect:          5 * time.Second,
			Ping:             10 * time.Second,
			Info:             8 * time.Second,
			Processes:        10 * time.Second,
			LocalContainers:  10 * time.Second,
			RemoteContainers: 15 * time.Second,
			Grace:            2 * time.Second,
		},
		Probe: ProbeConfig{
			MaxParallel:           8,
			StrictHostKeyChecking: true,
			Instrumentation:       "auto",
		},
		Containers: ContainerConfig{Runtime: "docker"},
		Session: SessionConfig{
			StatusFile:          "/tmp/pomodoro_status.txt",
			BreakEndFile:        "/tmp/pomodoro_break_end.txt",
			LockCommand:         "~/.local/bin/anime-lock-python",
			AllowedLockCommands: []string{},
		},
		Wallpaper: WallpaperConfig{NitrogenConfig: "~/.config/nitrogen/bg-saved.cfg"},
		Calendar:  CalendarConfig{File: "calendar_config.json"},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Aliases returns the configured host aliases in order.
func (c *Config) Aliases() []string {
	out := make([]string, len(c.Hosts))
	for i, h := range c.Hosts {
		out[i] = h.Alias
	}
	return out
}
