package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unchanged if we can't get home
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// Expand replaces ${HOME} and ${USER} and then expands a leading ~.
func Expand(s string) string {
	if s == "" {
		return s
	}

	result := s
	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", getHome())
	}
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}
	return ExpandTilde(result)
}

// expandPaths resolves every local path in cfg.
func expandPaths(cfg *Config) {
	cfg.Server.PublicDir = Expand(cfg.Server.PublicDir)
	cfg.Session.StatusFile = Expand(cfg.Session.StatusFile)
	cfg.Session.BreakEndFile = Expand(cfg.Session.BreakEndFile)
	cfg.Session.LockCommand = Expand(cfg.Session.LockCommand)
	for i, p := range cfg.Session.AllowedLockCommands {
		cfg.Session.AllowedLockCommands[i] = Expand(p)
	}
	cfg.Wallpaper.NitrogenConfig = Expand(cfg.Wallpaper.NitrogenConfig)
	cfg.Calendar.File = Expand(cfg.Calendar.File)
	cfg.Log.File = Expand(cfg.Log.File)
}

func getUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "user"
}

func getHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return home
}
