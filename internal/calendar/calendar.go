// Package calendar serves the calendar credentials file with secrets
// truncated.
package calendar

import (
	"encoding/json"
	"os"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/spf13/afero"
)

// DefaultFile is resolved against the working directory.
const DefaultFile = "calendar_config.json"

const (
	apiKeyVisible   = 10
	clientIDVisible = 20
)

// Placeholder is written when the credentials file does not exist.
func Placeholder() map[string]any {
	return map[string]any{
		"apiKey":       "",
		"clientId":     "",
		"instructions": "Get API keys in Google Cloud Console",
	}
}

// Store loads the credentials file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a Store for path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{fs: fs, path: path}
}

// Path returns the credentials file location.
func (s *Store) Path() string { return s.path }

// Load reads the credentials. A missing file is created with placeholders.
// A file that is not a JSON object is reported as NotFound.
func (s *Store) Load() (cfg map[string]any, created bool, err error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		cfg = Placeholder()
		out, _ := json.MarshalIndent(cfg, "", "  ")
		if werr := afero.WriteFile(s.fs, s.path, out, 0600); werr != nil {
			return nil, false, errors.WrapWithCode(werr, errors.ErrNotFound,
				"Calendar config could not be created", "Check that "+s.path+" is writable.")
		}
		return cfg, true, nil
	}
	if err != nil {
		return nil, false, errors.WrapWithCode(err, errors.ErrNotFound, "Calendar config unreadable", "")
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg == nil {
		if err == nil {
			err = errors.New(errors.ErrParse, "not a JSON object", "")
		}
		return nil, false, errors.WrapWithCode(err, errors.ErrNotFound,
			"Calendar config is malformed", "Fix or delete "+s.path+" to regenerate it.")
	}
	return cfg, false, nil
}

// Redact returns a copy of cfg with apiKey and clientId shortened.
func Redact(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	redactField(out, "apiKey", apiKeyVisible)
	redactField(out, "clientId", clientIDVisible)
	return out
}

func redactField(cfg map[string]any, key string, visible int) {
	v, ok := cfg[key]
	if !ok || !truthy(v) {
		return
	}
	s, isString := v.(string)
	if !isString {
		cfg[key] = "set"
		return
	}
	r := []rune(s)
	if len(r) > visible {
		cfg[key] = string(r[:visible]) + "..."
		return
	}
	cfg[key] = "set"
}

// truthy mirrors JSON falsiness: empty strings, zero, false and null hide
// nothing and stay as they are.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
