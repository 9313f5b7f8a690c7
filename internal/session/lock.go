package session

import (
	"os/exec"
	"slices"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/spf13/afero"
)

// Locker starts the screen-lock tool. Only the configured default and the
// paths in the allow list may be launched.
type Locker struct {
	fs         afero.Fs
	defaultCmd string
	allowed    []string
	start      func(path string) error
}

// NewLocker returns a Locker that checks paths on fs.
func NewLocker(fs afero.Fs, defaultCmd string, allowed []string) *Locker {
	return &Locker{
		fs:         fs,
		defaultCmd: defaultCmd,
		allowed:    allowed,
		start:      startDetached,
	}
}

// SetStarter replaces how a resolved tool is started.
func (l *Locker) SetStarter(start func(path string) error) {
	l.start = start
}

// Resolve returns the tool to run for a request. An empty request means the
// default tool. Tools that are not allowed or don't exist are NotFound.
func (l *Locker) Resolve(requested string) (string, error) {
	path := requested
	if path == "" {
		path = l.defaultCmd
	}
	if path == "" || (path != l.defaultCmd && !slices.Contains(l.allowed, path)) {
		return "", errors.NotFound("Lock tool",
			"Add it to session.allowed_lock_commands in the fleetd config.")
	}
	if _, err := l.fs.Stat(path); err != nil {
		return "", errors.NotFound("Lock tool", "Check that "+path+" exists.")
	}
	return path, nil
}

// Launch resolves and starts the tool in the background.
func (l *Locker) Launch(requested string) (string, error) {
	path, err := l.Resolve(requested)
	if err != nil {
		return "", err
	}
	if err := l.start(path); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec, "Couldn't start "+path, "")
	}
	return path, nil
}

// startDetached runs path with no stdio and reaps it when it exits.
func startDetached(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
