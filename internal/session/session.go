// Package session keeps the focus-timer flag files read by the screen
// locker: the current timer status and the end of the current break.
package session

import (
	"os"
	"strconv"
	"time"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/spf13/afero"
)

// Session types that record a break end.
const (
	ShortBreak = "shortBreak"
	LongBreak  = "longBreak"
)

// DefaultBreakSeconds is used when a break request carries no duration.
const DefaultBreakSeconds = 300

// Default flag file locations shared with the locker.
const (
	DefaultStatusFile   = "/tmp/pomodoro_status.txt"
	DefaultBreakEndFile = "/tmp/pomodoro_break_end.txt"
)

// Store reads and writes the flag files. Writes replace the whole file and
// the last writer wins.
type Store struct {
	fs           afero.Fs
	statusFile   string
	breakEndFile string
	now          func() time.Time
}

// NewStore returns a Store over fs. Empty paths use the defaults.
func NewStore(fs afero.Fs, statusFile, breakEndFile string) *Store {
	if statusFile == "" {
		statusFile = DefaultStatusFile
	}
	if breakEndFile == "" {
		breakEndFile = DefaultBreakEndFile
	}
	return &Store{fs: fs, statusFile: statusFile, breakEndFile: breakEndFile, now: time.Now}
}

// WriteStatus replaces the status file with status.
func (s *Store) WriteStatus(status string) error {
	if err := afero.WriteFile(s.fs, s.statusFile, []byte(status), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't write the timer status", "Check that "+s.statusFile+" is writable.")
	}
	return nil
}

// Status returns the current status, or "" when no timer is running.
func (s *Store) Status() (string, error) {
	data, err := afero.ReadFile(s.fs, s.statusFile)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec, "Couldn't read the timer status", "")
	}
	return string(data), nil
}

// IsBreak reports whether sessionType records a break end.
func IsBreak(sessionType string) bool {
	return sessionType == ShortBreak || sessionType == LongBreak
}

// RecordBreak writes now+seconds as epoch seconds to the break-end file when
// sessionType is a break. A nil seconds means DefaultBreakSeconds. It
// returns the recorded end and whether anything was written.
func (s *Store) RecordBreak(sessionType string, seconds *int) (int64, bool, error) {
	if !IsBreak(sessionType) {
		return 0, false, nil
	}
	remaining := DefaultBreakSeconds
	if seconds != nil {
		remaining = *seconds
	}
	end := s.now().Unix() + int64(remaining)
	if err := afero.WriteFile(s.fs, s.breakEndFile, []byte(strconv.FormatInt(end, 10)), 0644); err != nil {
		return 0, false, errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't record the break end", "Check that "+s.breakEndFile+" is writable.")
	}
	return end, true, nil
}

// BreakEnd returns the recorded break end, or false when none is recorded.
func (s *Store) BreakEnd() (int64, bool, error) {
	data, err := afero.ReadFile(s.fs, s.breakEndFile)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.WrapWithCode(err, errors.ErrExec, "Couldn't read the break end", "")
	}
	end, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, false, errors.WrapWithCode(err, errors.ErrParse, "Break end file is malformed", "")
	}
	return end, true, nil
}

// Clear removes both flag files. Missing files are not an error.
func (s *Store) Clear() error {
	for _, path := range []string{s.statusFile, s.breakEndFile} {
		if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.WrapWithCode(err, errors.ErrExec, "Couldn't remove "+path, "")
		}
	}
	return nil
}
