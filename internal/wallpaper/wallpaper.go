// Package wallpaper resolves the current desktop background from the
// nitrogen saved-state file.
package wallpaper

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/spf13/afero"
)

// DefaultConfig is nitrogen's saved-state file relative to the home directory.
const DefaultConfig = "~/.config/nitrogen/bg-saved.cfg"

// Image is a resolved wallpaper file.
type Image struct {
	Path        string
	ContentType string
}

// Resolver finds the wallpaper named in a nitrogen config.
type Resolver struct {
	fs         afero.Fs
	configPath string
}

// NewResolver returns a Resolver reading configPath from fs.
func NewResolver(fs afero.Fs, configPath string) *Resolver {
	return &Resolver{fs: fs, configPath: configPath}
}

// Resolve returns the first file= entry that exists on disk.
func (r *Resolver) Resolve() (Image, error) {
	data, err := afero.ReadFile(r.fs, r.configPath)
	if err != nil {
		return Image{}, errors.NotFound("Wallpaper config",
			"Set a background with nitrogen or point wallpaper.nitrogen_config at bg-saved.cfg.")
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		path, ok := strings.CutPrefix(line, "file=")
		if !ok {
			continue
		}
		if exists, _ := afero.Exists(r.fs, path); exists {
			return Image{Path: path, ContentType: ContentType(path)}, nil
		}
	}
	return Image{}, errors.NotFound("Wallpaper", "None of the files in "+r.configPath+" exist.")
}

// Read resolves the wallpaper and returns its bytes.
func (r *Resolver) Read() (Image, []byte, error) {
	img, err := r.Resolve()
	if err != nil {
		return Image{}, nil, err
	}
	data, err := afero.ReadFile(r.fs, img.Path)
	if err != nil {
		return Image{}, nil, errors.WrapWithCode(err, errors.ErrExec, "Couldn't read "+img.Path, "")
	}
	return img, data, nil
}

// ContentType maps a file extension to an image MIME type. Anything that
// isn't PNG is served as JPEG.
func ContentType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
