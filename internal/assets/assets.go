// Package assets resolves image references in content bodies and copies the
// images a build actually used into the output.
package assets

import (
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/preproc"
)

// Command is the markup command the resolver is registered under.
const Command = "img"

// URLPrefix is where copied images are served from.
const URLPrefix = "/assets/"

// Images maps image keys to files in a folder. The key of a file is its name
// up to the first dot.
type Images struct {
	fs  afero.Fs
	dir string

	mu     sync.Mutex
	images map[string]string
	used   map[string]bool
}

var _ preproc.Handler = (*Images)(nil)

// NewImages scans dir. An empty dir yields a resolver that knows no images.
func NewImages(fsys afero.Fs, dir string) (*Images, error) {
	im := &Images{fs: fsys, dir: dir}
	if err := im.Reload(); err != nil {
		return nil, err
	}
	return im, nil
}

// Reload rescans the folder and forgets which images were used.
func (im *Images) Reload() error {
	images := map[string]string{}
	if im.dir != "" {
		entries, err := afero.ReadDir(im.fs, im.dir)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read image folder").
				WithContext("path", im.dir).Build()
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			key, _, _ := strings.Cut(e.Name(), ".")
			images[key] = e.Name()
		}
	}
	im.mu.Lock()
	im.images = images
	im.used = map[string]bool{}
	im.mu.Unlock()
	return nil
}

// Handle resolves key to its URL and records it as used. Unknown keys
// resolve to "".
func (im *Images) Handle(_ string, key string) string {
	im.mu.Lock()
	defer im.mu.Unlock()
	file, ok := im.images[key]
	if !ok {
		slog.Debug("Unknown image reference", logfields.Name(key))
		return ""
	}
	im.used[key] = true
	return URLPrefix + file
}

// Used returns the sorted keys referenced since the last reload.
func (im *Images) Used() []string {
	im.mu.Lock()
	defer im.mu.Unlock()
	keys := make([]string, 0, len(im.used))
	for k := range im.used {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CopyUsed copies the used images into dir on dst.
func (im *Images) CopyUsed(dst afero.Fs, dir string) (int, error) {
	im.mu.Lock()
	var files []string
	for key := range im.used {
		files = append(files, im.images[key])
	}
	im.mu.Unlock()
	if len(files) == 0 {
		return 0, nil
	}
	slices.Sort(files)

	if err := dst.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.WrapError(err, errors.CategoryFileSystem, "create asset directory").Build()
	}
	for _, file := range files {
		data, err := afero.ReadFile(im.fs, path.Join(im.dir, file))
		if err != nil {
			return 0, errors.WrapError(err, errors.CategoryFileSystem, "read image").
				WithContext("path", file).Build()
		}
		if err := afero.WriteFile(dst, path.Join(dir, file), data, fs.FileMode(0o644)); err != nil {
			return 0, errors.WrapError(err, errors.CategoryFileSystem, "write image").
				WithContext("path", file).Build()
		}
	}
	return len(files), nil
}
