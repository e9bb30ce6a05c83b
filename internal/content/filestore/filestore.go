// Package filestore loads groups and records from a directory tree so sites
// can be built without a database.
//
// Each top-level directory holding a group.yaml is a group. Every markdown
// file beneath it is a record whose YAML frontmatter is its metadata.
package filestore

import (
	"bytes"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/inful/mdfp"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

const groupFile = "group.yaml"

// Frontmatter keys with special meaning.
const (
	keyID   = "id"
	keyUUID = "uuid"
)

type groupFileDoc struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Hierarchy       []string `yaml:"hierarchy"`
	HeaderURL       string   `yaml:"header_url"`
	FixedNavEntries *bool    `yaml:"fixed_nav_entries"`
	Salt            string   `yaml:"salt"`
	Status          int      `yaml:"status"`
}

// Store is a content.Store over a directory. Contents are read on Open and
// again on Reload.
type Store struct {
	fs   afero.Fs
	root string
	*content.MemoryStore
}

var _ content.Store = (*Store)(nil)

// Open loads root from fsys.
func Open(fsys afero.Fs, root string) (*Store, error) {
	s := &Store{fs: fsys, root: root, MemoryStore: content.NewMemoryStore(nil, nil)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rereads the directory.
func (s *Store) Reload() error {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return errors.WrapError(err, errors.CategoryContent, "read content directory").
			WithContext("path", s.root).Build()
	}
	var (
		groups  []content.Group
		records []content.Record
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := path.Join(s.root, e.Name())
		g, ok, err := s.loadGroup(dir, e.Name())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		groupRecords, err := s.loadRecords(dir, g.ID)
		if err != nil {
			return err
		}
		groups = append(groups, g)
		records = append(records, groupRecords...)
	}
	s.Replace(groups, records)
	slog.Debug("Loaded local content",
		logfields.Backend("filesystem"),
		logfields.Path(s.root),
		logfields.Count(len(records)))
	return nil
}

func (s *Store) loadGroup(dir, dirName string) (content.Group, bool, error) {
	data, err := afero.ReadFile(s.fs, path.Join(dir, groupFile))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return content.Group{}, false, nil
		}
		return content.Group{}, false, errors.WrapError(err, errors.CategoryContent, "read group file").
			WithContext("path", dir).Build()
	}
	var doc groupFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return content.Group{}, false, errors.WrapError(err, errors.CategoryValidation, "parse group file").
			WithContext("path", dir).Build()
	}
	if doc.ID == "" {
		doc.ID = dirName
	}
	if doc.Name == "" {
		doc.Name = dirName
	}
	g := content.NewGroup(doc.ID, doc.Name)
	g.Hierarchy = doc.Hierarchy
	g.HeaderURL = doc.HeaderURL
	g.Salt = doc.Salt
	g.Status = doc.Status
	if doc.FixedNavEntries != nil {
		g.FixedNavEntries = *doc.FixedNavEntries
	}
	return g, true, nil
}

func (s *Store) loadRecords(dir, groupID string) ([]content.Record, error) {
	var out []content.Record
	err := afero.Walk(s.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		data, err := afero.ReadFile(s.fs, p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, s.root), "/")
		r, err := parseRecord(data, strings.TrimSuffix(rel, ".md"))
		if err != nil {
			return errors.WrapError(err, errors.CategoryValidation, "parse record").
				WithContext("path", p).Build()
		}
		r.GroupID = groupID
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// parseRecord reads frontmatter and body. Records without an explicit uuid
// are identified by their content fingerprint, so any edit marks the group
// as changed.
func parseRecord(data []byte, fallbackID string) (content.Record, error) {
	front, body, err := splitFrontmatter(data)
	if err != nil {
		return content.Record{}, err
	}
	meta := map[string]any{}
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &meta); err != nil {
			return content.Record{}, err
		}
	}
	r := content.Record{Meta: content.Meta(meta), Body: string(body)}

	r.ID = r.Meta.String(keyID)
	if r.ID == "" {
		r.ID = fallbackID
	}
	r.UUID = r.Meta.String(keyUUID)
	if r.UUID == "" {
		r.UUID = r.Meta.String(mdfp.FingerprintField)
	}
	if r.UUID == "" {
		r.UUID = mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(front), "\n"), string(body))
	}
	return r, nil
}

var (
	delimiter = []byte("---\n")
	closing   = []byte("\n---\n")
)

func splitFrontmatter(data []byte) (front, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, delimiter) {
		return nil, data, nil
	}
	rest := data[len(delimiter):]
	if bytes.HasPrefix(rest, delimiter) {
		return nil, rest[len(delimiter):], nil
	}
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-len("---")], nil, nil
		}
		return nil, nil, errors.ValidationError("frontmatter missing closing delimiter").Build()
	}
	return rest[:idx+1], rest[idx+len(closing):], nil
}
