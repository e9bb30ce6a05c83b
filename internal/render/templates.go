package render

import (
	"bytes"
	"embed"
	"io/fs"
	"path"
	"sync"
	"text/template"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

// Template names used by the pipeline and the blog.
const (
	TemplatePage         = "page"
	TemplateChapterInner = "chapter-inner"
	TemplateDiscussion   = "disqus"
	TemplateAnalytics    = "google-analytics"
	TemplateSocial       = "social-media"
	TemplateBlogPost     = "blog-post"
)

// TemplateFiles is the fixed name to file table.
var TemplateFiles = map[string]string{
	TemplatePage:         "page.html",
	TemplateChapterInner: "chapter-inner.html",
	TemplateDiscussion:   "disqus.html",
	TemplateAnalytics:    "google-analytics.html",
	TemplateSocial:       "social-media.html",
	TemplateBlogPost:     "blog-post.html",
}

// TemplateStore provides named page shells.
type TemplateStore interface {
	// Execute renders the named template with data.
	Execute(name string, data any) (string, error)
	// Raw returns the named template's source unrendered.
	Raw(name string) (string, error)
}

type loadedTemplate struct {
	source string
	tpl    *template.Template
}

// FileTemplates loads the template table from a directory and can reload it
// on demand.
type FileTemplates struct {
	fs    afero.Fs
	dir   string
	files map[string]string

	mu     sync.RWMutex
	loaded map[string]loadedTemplate
}

var _ TemplateStore = (*FileTemplates)(nil)

// LoadTemplates reads every template in files from dir. A missing or
// unparsable file is a fatal template error.
func LoadTemplates(fsys afero.Fs, dir string, files map[string]string) (*FileTemplates, error) {
	if files == nil {
		files = TemplateFiles
	}
	t := &FileTemplates{fs: fsys, dir: dir, files: files}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload rereads all files. On failure the previous set stays active.
func (t *FileTemplates) Reload() error {
	loaded := make(map[string]loadedTemplate, len(t.files))
	for name, file := range t.files {
		p := path.Join(t.dir, file)
		data, err := afero.ReadFile(t.fs, p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryTemplate, "template file missing").
				Fatal().
				WithContext("template", name).
				WithContext("path", p).
				Build()
		}
		tpl, err := template.New(name).Parse(string(data))
		if err != nil {
			return errors.WrapError(err, errors.CategoryTemplate, "parse template").
				Fatal().
				WithContext("template", name).
				Build()
		}
		loaded[name] = loadedTemplate{source: string(data), tpl: tpl}
	}
	t.mu.Lock()
	t.loaded = loaded
	t.mu.Unlock()
	return nil
}

// Dir is the directory templates are read from.
func (t *FileTemplates) Dir() string { return t.dir }

func (t *FileTemplates) lookup(name string) (loadedTemplate, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lt, ok := t.loaded[name]
	if !ok {
		return loadedTemplate{}, errors.TemplateError("template not found").WithContext("template", name).Build()
	}
	return lt, nil
}

// Execute implements TemplateStore.
func (t *FileTemplates) Execute(name string, data any) (string, error) {
	lt, err := t.lookup(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := lt.tpl.Execute(&buf, data); err != nil {
		return "", errors.WrapError(err, errors.CategoryTemplate, "render template").
			WithContext("template", name).Build()
	}
	return buf.String(), nil
}

// Raw implements TemplateStore.
func (t *FileTemplates) Raw(name string) (string, error) {
	lt, err := t.lookup(name)
	if err != nil {
		return "", err
	}
	return lt.source, nil
}

//go:embed defaults/*.html
var defaultTemplates embed.FS

// WriteDefaultTemplates writes the bundled starter templates into dir,
// skipping files that exist unless force is set.
func WriteDefaultTemplates(fsys afero.Fs, dir string, force bool) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create template directory").Build()
	}
	var written []string
	for _, file := range TemplateFiles {
		dst := path.Join(dir, file)
		if !force {
			if ok, _ := afero.Exists(fsys, dst); ok {
				continue
			}
		}
		data, err := fs.ReadFile(defaultTemplates, "defaults/"+file)
		if err != nil {
			return written, errors.WrapError(err, errors.CategoryInternal, "read bundled template").Build()
		}
		if err := afero.WriteFile(fsys, dst, data, 0o644); err != nil {
			return written, errors.WrapError(err, errors.CategoryFileSystem, "write template").
				WithContext("path", dst).Build()
		}
		written = append(written, dst)
	}
	return written, nil
}
