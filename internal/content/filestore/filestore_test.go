package filestore

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/content"
)

func writeFile(t *testing.T, fsys afero.Fs, name, data string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, name, []byte(data), 0o644))
}

func TestOpenLoadsGroupsAndRecords(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/content/tales/group.yaml", "name: Tales Of Old\nhierarchy: [volume, chapter]\nsalt: v1\n")
	writeFile(t, fsys, "/content/tales/v2/c1.md", "---\ntitle: Start\nvolume: 2\nchapter: \"1\"\nuuid: u-1\n---\nhello\n")
	writeFile(t, fsys, "/content/tales/about.md", "---\npath: about\n---\nabout us\n")
	writeFile(t, fsys, "/content/tales/notes.txt", "ignored")
	writeFile(t, fsys, "/content/stray/readme.md", "no group file")

	s, err := Open(fsys, "/content")
	require.NoError(t, err)

	ctx := context.Background()
	groups, err := s.Groups(ctx, content.Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "tales", g.ID)
	assert.Equal(t, "tales-of-old", g.PathPart)
	assert.Equal(t, []string{"volume", "chapter"}, g.Hierarchy)
	assert.Equal(t, "v1", g.Salt)

	records, err := s.Records(ctx, []string{"tales"}, content.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	about, err := s.Record(ctx, "tales/about")
	require.NoError(t, err)
	assert.Equal(t, "about us\n", about.Body)
	assert.NotEmpty(t, about.UUID)

	start, err := s.Record(ctx, "tales/v2/c1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", start.UUID)
	assert.Equal(t, 2, start.Meta["volume"])
}

func TestFingerprintIdentityTracksEdits(t *testing.T) {
	a, err := parseRecord([]byte("---\ntitle: A\n---\nbody\n"), "a")
	require.NoError(t, err)
	b, err := parseRecord([]byte("---\ntitle: A\n---\nbody changed\n"), "a")
	require.NoError(t, err)
	c, err := parseRecord([]byte("---\ntitle: A\n---\nbody\n"), "other")
	require.NoError(t, err)

	assert.NotEqual(t, a.UUID, b.UUID)
	assert.Equal(t, a.UUID, c.UUID)
}

func TestSplitFrontmatter(t *testing.T) {
	front, body, err := splitFrontmatter([]byte("no frontmatter"))
	require.NoError(t, err)
	assert.Nil(t, front)
	assert.Equal(t, "no frontmatter", string(body))

	front, body, err = splitFrontmatter([]byte("---\r\na: 1\r\n---\r\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(front))
	assert.Equal(t, "body", string(body))

	_, body, err = splitFrontmatter([]byte("---\n---\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))

	_, _, err = splitFrontmatter([]byte("---\na: 1\nbody"))
	assert.Error(t, err)
}
