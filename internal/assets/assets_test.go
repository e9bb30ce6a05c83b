package assets

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/preproc"
)

func TestImages(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/img/cat.png", []byte("cat"), 0o644))
	require.NoError(t, afero.WriteFile(src, "/img/dog.large.jpg", []byte("dog"), 0o644))
	require.NoError(t, afero.WriteFile(src, "/img/unused.gif", []byte("x"), 0o644))

	im, err := NewImages(src, "/img")
	require.NoError(t, err)

	p := preproc.New(preproc.Registry{Command: im})
	out := p.Render("a {|img cat} b {|img dog} c {|img missing}")
	assert.Equal(t, "a /assets/cat.png b /assets/dog.large.jpg c ", out)
	assert.Equal(t, []string{"cat", "dog"}, im.Used())

	dst := afero.NewMemMapFs()
	n, err := im.CopyUsed(dst, "/out/assets")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := afero.ReadFile(dst, "/out/assets/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat", string(data))
	exists, err := afero.Exists(dst, "/out/assets/unused.gif")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, afero.WriteFile(src, "/img/bird.png", []byte("bird"), 0o644))
	require.NoError(t, im.Reload())
	assert.Empty(t, im.Used())
	assert.Equal(t, "/assets/bird.png", im.Handle(Command, "bird"))
}

func TestImagesWithoutFolder(t *testing.T) {
	im, err := NewImages(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, "", im.Handle(Command, "cat"))
	n, err := im.CopyUsed(afero.NewMemMapFs(), "/assets")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImagesMissingFolder(t *testing.T) {
	_, err := NewImages(afero.NewMemMapFs(), "/nope")
	require.Error(t, err)
}
