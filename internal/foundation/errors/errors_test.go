package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	err := TemplateError("template file missing").WithContext("template", "page").Build()

	assert.Equal(t, CategoryTemplate, err.Category())
	assert.True(t, err.IsFatal())
	assert.False(t, err.CanRetry())
	name, ok := err.Context().GetString("template")
	require.True(t, ok)
	assert.Equal(t, "page", name)
	assert.Equal(t, "[template:fatal] template file missing", err.Error())
}

func TestAsClassifiedThroughWrapping(t *testing.T) {
	base := DeployError("upload failed").WithCause(stderrors.New("connection reset")).Build()
	wrapped := fmt.Errorf("generate: %w", base)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryDeploy, got.Category())
	assert.True(t, IsTransient(wrapped))
	assert.True(t, HasCategory(wrapped, CategoryDeploy))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	assert.ErrorContains(t, wrapped, "connection reset")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundError("no page").Build()))
	assert.False(t, IsNotFound(ConfigError("bad").Build()))
	assert.False(t, IsNotFound(nil))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	orig := ContentError("fetch failed").WithContext("group", "a").Build()
	derived := orig.WithContext("record", "r1")

	_, ok := orig.Context().Get("record")
	assert.False(t, ok)
	_, ok = derived.Context().Get("group")
	assert.True(t, ok)
}

func TestCLIExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":        {nil, 0},
		"plain":      {stderrors.New("x"), 1},
		"config":     {ConfigError("conflict").Build(), 7},
		"validation": {ValidationError("bad").Build(), 2},
		"content":    {ContentError("down").Build(), 8},
		"template":   {TemplateError("missing").Build(), 11},
		"deploy":     {DeployError("rejected").Build(), 9},
		"internal":   {InternalError("bug").Build(), 10},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.ExitCodeFor(tc.err))
		})
	}
}

func TestCLIFormatting(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	assert.Equal(t, "Error: url prefix conflict", quiet.FormatError(ConfigError("url prefix conflict").Build()))
	assert.Contains(t, quiet.FormatError(InternalError("bug").Build()), "use -v")

	loud := NewCLIErrorAdapter(true, nil)
	assert.Contains(t, loud.FormatError(InternalError("bug").Build()), "[internal:fatal] bug")
}

func TestHTTPAdapter(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	assert.Equal(t, http.StatusNotFound, a.StatusCodeFor(NotFoundError("no such page").Build()))
	assert.Equal(t, http.StatusBadGateway, a.StatusCodeFor(ContentError("store down").Build()))
	assert.Equal(t, http.StatusInternalServerError, a.StatusCodeFor(stderrors.New("boom")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p/missing", nil)
	a.WriteErrorResponse(rec, req, NotFoundError("no such page").WithContext("id", "missing").Build())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `"code":"not_found"`), body)
	assert.Contains(t, body, `"id":"missing"`)
}
