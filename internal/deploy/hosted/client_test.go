package hosted

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/seriesgen/internal/config"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/retry"
)

type fakeAPI struct {
	mu        sync.Mutex
	announced map[string]string
	uploads   map[string]string
	have      map[string]bool
	failPuts  int
	tokens    []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sites/site-1/deploys", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tokens = append(f.tokens, r.URL.Query().Get("access_token"))
		var body struct {
			Files map[string]string `json:"files"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.announced = body.Files
		var required []string
		seen := map[string]bool{}
		for _, digest := range body.Files {
			if !f.have[digest] && !seen[digest] {
				required = append(required, digest)
				seen[digest] = true
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "dep-1", "required": required})
	})
	mux.HandleFunc("PUT /api/v1/deploys/dep-1/files/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failPuts > 0 {
			f.failPuts--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		f.uploads[strings.TrimPrefix(r.URL.Path, "/api/v1/deploys/dep-1/files")] = string(data)
	})
	return mux
}

func newClient(url string, retries int) *Client {
	return New(Options{
		APIURL:      url + "/api/v1",
		Token:       "secret",
		SiteID:      "site-1",
		Concurrency: 2,
		Policy:      retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, retries),
	})
}

func TestDeployUploadsRequiredOnly(t *testing.T) {
	contents := map[string]string{
		"/index.html":          "root",
		"/one/index.html":      "one",
		"/static/site.css":     "css",
		"/one/copy/index.html": "one",
	}
	api := &fakeAPI{uploads: map[string]string{}, have: map[string]bool{Digest([]byte("css")): true}}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	files := map[string]string{}
	for p, c := range contents {
		files[p] = Digest([]byte(c))
	}
	res, err := newClient(srv.URL, 0).Deploy(context.Background(), files, func(p string) ([]byte, error) {
		return []byte(contents[p]), nil
	})
	require.NoError(t, err)

	assert.Equal(t, "dep-1", res.DeployID)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, files, api.announced)
	assert.Equal(t, map[string]string{"/index.html": "root", "/one/copy/index.html": "one"}, api.uploads,
		"identical contents upload once under the first path")
	assert.Equal(t, []string{"secret"}, api.tokens)
}

func TestDeployRetriesTransientFailures(t *testing.T) {
	api := &fakeAPI{uploads: map[string]string{}, have: map[string]bool{}, failPuts: 2}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	retries := 0
	c := newClient(srv.URL, 3)
	c.onRetry = func(op string) {
		assert.Equal(t, "upload_file", op)
		retries++
	}
	res, err := c.Deploy(context.Background(), map[string]string{"/a.html": Digest([]byte("a"))},
		func(string) ([]byte, error) { return []byte("a"), nil })
	require.NoError(t, err)
	assert.Equal(t, 1, res.Uploaded)
	assert.Equal(t, 2, retries)
}

func TestDeployGivesUp(t *testing.T) {
	api := &fakeAPI{uploads: map[string]string{}, have: map[string]bool{}, failPuts: 10}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newClient(srv.URL, 1).Deploy(context.Background(), map[string]string{"/a.html": Digest([]byte("a"))},
		func(string) ([]byte, error) { return []byte("a"), nil })
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDeploy))
	assert.True(t, errors.IsTransient(err))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, 3).Deploy(context.Background(), map[string]string{}, nil)
	require.Error(t, err)
	assert.False(t, errors.IsTransient(err))
	assert.Equal(t, 1, calls)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, ce.Context()["status"])
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", Digest([]byte("abc")))
}
