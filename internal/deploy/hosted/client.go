// Package hosted is a client for hash-diff deploy APIs: the full file list is
// announced as path to SHA-1 digest, and only files whose digests the host
// does not yet have are uploaded.
package hosted

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"path"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/retry"
)

// Options configures a Client.
type Options struct {
	APIURL string
	Token  string
	SiteID string
	// Concurrency bounds parallel uploads.
	Concurrency int
	Policy      retry.Policy
	HTTPClient  *http.Client
	// OnRetry is called before each retried request.
	OnRetry func(op string)
}

// Client talks to the deploy API of one site.
type Client struct {
	apiURL      string
	token       string
	siteID      string
	concurrency int
	policy      retry.Policy
	httpClient  *http.Client
	onRetry     func(op string)
}

// New returns a Client.
func New(opts Options) *Client {
	c := &Client{
		apiURL:      opts.APIURL,
		token:       opts.Token,
		siteID:      opts.SiteID,
		concurrency: opts.Concurrency,
		policy:      opts.Policy,
		httpClient:  opts.HTTPClient,
		onRetry:     opts.OnRetry,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.concurrency <= 0 {
		c.concurrency = 4
	}
	return c
}

// Digest returns the hex SHA-1 the API identifies file contents by.
func Digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Deploy is the API's answer to a deploy request.
type Deploy struct {
	ID       string   `json:"id"`
	Required []string `json:"required"`
}

// Result summarizes a finished deploy.
type Result struct {
	DeployID string
	Uploaded int
}

// Reader returns the contents of a deployed path.
type Reader func(path string) ([]byte, error)

// Deploy announces files (path to digest) and uploads the required ones,
// reading their contents through read.
func (c *Client) Deploy(ctx context.Context, files map[string]string, read Reader) (Result, error) {
	var d Deploy
	err := c.do(ctx, "create_deploy", func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, "/sites/"+c.siteID+"/deploys",
			map[string]any{"files": files}, "application/json", &d)
	})
	if err != nil {
		return Result{}, err
	}
	slog.Info("Deploy created",
		slog.String("deploy_id", d.ID),
		logfields.Count(len(files)),
		slog.Int("required", len(d.Required)))

	byDigest := make(map[string]string, len(files))
	for _, p := range slices.Sorted(maps.Keys(files)) {
		if _, seen := byDigest[files[p]]; !seen {
			byDigest[files[p]] = p
		}
	}

	paths := make([]string, 0, len(d.Required))
	for _, digest := range d.Required {
		p, ok := byDigest[digest]
		if !ok {
			return Result{DeployID: d.ID}, errors.DeployError("host requested an unknown digest").
				WithContext("digest", digest).Fatal().Build()
		}
		paths = append(paths, p)
	}

	var uploaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range paths {
		g.Go(func() error {
			data, err := read(p)
			if err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "read deploy file").
					WithContext("path", p).Build()
			}
			err = c.do(gctx, "upload_file", func(ctx context.Context) error {
				return c.call(ctx, http.MethodPut, "/deploys/"+d.ID+"/files"+p, data, "application/octet-stream", nil)
			})
			if err != nil {
				return err
			}
			uploaded.Add(1)
			slog.Debug("Uploaded file", logfields.Path(p))
			return nil
		})
	}
	err = g.Wait()
	return Result{DeployID: d.ID, Uploaded: int(uploaded.Load())}, err
}

func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return c.policy.Do(ctx, op, fn, func(int, error) {
		if c.onRetry != nil {
			c.onRetry(op)
		}
	})
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any, contentType string) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, errors.ConfigError("invalid deploy api url").WithCause(err).Build()
	}
	u.Path = path.Join(u.Path, endpoint)
	q := u.Query()
	q.Set("access_token", c.token)
	u.RawQuery = q.Encode()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "encode request").Build()
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "create request").Build()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "seriesgen/1.0")
	return req, nil
}

// call performs one request. Connection failures, 429 and 5xx responses are
// transient; other 4xx responses are not.
func (c *Client) call(ctx context.Context, method, endpoint string, body any, contentType string, result any) error {
	req, err := c.newRequest(ctx, method, endpoint, body, contentType)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapError(err, errors.CategoryNetwork, "deploy api request").
			WithContext("endpoint", endpoint).Retryable().Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b := errors.NewError(errors.CategoryDeploy, fmt.Sprintf("deploy api error: %s", resp.Status)).
			WithContext("endpoint", endpoint).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return b.Retryable().Build()
		}
		return b.Fatal().Build()
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return errors.WrapError(err, errors.CategoryDeploy, "decode deploy api response").Build()
		}
	}
	return nil
}
