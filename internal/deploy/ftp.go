package deploy

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/cache"
	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/incremental"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/pagetree"
	"git.home.luguber.info/inful/seriesgen/internal/retry"
	"git.home.luguber.info/inful/seriesgen/internal/site"
)

// KeyFTPLastRun stores the fingerprints of the last FTP upload.
const KeyFTPLastRun = "ftp_lastrun"

// FTPConn is the part of an FTP session the target uses.
type FTPConn interface {
	List(path string) ([]*ftp.Entry, error)
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	RemoveDirRecur(path string) error
	Delete(path string) error
	Quit() error
}

// FTPDialer opens an authenticated session.
type FTPDialer func(ctx context.Context) (FTPConn, error)

// DialFTP returns a dialer for host that logs in as user.
func DialFTP(host, user, password string, timeout time.Duration) FTPDialer {
	return func(ctx context.Context) (FTPConn, error) {
		conn, err := ftp.Dial(host, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryNetwork, "connect to ftp server").
				WithContext("host", host).Retryable().Build()
		}
		if err := conn.Login(user, password); err != nil {
			_ = conn.Quit()
			return nil, errors.WrapError(err, errors.CategoryDeploy, "ftp login").
				WithContext("host", host).WithRetry(errors.RetryUserAction).Build()
		}
		return conn, nil
	}
}

// FTP materializes in memory and mirrors the result to an FTP server.
type FTP struct {
	dial    FTPDialer
	cache   cache.Cache
	mat     Materializer
	policy  retry.Policy
	rebuild bool
}

// NewFTP returns an FTP target.
func NewFTP(dial FTPDialer, c cache.Cache, m Materializer, policy retry.Policy) *FTP {
	return &FTP{dial: dial, cache: c, mat: m, policy: policy}
}

func (*FTP) Name() string { return "ftp" }

func (t *FTP) PresentGroups(ctx context.Context) (*incremental.Fingerprints, error) {
	fp, err := loadFingerprints(ctx, t.cache, KeyFTPLastRun)
	if err != nil {
		return nil, err
	}
	t.rebuild = fp != nil && len(*fp) > 0
	return fp, nil
}

func (t *FTP) Generate(ctx context.Context, trees []*pagetree.Node, groups []content.Group) (site.Stats, error) {
	mem := afero.NewMemMapFs()
	stats, err := t.mat.write(ctx, mem, trees, groups, t.rebuild)
	if err != nil {
		return stats, err
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return stats, err
	}
	defer func() { _ = conn.Quit() }()

	base := path.Join("/", t.mat.Options.Dir)
	if err := t.makeDir(conn, base); err != nil {
		return stats, err
	}
	if err := t.removeStale(conn, base, trees, groups); err != nil {
		return stats, err
	}

	uploaded := 0
	err = afero.Walk(mem, base, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return t.makeDir(conn, p)
		}
		data, err := afero.ReadFile(mem, p)
		if err != nil {
			return err
		}
		err = t.policy.Do(ctx, "ftp_upload", func(context.Context) error {
			if err := conn.Stor(p, bytes.NewReader(data)); err != nil {
				return errors.WrapError(err, errors.CategoryNetwork, "ftp upload").
					WithContext("path", p).Retryable().Build()
			}
			return nil
		}, func(int, error) { t.mat.recorder().IncRetry("ftp_upload") })
		if err != nil {
			return err
		}
		uploaded++
		return nil
	})
	t.mat.recorder().AddDeployUploads(t.Name(), uploaded)
	if err != nil {
		return stats, errors.WrapError(err, errors.CategoryDeploy, "mirror site to ftp").Build()
	}
	slog.Info("Uploaded site", logfields.Target(t.Name()), logfields.Count(uploaded))
	return stats, nil
}

// makeDir creates p and tolerates it already existing.
func (t *FTP) makeDir(conn FTPConn, p string) error {
	if p == "/" {
		return nil
	}
	err := conn.MakeDir(p)
	var te *textproto.Error
	if err == nil || (stderrors.As(err, &te) && te.Code == ftp.StatusFileUnavailable) {
		return nil
	}
	return errors.WrapError(err, errors.CategoryDeploy, "create ftp directory").
		WithContext("path", p).Build()
}

func (t *FTP) removeStale(conn FTPConn, base string, trees []*pagetree.Node, groups []content.Group) error {
	listing, err := conn.List(base)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "list ftp directory").
			WithContext("path", base).Retryable().Build()
	}
	var entries []site.Entry
	for _, e := range listing {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		// Some servers list full paths.
		name := path.Base(strings.TrimSuffix(e.Name, "/"))
		entries = append(entries, site.Entry{Name: name, Dir: e.Type == ftp.EntryTypeFolder})
	}
	opts := t.mat.Options
	opts.KeepStatic = t.rebuild
	for _, name := range site.Stale(entries, trees, groups, opts) {
		p := path.Join(base, name)
		var err error
		if isDir(entries, name) {
			err = conn.RemoveDirRecur(p)
		} else {
			err = conn.Delete(p)
		}
		if err != nil {
			return errors.WrapError(err, errors.CategoryDeploy, "remove stale ftp entry").
				WithContext("path", p).Build()
		}
	}
	return nil
}

func isDir(entries []site.Entry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return e.Dir
		}
	}
	return false
}

func (t *FTP) Finalize(ctx context.Context, fp incremental.Fingerprints) error {
	return storeFingerprints(ctx, t.cache, KeyFTPLastRun, fp)
}
