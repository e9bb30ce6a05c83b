// Package server serves a rendered site for local preview. It exposes rebuild
// endpoints, live reload, single page rendering and metrics next to the
// site's files.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
	"git.home.luguber.info/inful/seriesgen/internal/render"
	smw "git.home.luguber.info/inful/seriesgen/internal/server/middleware"
)

const shutdownTimeout = 5 * time.Second

// Options wires a Server.
type Options struct {
	// Site is served read-only. Nil serves no files.
	Site afero.Fs
	// Regen re-materializes the site from the trees already built.
	Regen func(ctx context.Context) error
	// Reload refetches content and then regenerates.
	Reload func(ctx context.Context) error
	// Tree writes a text dump of the current trees.
	Tree func(w io.Writer) error
	// Pages enables /p/<id> and /pi/<id>.
	Pages *Pages
	// LiveReload enables /livereload and script injection into HTML.
	LiveReload bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the preview HTTP server.
type Server struct {
	opts   Options
	logger *slog.Logger
	errors *errors.HTTPErrorAdapter
	hub    *LiveReloadHub

	// rebuilds hold the write lock, requests the read lock
	mu sync.RWMutex

	handler http.Handler
}

// New builds the handler tree for opts.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:   opts,
		logger: logger,
		errors: errors.NewHTTPErrorAdapter(logger),
	}
	if opts.LiveReload {
		s.hub = NewLiveReloadHub()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleFile)
	if opts.Regen != nil {
		mux.HandleFunc("GET /regen", s.special(opts.Regen))
	}
	if opts.Reload != nil {
		mux.HandleFunc("GET /reload", s.special(opts.Reload))
	}
	if opts.Tree != nil {
		mux.HandleFunc("GET /tree", s.handleTree)
	}
	if opts.Pages != nil {
		mux.HandleFunc("GET /p/{id...}", s.handlePage(render.ModeFull))
		mux.HandleFunc("GET /pi/{id...}", s.handlePage(render.ModeInner))
	}
	if s.hub != nil {
		mux.Handle("GET /livereload", s.hub)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	s.handler = smw.Chain(logger, s.errors)(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Rebuild runs fn while no request is being served and notifies live reload
// clients when it succeeded.
func (s *Server) Rebuild(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	err := fn(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Notify()
	return nil
}

// Notify tells live reload clients the site changed.
func (s *Server) Notify() {
	if s.hub != nil {
		s.hub.Broadcast(uuid.NewString())
	}
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "listen").
			WithContext("addr", addr).Fatal().Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()
	s.logger.Info("Preview server listening", logfields.URL("http://"+ln.Addr().String()+"/"))

	select {
	case err := <-done:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapError(err, errors.CategoryNetwork, "serve").Build()
		}
		return nil
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "shutdown").Build()
	}
	s.logger.Info("Preview server stopped")
	return nil
}

func (s *Server) special(fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Rebuild(r.Context(), fn); err != nil {
			s.errors.WriteErrorResponse(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	}
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.opts.Tree(w); err != nil {
		s.logger.Warn("Tree dump failed", logfields.Error(err))
	}
}

func (s *Server) handlePage(mode render.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		page, err := s.opts.Pages.Render(r.Context(), r.PathValue("id"), mode)
		s.mu.RUnlock()
		if err != nil {
			s.errors.WriteErrorResponse(w, r, err)
			return
		}
		s.writeHTML(w, page, mode == render.ModeFull)
	}
}

func (s *Server) writeHTML(w http.ResponseWriter, page string, inject bool) {
	if inject && s.hub != nil {
		page = injectScript(page)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}
