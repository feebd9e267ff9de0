// Package server serves a static site directory over HTTP, so that the page
// under verification can be reached at /public/index.html during development.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DefaultAddr matches the address the verification targets by default.
const DefaultAddr = "localhost:8000"

const shutdownTimeout = 5 * time.Second

// Server serves the files of an afero.Fs.
type Server struct {
	fs     afero.Fs
	logger logrus.FieldLogger
}

// New returns a Server for root. Paths are resolved inside root only.
func New(root afero.Fs, logger logrus.FieldLogger) *Server {
	return &Server{fs: root, logger: logger}
}

// Handler returns the router: request logging, panic recovery and the file
// server. A directory is served through its index.html; there are no listings.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)
	router.Use(noCache)

	router.Get("/*", s.serveFile)
	router.Head("/*", s.serveFile)
	return router
}

// serveFile serves the file at the request path. Unlike http.FileServer it
// does not redirect .../index.html, so the page URL stays as requested.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	f, err := s.fs.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if fi.IsDir() {
		index := path.Join(name, "index.html")
		idx, err := s.fs.Open(index)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer idx.Close()
		if fi, err = idx.Stat(); err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		f = idx
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

// noCache keeps the browser from serving a stale page between runs.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("Request served")
	})
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", ln.Addr().String()).Info("Serving static files")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-serverErr
		return err
	case err := <-serverErr:
		return err
	}
}
