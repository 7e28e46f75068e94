// Package server exposes the rendering pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shapefill/shapefill/font"
	"github.com/shapefill/shapefill/internal/fetch"
	"github.com/shapefill/shapefill/internal/store"
)

// defaultAdmitTimeout bounds how long a request waits for a render slot
// before being shed with 503.
const defaultAdmitTimeout = 10 * time.Second

// FontRegistry resolves local font names. Satisfied by *fontdir.Registry.
type FontRegistry interface {
	Lookup(name string) (*font.Source, error)
}

// Options configures a Server.
type Options struct {
	// BaseURL is the public prefix for returned image links. Empty means
	// the link is derived from each request's Host header.
	BaseURL string

	// MaxTextWords caps the word count accepted per request.
	MaxTextWords int

	// UpscaleWidth is the working width for shape fitting.
	UpscaleWidth int

	// MaxConcurrent bounds in-flight renders.
	MaxConcurrent int64

	// AdmitTimeout is how long a request may wait for a render slot.
	// Zero means defaultAdmitTimeout.
	AdmitTimeout time.Duration

	// Fonts optionally resolves font names; nil disables name lookup.
	Fonts FontRegistry
}

// Server handles the rendering API.
type Server struct {
	fetcher *fetch.Client
	store   *store.Store
	fonts   FontRegistry
	sem     *semaphore.Weighted
	log     *zap.Logger

	baseURL      string
	maxTextWords int
	upscaleWidth int
	admitTimeout time.Duration
}

// New assembles a Server from its dependencies.
func New(fetcher *fetch.Client, st *store.Store, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.AdmitTimeout <= 0 {
		opts.AdmitTimeout = defaultAdmitTimeout
	}
	return &Server{
		fetcher:      fetcher,
		store:        st,
		fonts:        opts.Fonts,
		sem:          semaphore.NewWeighted(opts.MaxConcurrent),
		log:          log,
		baseURL:      opts.BaseURL,
		maxTextWords: opts.MaxTextWords,
		upscaleWidth: opts.UpscaleWidth,
		admitTimeout: opts.AdmitTimeout,
	}
}

// Handler returns the HTTP handler with logging and recovery applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /fit-text", s.handleFitText)
	mux.HandleFunc("GET /fit-text", s.handleGetImage)
	mux.HandleFunc("POST /text-on-path", s.handleTextOnPath)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.recover(s.logRequests(mux))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// admit reserves a render slot, waiting up to the admission timeout.
func (s *Server) admit(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.admitTimeout)
	defer cancel()
	return s.sem.Acquire(ctx, 1) == nil
}

// imageLink builds the public URL for a stored render name.
func (s *Server) imageLink(r *http.Request, name string) string {
	base := s.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/fit-text?name=" + name
}
