// Package server exposes lineage graphs over HTTP. It is a thin shim over
// pkg/lineage: one route per traversal policy, with DOT or SVG output and
// a pluggable cache in front of Graphviz.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/tracetower/pkg/cache"
	tterrors "github.com/matzehuels/tracetower/pkg/errors"
	"github.com/matzehuels/tracetower/pkg/lineage"
	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// Output formats accepted by the graph endpoints.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Server serves lineage graphs from a metadata store.
type Server struct {
	store       store.Store
	cache       cache.Cache
	logger      *log.Logger
	urlTemplate string
	cacheTTL    time.Duration
}

// Options configures a Server.
type Options struct {
	// URLTemplate is applied to every rendered graph. See lineage.ParseURLTemplate.
	URLTemplate string
	// CacheTTL bounds the lifetime of cached SVG renders. Zero means no expiry.
	CacheTTL time.Duration
}

// New creates a Server. A nil cache disables render caching; a nil logger
// falls back to the default logger.
func New(s store.Store, c cache.Cache, logger *log.Logger, opts Options) *Server {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:       s,
		cache:       c,
		logger:      logger,
		urlTemplate: opts.URLTemplate,
		cacheTTL:    opts.CacheTTL,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/api/v1/graph/lineage/{artifact}", s.handleLineage)
	r.Get("/api/v1/graph/io/{execution}", s.handleIO)

	return r
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "artifact"), 10, 64)
	if err != nil {
		s.writeError(w, r, tterrors.New(tterrors.ErrCodeInvalidInput, "artifact ID must be an integer"))
		return
	}
	s.serveGraph(w, r, lineage.ArtifactNodeID(metadata.ArtifactID(id)), lineage.PolicyLineage)
}

func (s *Server) handleIO(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "execution"), 10, 64)
	if err != nil {
		s.writeError(w, r, tterrors.New(tterrors.ErrCodeInvalidInput, "execution ID must be an integer"))
		return
	}
	s.serveGraph(w, r, lineage.ExecutionNodeID(metadata.ExecutionID(id)), lineage.PolicyIO)
}

func (s *Server) serveGraph(w http.ResponseWriter, r *http.Request, origin lineage.NodeID, policy lineage.Policy) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatDOT
	}
	if format != FormatDOT && format != FormatSVG {
		s.writeError(w, r, tterrors.New(tterrors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", format))
		return
	}

	graph, err := lineage.Build(r.Context(), s.store, origin, policy, lineage.Options{
		URLTemplate: s.urlTemplate,
	})
	if err != nil {
		s.writeError(w, r, classify(err))
		return
	}

	dot, err := graph.DOT()
	if err != nil {
		s.writeError(w, r, classify(err))
		return
	}

	if format == FormatDOT {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		_, _ = w.Write([]byte(dot))
		return
	}

	key := "svg:" + cache.Hash([]byte(dot))
	if svg, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
		return
	}

	svg, err := lineage.RenderSVG(r.Context(), dot)
	if err != nil {
		s.writeError(w, r, tterrors.Wrap(tterrors.ErrCodeRender, err, "render graph"))
		return
	}
	if err := s.cache.Set(r.Context(), key, svg, s.cacheTTL); err != nil {
		// Cache failures degrade to uncached rendering.
		s.logger.Warn("cache set failed", "key", key, "err", err)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

// classify maps library errors to coded errors for the HTTP envelope.
func classify(err error) *tterrors.Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return tterrors.Wrap(tterrors.ErrCodeNotFound, err, "%s", err.Error())
	case errors.Is(err, store.ErrInvalidQuery):
		return tterrors.Wrap(tterrors.ErrCodeInvalidInput, err, "%s", err.Error())
	default:
		return tterrors.Wrap(tterrors.ErrCodeStore, err, "query metadata store")
	}
}

type errorBody struct {
	Error struct {
		Code    tterrors.Code `json:"code"`
		Message string        `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err *tterrors.Error) {
	status := http.StatusInternalServerError
	switch err.Code {
	case tterrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case tterrors.ErrCodeInvalidInput, tterrors.ErrCodeTemplate:
		status = http.StatusBadRequest
	case tterrors.ErrCodeStore:
		status = http.StatusBadGateway
	}

	s.logger.Error("request failed",
		"path", r.URL.Path,
		"code", err.Code,
		"err", err)

	var body errorBody
	body.Error.Code = err.Code
	body.Error.Message = tterrors.UserMessage(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestID tags every request with a UUID, echoed back to the client.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", ww.Header().Get("X-Request-ID"))
	})
}
