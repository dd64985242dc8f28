// Package server exposes the query pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/phuslu/log"

	"supportbot/internal/domain"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const errInternal = "Internal server error"

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	RAGAvailable  bool   `json:"rag_available"`
	Index         string `json:"index,omitempty"`
	DocumentCount *int   `json:"document_count,omitempty"`
}

// Server wires the query service into an echo instance.
type Server struct {
	echo           *echo.Echo
	service        domain.QueryService
	indexName      string
	counter        domain.Counter
	requestTimeout time.Duration
	validate       *validator.Validate
}

// Options configure optional server behaviour. When Counter is set, /health reports
// the index size and marks retrieval unavailable if the index cannot be reached.
type Options struct {
	IndexName      string
	Counter        domain.Counter
	RequestTimeout time.Duration
}

// New builds the HTTP server around svc.
func New(svc domain.QueryService, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:           e,
		service:        svc,
		indexName:      opts.IndexName,
		counter:        opts.Counter,
		requestTimeout: opts.RequestTimeout,
		validate:       validator.New(),
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(cors())

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.POST("/api/query", s.handleQuery)
	e.OPTIONS("/api/query", s.handlePreflight)
	return s
}

// ServeHTTP lets the server be mounted or exercised with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server starting")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("http server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		log.Debug().Err(err).Msg("unparseable query body")
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrQueryRequired})
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrQueryRequired})
	}

	ctx := c.Request().Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	resp, err := s.service.Answer(ctx, req.Query)
	if err != nil {
		if domain.IsValidation(err) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrQueryRequired})
		}
		ev := log.Error().Err(err)
		var de *domain.DependencyError
		if errors.As(err, &de) {
			ev = ev.Str("dependency", de.Dependency)
		}
		ev.Msg("query failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errInternal})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePreflight(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:       "healthy",
		RAGAvailable: s.indexName != "",
		Index:        s.indexName,
	}
	if s.counter != nil {
		n, err := s.counter.Count(c.Request().Context())
		if err != nil {
			log.Warn().Err(err).Str("index", s.indexName).Msg("index count failed")
			resp.RAGAvailable = false
		} else {
			resp.DocumentCount = &n
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Documentation Support Bot API",
		"version": Version,
	})
}

// cors allows any origin to call the API from a browser. The preflight is answered
// by handlePreflight with 200; middleware.CORS would short-circuit it with 204.
func cors() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
