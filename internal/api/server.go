// Package api exposes submission, execution and schema induction over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /api/v1/functions
//	POST /api/v1/projects
//	POST /api/v1/datamodels
//	POST /api/v1/functions
//	POST /api/v1/jobs
//	POST /api/v1/schemas/induce
//
// Errors are returned as {"error": message, "kind": kind}, with the status
// derived from the error's type.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"metadata-mapper/internal/compile"
	"metadata-mapper/internal/execute"
	"metadata-mapper/internal/jobs"
	"metadata-mapper/internal/model"
	"metadata-mapper/internal/resolve"
)

// Store persists submitted documents.
type Store interface {
	resolve.TxStore
	resolve.DocumentLoader
}

// Deps are the collaborators of a Server.
type Deps struct {
	Store     Store
	Executor  *execute.Executor
	Registry  *compile.Registry
	MaxFanOut int
	Log       logrus.FieldLogger
}

// Server is the HTTP front end.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	runner *jobs.Runner
}

// New wires routes and middleware.
func New(deps Deps) *Server {
	if deps.Registry == nil {
		deps.Registry = compile.DefaultRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		deps: deps,
		runner: &jobs.Runner{
			Documents: deps.Store,
			Executor:  deps.Executor,
			Registry:  deps.Registry,
			MaxFanOut: deps.MaxFanOut,
			Log:       deps.Log,
		},
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.BodyLimit("16M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			deps.Log.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
				"request": v.RequestID,
			}).Info("request")

			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	v1.GET("/functions", s.listFunctions)
	v1.POST("/projects", s.submit(model.KindProject))
	v1.POST("/datamodels", s.submit(model.KindDataModel))
	v1.POST("/functions", s.submit(model.KindFunction))
	v1.POST("/jobs", s.runJob)
	v1.POST("/schemas/induce", s.induce)

	return s
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.echo.Server.ReadHeaderTimeout = 10 * time.Second

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown stops accepting requests and waits for running ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
