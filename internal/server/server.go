// Package server exposes the dashboard API over HTTP with echo.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rileyhilliard/fleetd/internal/aggregate"
	"github.com/rileyhilliard/fleetd/internal/calendar"
	"github.com/rileyhilliard/fleetd/internal/errors"
	"github.com/rileyhilliard/fleetd/internal/local"
	"github.com/rileyhilliard/fleetd/internal/logger"
	"github.com/rileyhilliard/fleetd/internal/session"
	"github.com/rileyhilliard/fleetd/internal/wallpaper"
)

// Status is the read side of the API. *aggregate.Aggregator satisfies it.
type Status interface {
	SystemInfo(ctx context.Context) local.Snapshot
	SystemDetails(ctx context.Context) local.Detail
	Processes(ctx context.Context) []local.Process
	Temperatures(ctx context.Context) local.Temperatures
	DiskActivity(ctx context.Context) local.DiskActivity
	Containers(ctx context.Context) aggregate.Containers
	Connections(ctx context.Context) aggregate.Connections
}

var _ Status = (*aggregate.Aggregator)(nil)

// Deps are the collaborators behind the routes.
type Deps struct {
	Status    Status
	Sessions  *session.Store
	Locker    *session.Locker
	Wallpaper *wallpaper.Resolver
	Calendar  *calendar.Store

	// PublicDir is served at / when set and present.
	PublicDir string
	Log       logger.Logger
}

// Server owns the echo instance.
type Server struct {
	echo *echo.Echo
	deps Deps
	log  logger.Logger
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// New builds the server and registers every route.
func New(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logger.Noop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}

	s := &Server{echo: e, deps: deps, log: log}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic serving %s %s: %v\n%s", c.Request().Method, c.Request().URL.Path, err, stack)
			return err
		},
	}))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("%s %s %d %s id=%s err=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID, errors.Message(v.Error))
				return nil
			}
			log.Debug("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	// Every response carries the wildcard, with or without an Origin header.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			return next(c)
		}
	})
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.GET("/system-info", s.systemInfo)
	api.GET("/system-details", s.systemDetails)
	api.GET("/processes", s.processes)
	api.GET("/temperatures", s.temperatures)
	api.GET("/disk-activity", s.diskActivity)
	api.GET("/docker-containers", s.dockerContainers)
	api.GET("/ssh-connections", s.sshConnections)
	api.GET("/wallpaper", s.wallpaper)
	api.GET("/calendar-config", s.calendarConfig)
	api.POST("/lock-screen", s.lockScreen)
	api.POST("/pomodoro-status", s.writePomodoroStatus)
	api.DELETE("/pomodoro-status", s.clearPomodoroStatus)
	api.Any("/*", func(c echo.Context) error { return echo.ErrNotFound })

	if dir := s.deps.PublicDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			e.Static("/", dir)
		} else {
			s.log.Warn("public dir %s not found, dashboard assets disabled", dir)
		}
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("listening on http://%s", addr)
	if err := s.echo.Start(addr); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't listen on %s", addr),
			"Pick another port with --addr or stop whatever is using it.")
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// handleError renders every failure as {status: error, message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	switch {
	case stderrors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	case errors.IsCode(err, errors.ErrNotFound):
		code = http.StatusNotFound
		msg = errors.Message(err)
	}

	if code >= http.StatusInternalServerError {
		s.log.Error("%s %s: %s", c.Request().Method, c.Request().URL.Path, errors.Message(err))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, statusResponse{Status: "error", Message: msg})
	}
	if werr != nil {
		s.log.Error("writing error response: %v", werr)
	}
}
