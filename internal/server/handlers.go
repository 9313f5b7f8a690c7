package server

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rileyhilliard/fleetd/internal/calendar"
	"github.com/rileyhilliard/fleetd/internal/errors"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type lockRequest struct {
	SessionType   string `json:"sessionType"`
	TimeRemaining *int   `json:"timeRemaining" validate:"omitempty,gte=0"`
	LockCommand   string `json:"lockCommand"`
}

type pomodoroRequest struct {
	Status string `json:"status"`
}

func (s *Server) systemInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.SystemInfo(c.Request().Context()))
}

func (s *Server) systemDetails(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.SystemDetails(c.Request().Context()))
}

func (s *Server) processes(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.Processes(c.Request().Context()))
}

func (s *Server) temperatures(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.Temperatures(c.Request().Context()))
}

func (s *Server) diskActivity(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.DiskActivity(c.Request().Context()))
}

func (s *Server) dockerContainers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.Containers(c.Request().Context()))
}

func (s *Server) sshConnections(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Status.Connections(c.Request().Context()))
}

func (s *Server) wallpaper(c echo.Context) error {
	img, data, err := s.deps.Wallpaper.Read()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, img.ContentType, data)
}

func (s *Server) calendarConfig(c echo.Context) error {
	cfg, created, err := s.deps.Calendar.Load()
	if err != nil {
		s.log.Warn("calendar config: %s", errors.Message(err))
		return err
	}
	if created {
		s.log.Warn("created %s with placeholders; add API keys to enable the calendar", s.deps.Calendar.Path())
	}
	return c.JSON(http.StatusOK, calendar.Redact(cfg))
}

func (s *Server) lockScreen(c echo.Context) error {
	var req lockRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if end, ok, err := s.deps.Sessions.RecordBreak(req.SessionType, req.TimeRemaining); err != nil {
		return err
	} else if ok {
		s.log.Info("break ends at %d", end)
	}

	path, err := s.deps.Locker.Launch(req.LockCommand)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			s.log.Warn("lock tool unavailable: %s", errors.Message(err))
			return c.JSON(http.StatusNotFound, statusResponse{Status: "error", Message: "Lock tool not found"})
		}
		return err
	}
	s.log.Info("started lock tool %s", path)
	return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: "Lock tool started"})
}

func (s *Server) writePomodoroStatus(c echo.Context) error {
	var req pomodoroRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := s.deps.Sessions.WriteStatus(req.Status); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

func (s *Server) clearPomodoroStatus(c echo.Context) error {
	if err := s.deps.Sessions.Clear(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

// bindJSON decodes an optional JSON body regardless of Content-Type and
// validates it. Any decoding failure is a 400.
func bindJSON(c echo.Context, v interface{}) error {
	if c.Request().ContentLength != 0 {
		if err := c.Echo().JSONSerializer.Deserialize(c, v); err != nil && !stderrors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
		}
	}
	return c.Validate(v)
}
