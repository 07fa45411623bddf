// Package api exposes the tracker over HTTP with echo.
//
// Routes, relative to the group they are mounted on:
//
//	POST   /shots                register a shot (capacity guard applies)
//	GET    /shots?page=N         one page of the ledger, newest first
//	GET    /shots/:id            one record
//	PUT    /shots/:id            replace a record's fields
//	DELETE /shots/:id            remove a record
//	POST   /shots/:id/duplicate  copy a record dated today
//	GET    /vial                 derived vial state
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	vial "github.com/xraph/vial"
	"github.com/xraph/vial/id"
	"github.com/xraph/vial/page"
	"github.com/xraph/vial/shot"
	"github.com/xraph/vial/supply"
)

// Response messages.
const (
	MsgEntrySaved      = "Entry saved successfully"
	MsgEntryUpdated    = "Entry updated successfully"
	MsgEntryDeleted    = "Entry deleted successfully"
	MsgEntryDuplicated = "Entry duplicated successfully"
	MsgInvalidBody     = "Invalid request body"
	MsgInvalidPage     = "Invalid page"
	MsgNotFound        = "Entry not found"
)

// Tracker is the part of *vial.Tracker the handlers use.
type Tracker interface {
	Register(ctx context.Context, f shot.Fields) vial.Outcome
	Update(ctx context.Context, shotID id.ShotID, f shot.Fields) vial.Outcome
	Delete(ctx context.Context, shotID id.ShotID) vial.Outcome
	Duplicate(ctx context.Context, shotID id.ShotID) vial.Outcome
	Record(shotID id.ShotID) (*shot.Shot, error)
	Page(n int) page.View
	Ledger() *vial.Ledger
}

var _ Tracker = (*vial.Tracker)(nil)

// EntryResponse acknowledges a write.
type EntryResponse struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id,omitempty"`
	Message  string `json:"message"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// VialResponse is the body of GET /vial.
type VialResponse struct {
	supply.State
	Summary string `json:"summary"`
	Version uint64 `json:"version"`
	// StreamError is set while the store subscription is failing; State is
	// then the last good one.
	StreamError string `json:"stream_error,omitempty"`
}

// Handler serves the tracker routes.
type Handler struct {
	tracker Tracker
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New creates a Handler for t.
func New(t Tracker, opts ...Option) *Handler {
	h := &Handler{
		tracker: t,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on g.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/shots", h.createShot)
	g.GET("/shots", h.listShots)
	g.GET("/shots/:id", h.getShot)
	g.PUT("/shots/:id", h.updateShot)
	g.DELETE("/shots/:id", h.deleteShot)
	g.POST("/shots/:id/duplicate", h.duplicateShot)
	g.GET("/vial", h.getVial)
}

// Echo returns an echo instance serving the routes under basePath.
func (h *Handler) Echo(basePath string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	h.Register(e.Group(basePath))
	return e
}

func (h *Handler) createShot(c echo.Context) error {
	var f shot.Fields
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidBody})
	}

	out := h.tracker.Register(c.Request().Context(), f)
	if !out.OK() {
		return h.fail(c, out)
	}
	return c.JSON(http.StatusOK, EntryResponse{ID: out.ID.String(), Message: MsgEntrySaved})
}

func (h *Handler) listShots(c echo.Context) error {
	n := 1
	if raw := c.QueryParam("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidPage})
		}
		n = v
	}
	return c.JSON(http.StatusOK, h.tracker.Page(n))
}

func (h *Handler) getShot(c echo.Context) error {
	shotID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: vial.MsgInvalidRecord})
	}

	r, err := h.tracker.Record(shotID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: MsgNotFound})
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) updateShot(c echo.Context) error {
	shotID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: vial.MsgInvalidRecord})
	}
	var f shot.Fields
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidBody})
	}

	out := h.tracker.Update(c.Request().Context(), shotID, f)
	if !out.OK() {
		return h.fail(c, out)
	}
	return c.JSON(http.StatusOK, EntryResponse{ID: shotID.String(), Message: MsgEntryUpdated})
}

func (h *Handler) deleteShot(c echo.Context) error {
	shotID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: vial.MsgInvalidRecord})
	}

	out := h.tracker.Delete(c.Request().Context(), shotID)
	if !out.OK() {
		return h.fail(c, out)
	}
	return c.JSON(http.StatusOK, EntryResponse{ID: shotID.String(), Message: MsgEntryDeleted})
}

func (h *Handler) duplicateShot(c echo.Context) error {
	shotID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: vial.MsgInvalidRecord})
	}

	out := h.tracker.Duplicate(c.Request().Context(), shotID)
	if !out.OK() {
		return h.fail(c, out)
	}
	return c.JSON(http.StatusOK, EntryResponse{
		ID:       out.ID.String(),
		SourceID: shotID.String(),
		Message:  MsgEntryDuplicated,
	})
}

func (h *Handler) getVial(c echo.Context) error {
	l := h.tracker.Ledger()
	snap := l.Snapshot()
	resp := VialResponse{
		State:   snap.State,
		Summary: snap.State.Format(),
		Version: snap.Version,
	}
	if err := l.Err(); err != nil {
		resp.StreamError = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// fail writes the error response for a failed outcome.
func (h *Handler) fail(c echo.Context, out vial.Outcome) error {
	status := Status(out.Err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("api: request failed",
			"op", string(out.Op),
			"shot_id", out.ID.String(),
			"error", out.Err,
		)
	}
	return c.JSON(status, ErrorResponse{Error: out.Message})
}

// Status maps an outcome error to an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case vial.IsPolicyRejection(err):
		return http.StatusConflict
	case vial.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, vial.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, vial.ErrTrackerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathID(c echo.Context) (id.ShotID, bool) {
	shotID, err := id.ParseShotID(c.Param("id"))
	if err != nil {
		return id.Nil, false
	}
	return shotID, true
}
