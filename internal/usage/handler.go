package usage

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger.With("handler", "usage")}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/jobs", h.List)
	g.GET("/jobs/:id", h.Get)
	g.GET("/usage/summary", h.Summary)
}

type ListResponse struct {
	Jobs []*Job `json:"jobs"`
}

type SummaryResponse struct {
	Since time.Time `json:"since"`
	*Summary
}

func (h *Handler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	jobs, err := h.store.Recent(c.Request().Context(), JobKind(c.QueryParam("kind")), limit)
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		return shared.InternalError("list_failed", "Failed to list jobs")
	}
	if jobs == nil {
		jobs = []*Job{}
	}
	return c.JSON(http.StatusOK, ListResponse{Jobs: jobs})
}

func (h *Handler) Get(c echo.Context) error {
	job, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("job_not_found", "Job not found")
	}
	if err != nil {
		h.logger.Error("failed to get job", "error", err)
		return shared.InternalError("get_failed", "Failed to get job")
	}
	return c.JSON(http.StatusOK, job)
}

// Summary aggregates the last 24 hours unless a "since" RFC 3339 time is given.
func (h *Handler) Summary(c echo.Context) error {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return shared.BadRequest("invalid_since", "since must be an RFC 3339 timestamp")
		}
		since = t
	}

	sum, err := h.store.Summary(c.Request().Context(), since)
	if err != nil {
		h.logger.Error("failed to summarize usage", "error", err)
		return shared.InternalError("summary_failed", "Failed to summarize usage")
	}
	return c.JSON(http.StatusOK, SummaryResponse{Since: since, Summary: sum})
}
