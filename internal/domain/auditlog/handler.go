package auditlog

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinscribe/clinscribe/internal/platform/auth"
	"github.com/clinscribe/clinscribe/pkg/pagination"
)

// NoteAuthorizer reports whether a note exists and belongs to the given
// owner. Deleted and foreign notes are indistinguishable from missing ones.
type NoteAuthorizer interface {
	OwnsNote(ctx context.Context, ownerID, noteID uuid.UUID) (bool, error)
}

type Handler struct {
	svc   *Service
	notes NoteAuthorizer
}

func NewHandler(svc *Service, notes NoteAuthorizer) *Handler {
	return &Handler{svc: svc, notes: notes}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit", h.ListMine)
	api.GET("/notes/:id/audit", h.ListByNote)
}

// ListMine returns the requesting user's own audit trail.
func (h *Handler) ListMine(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByUser(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByNote(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	owns, err := h.notes.OwnsNote(c.Request().Context(), userID, noteID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	if !owns {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByEntity(c.Request().Context(), "clinical_note", noteID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
