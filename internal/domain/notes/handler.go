package notes

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinscribe/clinscribe/internal/platform/ai"
	"github.com/clinscribe/clinscribe/internal/platform/auth"
	"github.com/clinscribe/clinscribe/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/notes", h.CreateNote)
	api.GET("/notes", h.ListNotes)
	api.GET("/notes/search", h.SearchNotes)
	api.POST("/notes/sanitize", h.SanitizeText)
	api.GET("/notes/:id", h.GetNote)
	api.PATCH("/notes/:id", h.UpdateNote)
	api.POST("/notes/:id/finalize", h.FinalizeNote)
	api.DELETE("/notes/:id", h.DeleteNote)
	api.GET("/notes/:id/history", h.GetHistory)
	api.GET("/patients/:id/notes", h.ListPatientNotes)
	api.GET("/patients/:id/summary", h.SummarizePatient)
}

func (h *Handler) CreateNote(c echo.Context) error {
	var input CreateNoteInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	input.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	ownerID := auth.UserIDFromContext(c.Request().Context())
	note, err := h.svc.CreateAndStructureNote(c.Request().Context(), ownerID, input)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *Handler) GetNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	note, err := h.svc.GetNote(c.Request().Context(), ownerID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) ListNotes(c echo.Context) error {
	ownerID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListNotes(c.Request().Context(), ownerID, c.QueryParam("title"), pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var input UpdateNoteInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	note, err := h.svc.UpdateNote(c.Request().Context(), ownerID, id, input)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) FinalizeNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	note, err := h.svc.FinalizeNote(c.Request().Context(), ownerID, id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, note)
}

func (h *Handler) DeleteNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.SoftDeleteNote(c.Request().Context(), ownerID, id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchNotes(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	results, err := h.svc.Search(c.Request().Context(), ownerID, query, pg.Limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

func (h *Handler) GetHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	versions, err := h.svc.GetHistory(c.Request().Context(), ownerID, id)
	if err != nil {
		return mapError(err)
	}
	if versions == nil {
		versions = []*NoteVersion{}
	}
	return c.JSON(http.StatusOK, versions)
}

func (h *Handler) ListPatientNotes(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), ownerID, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) SummarizePatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ownerID := auth.UserIDFromContext(c.Request().Context())
	summary, err := h.svc.SummarizeHistory(c.Request().Context(), ownerID, patientID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}

type sanitizeRequest struct {
	Text string `json:"text"`
}

// SanitizeText rewrites prescriptive phrasing. It is a helper for authors
// fixing rejected notes, not a bypass of validation.
func (h *Handler) SanitizeText(c echo.Context) error {
	var req sanitizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, map[string]string{"text": h.svc.Sanitize(req.Text)})
}

// mapError translates service errors to HTTP. Provider failures surface as a
// generic 503 so internal details never reach clients.
func mapError(err error) error {
	if se, ok := IsSafetyError(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"error":   "unsafe clinical language",
			"reasons": se.Reasons,
		})
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	if errors.Is(err, ErrKeyReserved) {
		return echo.NewHTTPError(http.StatusConflict, "idempotency key was used by a note that has been deleted")
	}
	if ai.IsUnavailable(err) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "note structuring is temporarily unavailable")
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if isValidationError(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
