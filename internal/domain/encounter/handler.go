package encounter

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
	"github.com/Crissavino/medical-dental-history/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleAssistant))
	g.GET("/patients/:id/encounters", h.ListEncounters)
	g.POST("/encounters", h.CreateEncounter)
	g.GET("/encounters/:id", h.GetEncounter)
	g.PUT("/encounters/:id", h.UpdateEncounter)
	g.DELETE("/encounters/:id", h.DeleteEncounter)
}

type treatmentRequest struct {
	ID          *uuid.UUID `json:"id"`
	Tooth       string     `json:"tooth"`
	Procedure   string     `json:"procedure"`
	Description string     `json:"description"`
	Surface     string     `json:"surface"`
	Notes       string     `json:"notes"`
	Cost        *float64   `json:"cost"`
	Status      string     `json:"status"`
}

type encounterRequest struct {
	PatientID  uuid.UUID          `json:"patient_id"`
	ProviderID *uuid.UUID         `json:"provider_id"`
	OccurredAt *time.Time         `json:"occurred_at"`
	Status     string             `json:"status"`
	Notes      string             `json:"notes"`
	Treatments []treatmentRequest `json:"treatments"`
}

func (req *encounterRequest) apply(e *Encounter) {
	e.PatientID = req.PatientID
	e.ProviderID = req.ProviderID
	e.Status = req.Status
	e.Notes = req.Notes
	if req.OccurredAt != nil {
		e.OccurredAt = *req.OccurredAt
	} else {
		e.OccurredAt = time.Now().UTC()
	}

	e.Treatments = make([]Treatment, 0, len(req.Treatments))
	for _, tr := range req.Treatments {
		t := Treatment{
			Tooth:       tr.Tooth,
			Procedure:   tr.Procedure,
			Description: tr.Description,
			Surface:     tr.Surface,
			Notes:       tr.Notes,
			Cost:        tr.Cost,
			Status:      tr.Status,
		}
		if tr.ID != nil {
			t.ID = *tr.ID
		}
		e.Treatments = append(e.Treatments, t)
	}
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var req encounterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var e Encounter
	req.apply(&e)
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) UpdateEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req encounterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	e := Encounter{ID: id}
	req.apply(&e)
	if err := h.svc.Update(c.Request().Context(), &e); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func writeError(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": []*ValidationError{ve},
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
