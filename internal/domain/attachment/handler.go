package attachment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
	"github.com/Crissavino/medical-dental-history/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleAssistant))
	g.POST("/attachments", h.Upload)
	g.GET("/attachments/:id", h.GetAttachment)
	g.GET("/attachments/:id/download", h.Download)
	g.GET("/patients/:id/attachments", h.listFor(OwnerPatient))
	g.GET("/encounters/:id/attachments", h.listFor(OwnerEncounter))
	g.GET("/treatments/:id/attachments", h.listFor(OwnerTreatment))
	g.DELETE("/attachments/:id", h.DeleteAttachment)
}

// Upload accepts a multipart form with a "file" part plus owner_type,
// owner_id and optional description fields.
func (h *Handler) Upload(c echo.Context) error {
	ownerType := c.FormValue("owner_type")
	ownerID, err := uuid.Parse(c.FormValue("owner_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid owner_id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file part")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	a, err := h.svc.Upload(c.Request().Context(), UploadInput{
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Filename:    fh.Filename,
		MimeType:    mime,
		Size:        fh.Size,
		Description: c.FormValue("description"),
		Content:     src,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAttachment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Download streams the stored bytes under the original filename.
func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	a, rc, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+a.Filename+`"`)
	return c.Stream(http.StatusOK, a.MimeType, rc)
}

func (h *Handler) listFor(ownerType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ownerID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid owner id")
		}

		items, err := h.svc.ListByOwner(c.Request().Context(), ownerType, ownerID)
		if err != nil {
			return writeError(c, err)
		}
		if items == nil {
			items = []*Attachment{}
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (h *Handler) DeleteAttachment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "attachment not found")
	case errors.Is(err, ErrInvalidOwner):
		return echo.NewHTTPError(http.StatusBadRequest, "owner_type must be patient, encounter or treatment")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
