package anamnesis

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Crissavino/medical-dental-history/internal/domain/patient"
	"github.com/Crissavino/medical-dental-history/internal/domain/staff"
	"github.com/Crissavino/medical-dental-history/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	patients *patient.Service
}

func NewHandler(svc *Service, patients *patient.Service) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleAssistant))
	read.GET("/patients/:id/anamnesis", h.ListVersions)
	read.GET("/patients/:id/anamnesis/latest", h.GetLatest)
	read.GET("/anamnesis/:id", h.GetVersion)
	read.GET("/anamnesis/:id/pdf", h.GetPDF)
	read.POST("/patients/:id/anamnesis", h.CreateVersion)

	sign := api.Group("", auth.RequireRole(auth.RoleDentist))
	sign.POST("/anamnesis/:id/sign", h.SignVersion)
}

// RegisterPublicRoutes mounts the unauthenticated intake endpoint.
func (h *Handler) RegisterPublicRoutes(public *echo.Group) {
	public.POST("/intake", h.SubmitIntake)
}

type createRequest struct {
	FormData      FormData `json:"form_data"`
	Language      string   `json:"language"`
	ConsentGiven  bool     `json:"consent_given"`
	SignatureData string   `json:"signature_data"`
	// Version is the administrative correction path; zero means assign.
	Version int `json:"version"`
}

func (h *Handler) CreateVersion(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v := &Version{
		PatientID:    patientID,
		Version:      req.Version,
		Language:     req.Language,
		FormData:     req.FormData,
		ConsentGiven: req.ConsentGiven,
	}
	if req.SignatureData != "" {
		v.SignatureData = &req.SignatureData
	}
	if actorID, err := uuid.Parse(auth.ActorIDFromContext(c.Request().Context())); err == nil {
		v.RecordedBy = &actorID
	}

	if err := h.svc.Create(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) ListVersions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetLatest(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	v, err := h.svc.LatestByPatient(c.Request().Context(), patientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type signRequest struct {
	SignatureData string `json:"signature_data"`
}

func (h *Handler) SignVersion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req signRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	v, err := h.svc.Sign(c.Request().Context(), id, req.SignatureData)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetPDF(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	pdf, filename, err := h.svc.RenderPDF(c.Request().Context(), id, c.QueryParam("lang"))
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

type intakeRequest struct {
	PatientID *uuid.UUID `json:"patient_id"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	County    string `json:"county"`
	CNP       string `json:"cnp"`

	FormData      FormData `json:"form_data"`
	Language      string   `json:"language"`
	ConsentGiven  bool     `json:"consent_given"`
	SignatureData string   `json:"signature_data"`
}

// SubmitIntake is the public waiting-room flow: the patient fills the
// questionnaire themselves, optionally registering on the spot. No staff
// member is recorded as the author.
func (h *Handler) SubmitIntake(c echo.Context) error {
	var req intakeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	v := &Version{
		Language:     req.Language,
		FormData:     req.FormData,
		ConsentGiven: req.ConsentGiven,
	}
	if req.SignatureData != "" {
		v.SignatureData = &req.SignatureData
	}
	// Reject a bad questionnaire before the patient row is touched.
	if err := h.svc.ValidateNew(v); err != nil {
		return writeError(c, err)
	}

	var p *patient.Patient
	var err error
	if req.PatientID != nil {
		p, err = h.patients.Get(ctx, *req.PatientID)
		if err != nil {
			return writeError(c, err)
		}
		// Refresh the contact fields the patient re-entered.
		changed := false
		if req.Email != "" && req.Email != p.Email {
			p.Email = req.Email
			changed = true
		}
		if req.Phone != "" && req.Phone != p.Phone {
			p.Phone = req.Phone
			changed = true
		}
		if req.Address != "" && req.Address != p.Address {
			p.Address = req.Address
			changed = true
		}
		if req.City != "" && req.City != p.City {
			p.City = req.City
			changed = true
		}
		if req.County != "" && req.County != p.County {
			p.County = req.County
			changed = true
		}
		if req.CNP != "" && req.CNP != p.CNP {
			p.CNP = req.CNP
			changed = true
		}
		if changed {
			if err := h.patients.Update(ctx, p); err != nil {
				return writeError(c, err)
			}
		}
	} else {
		p = &patient.Patient{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
			City:      req.City,
			County:    req.County,
			CNP:       req.CNP,
		}
		if err := h.patients.Create(ctx, p); err != nil {
			return writeError(c, err)
		}
	}

	v.PatientID = p.ID
	if err := h.svc.Create(ctx, v); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"patient_id":         p.ID,
		"patient_identifier": p.Identifier,
		"version":            v.Version,
	})
}

func writeError(c echo.Context, err error) error {
	var ve *patient.ValidationError
	switch {
	case errors.Is(err, ErrConsentRequired):
		return echo.NewHTTPError(http.StatusBadRequest, ErrConsentRequired.Error())
	case errors.Is(err, ErrInvalidLanguage):
		return echo.NewHTTPError(http.StatusBadRequest, ErrInvalidLanguage.Error())
	case errors.Is(err, staff.ErrSignatureRequired):
		return echo.NewHTTPError(http.StatusBadRequest, staff.ErrSignatureRequired.Error())
	case errors.Is(err, ErrAlreadySigned):
		return echo.NewHTTPError(http.StatusConflict, ErrAlreadySigned.Error())
	case errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, ErrVersionConflict.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, patient.ErrNotFound), errors.Is(err, staff.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
