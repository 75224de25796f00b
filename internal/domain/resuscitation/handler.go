package resuscitation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/resus/resus/internal/domain/audittrail"
	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
	"github.com/resus/resus/internal/domain/trigger"
	"github.com/resus/resus/internal/platform/auth"
	"github.com/resus/resus/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – every team member
	readGroup := api.Group("", auth.RequireRole(auth.ReadRoles...))
	readGroup.GET("/cases", h.ListCases)
	readGroup.GET("/cases/:id", h.GetCase)
	readGroup.GET("/cases/:id/validation", h.ValidateCase)
	readGroup.GET("/cases/:id/evaluation", h.EvaluateCase)
	readGroup.GET("/cases/:id/efficiency", h.GetEfficiency)
	readGroup.GET("/cases/:id/summary", h.GetSummary)
	readGroup.GET("/cases/:id/export", h.ExportTrail)

	// Write endpoints – hands-on roles
	writeGroup := api.Group("", auth.RequireRole(auth.WriteRoles...))
	writeGroup.POST("/cases", h.OpenCase)
	writeGroup.PUT("/cases/:id/findings", h.UpdateFindings)
	writeGroup.POST("/cases/:id/actions", h.RecordAction)
	writeGroup.POST("/cases/:id/skips", h.SkipAction)
	writeGroup.POST("/cases/:id/voice", h.VoiceCommand)

	// Team lead endpoints
	leadGroup := api.Group("", auth.RequireRole(auth.LeadRoles...))
	leadGroup.POST("/cases/:id/advance", h.AdvancePhase)
	leadGroup.POST("/cases/:id/close", h.CloseCase)
}

func (h *Handler) OpenCase(c echo.Context) error {
	var id patient.Identity
	if err := c.Bind(&id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&id); err != nil {
		return err
	}
	ctx := c.Request().Context()
	cs, err := h.svc.Open(ctx, id, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	cases, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	pagination.SetLinkHeader(c, pg, total)
	return c.JSON(http.StatusOK, pagination.NewResponse(cases, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

type findingsResponse struct {
	Case       *Case          `json:"case"`
	Validation *survey.Result `json:"validation,omitempty"`
}

func (h *Handler) UpdateFindings(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	var patch survey.Assessment
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, res, err := h.svc.UpdateFindings(c.Request().Context(), id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, findingsResponse{Case: cs, Validation: res})
}

func (h *Handler) ValidateCase(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// AdvancePhase answers 409 with the validation result when the current
// phase blocks.
func (h *Handler) AdvancePhase(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	cs, res, err := h.svc.Advance(c.Request().Context(), id)
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return c.JSON(http.StatusConflict, blocked.Result)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, findingsResponse{Case: cs, Validation: res})
}

func (h *Handler) EvaluateCase(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	ev, err := h.svc.Evaluate(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) RecordAction(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	var in ActionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	_, entry, err := h.svc.RecordAction(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) SkipAction(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	var in SkipInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	_, entry, err := h.svc.SkipAction(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

type closeRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) CloseCase(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	var req closeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	status, err := audittrail.ParseStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.Close(c.Request().Context(), id, status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) GetEfficiency(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	eff, err := h.svc.Efficiency(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, eff)
}

func (h *Handler) GetSummary(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.Summary(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.String(http.StatusOK, summary)
}

func (h *Handler) ExportTrail(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Export(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSONBlob(http.StatusOK, data)
}

type voiceRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *Handler) VoiceCommand(c echo.Context) error {
	id, err := caseID(c)
	if err != nil {
		return err
	}
	var req voiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	results, err := h.svc.Voice(c.Request().Context(), id, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, results)
}

func caseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, audittrail.ErrTrailClosed),
		errors.Is(err, ErrCannotAdvance),
		errors.Is(err, ErrSurveyComplete):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, patient.ErrInvalidInput),
		errors.Is(err, survey.ErrInvalidFinding),
		errors.Is(err, audittrail.ErrInvalidEntry),
		errors.Is(err, trigger.ErrInvalidObservation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
