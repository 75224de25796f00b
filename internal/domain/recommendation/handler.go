package recommendation

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resus/resus/internal/domain/patient"
	"github.com/resus/resus/internal/domain/survey"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/recommendations/airway", h.GenerateAirway)
	api.POST("/compliance", h.Compliance)
}

type airwayRequest struct {
	Findings survey.AirwayFindings `json:"findings"`
	Patient  patient.Identity      `json:"patient"`
}

func (h *Handler) GenerateAirway(c echo.Context) error {
	var req airwayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := survey.Validate(survey.PhaseAirway, survey.Assessment{Airway: req.Findings}); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	params, err := patient.Derive(req.Patient)
	if err != nil {
		if errors.Is(err, patient.ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"parameters":      params,
		"recommendations": GenerateAirway(req.Findings, params),
	})
}

type complianceRequest struct {
	Recommendations  []ClinicalRecommendation `json:"recommendations" validate:"dive"`
	ActionsPerformed []string                 `json:"actions_performed"`
}

func (h *Handler) Compliance(c echo.Context) error {
	var req complianceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Compliance(req.Recommendations, req.ActionsPerformed))
}
