package trigger

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resus/resus/internal/domain/patient"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/triggers", h.ListTriggers)
	api.POST("/triggers/evaluate", h.EvaluateAll)
	api.POST("/triggers/:name/evaluate", h.Evaluate)
}

func (h *Handler) ListTriggers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"triggers":   h.registry.Names(),
		"action_ids": ActionIDs(),
	})
}

type evaluateRequest struct {
	Value   Observation      `json:"value"`
	Patient patient.Identity `json:"patient"`
}

type evaluateAllRequest struct {
	Observations map[Name]Observation `json:"observations" validate:"required"`
	Patient      patient.Identity     `json:"patient"`
}

// Evaluate runs one named rule. NotTriggered is a 200 with fired=false.
func (h *Handler) Evaluate(c echo.Context) error {
	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	out, err := h.registry.Evaluate(Name(c.Param("name")), req.Value, req.Patient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) EvaluateAll(c echo.Context) error {
	var req evaluateAllRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	actions, err := h.registry.EvaluateAll(req.Observations, req.Patient)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"actions": actions})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownTrigger):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidObservation), errors.Is(err, patient.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
