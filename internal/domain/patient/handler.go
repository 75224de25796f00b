package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/parameters", h.CalculateParameters)
}

type parametersRequest struct {
	AgeYears  int      `json:"age_years" validate:"gte=0"`
	AgeMonths int      `json:"age_months" validate:"gte=0,lte=11"`
	WeightKg  *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`
}

func (h *Handler) CalculateParameters(c echo.Context) error {
	var req parametersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := Calculate(req.AgeYears, req.AgeMonths, req.WeightKg)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
