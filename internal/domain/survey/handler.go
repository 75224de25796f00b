package survey

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
	api.GET("/phases", h.ListPhases)
	api.POST("/phases/:phase/validate", h.ValidatePhase)
}

func (h *Handler) ListPhases(c echo.Context) error {
	return c.JSON(http.StatusOK, Phases)
}

// ValidatePhase validates the posted assessment for the phase in the path.
// A blocked phase is not an HTTP error: the result carries the refusal.
func (h *Handler) ValidatePhase(c echo.Context) error {
	phase, err := ParsePhase(c.Param("phase"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var a Assessment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := Validate(phase, a)
	if err != nil {
		if errors.Is(err, ErrInvalidFinding) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
