package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Team roles. Admin passes every role check.
const (
	RoleAdmin        = "admin"
	RoleTeamLead     = "team_lead"
	RoleAirway       = "airway"
	RoleCompressions = "compressions"
	RoleMedications  = "medications"
	RoleObserver     = "observer"
)

var (
	// ReadRoles may read cases and run the calculators.
	ReadRoles = []string{RoleTeamLead, RoleAirway, RoleCompressions, RoleMedications, RoleObserver}
	// WriteRoles may record findings and actions.
	WriteRoles = []string{RoleTeamLead, RoleAirway, RoleCompressions, RoleMedications}
	// LeadRoles may advance phases and close cases.
	LeadRoles = []string{RoleTeamLead}
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, has := range userRoles {
				if has == RoleAdmin {
					return next(c)
				}
				for _, required := range roles {
					if has == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
