package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. Pass it as the Skipper on JWTConfig.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
