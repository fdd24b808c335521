package middleware

import (
	"net/http"
	"strings"

	"github.com/Eursukkul/outing-service/internal/auth"
	"github.com/Eursukkul/outing-service/internal/service"
	"github.com/labstack/echo/v4"
)

const contextActor = "actor"

// JWT validates the bearer token and stores the caller as a service.Actor.
func JWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}
			claims, err := jwtService.Validate(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			c.Set(contextActor, service.Actor{UserID: claims.UserID, Admin: claims.IsAdmin()})
			return next(c)
		}
	}
}

// SetActor stores actor on c, as JWT does after a successful validation.
func SetActor(c echo.Context, actor service.Actor) {
	c.Set(contextActor, actor)
}

// ActorFrom returns the caller set by JWT.
func ActorFrom(c echo.Context) (service.Actor, bool) {
	actor, ok := c.Get(contextActor).(service.Actor)
	return actor, ok
}
