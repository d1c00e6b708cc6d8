package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// roleMiddleware restricts access to users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(core.RoleAdmin)
}

func instructorMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(core.RoleInstructor, core.RoleAdmin)
}

// with returns the middlewares of base followed by m, leaving base untouched.
func with(base []echo.MiddlewareFunc, m ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	chain := make([]echo.MiddlewareFunc, 0, len(base)+len(m))
	chain = append(chain, base...)
	return append(chain, m...)
}
