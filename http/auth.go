package http

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/eve-ticketing/tickets/entities"
	"github.com/labstack/echo/v4"
)

const userContextKey = "user"

type AuthService interface {
	ValidateToken(ctx context.Context, token string) (entities.User, error)
}

// Authenticate resolves the Authorization header into the calling user.
func Authenticate(auth AuthService) echo.MiddlewareFunc {
	if auth == nil {
		panic("missing auth service")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := auth.ValidateToken(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			ctx = log.ToContext(ctx, log.FromContext(ctx).WithField("user_id", user.ID))
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(userContextKey, user)

			return next(c)
		}
	}
}

func userFromContext(c echo.Context) entities.User {
	user, _ := c.Get(userContextKey).(entities.User)
	return user
}
