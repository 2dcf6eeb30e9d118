package api

import (
	"context"
	"strings"
	"sync"

	"github.com/eve-ticketing/tickets/entities"
)

type AuthServiceClientMock struct {
	mock sync.Mutex

	// Users maps a token to the user it belongs to.
	Users map[string]entities.User
}

func (c *AuthServiceClientMock) ValidateToken(ctx context.Context, token string) (entities.User, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	user, ok := c.Users[strings.TrimPrefix(token, "Bearer ")]
	if !ok {
		return entities.User{}, entities.NewValidationError("GET", "Authorization", "", "invalid token")
	}
	return user, nil
}

func (c *AuthServiceClientMock) User(ctx context.Context, id int64) (entities.User, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	for _, user := range c.Users {
		if user.ID == id {
			return user, nil
		}
	}
	return entities.User{}, entities.NewNotFoundError("GET", "user_id", id, "user not found")
}
