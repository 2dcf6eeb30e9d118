package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eve-ticketing/tickets/entities"
)

type AuthServiceClient struct {
	client client
}

func NewAuthServiceClient(baseURL string, timeout time.Duration, editors ...RequestEditorFn) AuthServiceClient {
	return AuthServiceClient{client: newClient("auth", baseURL, timeout, editors...)}
}

// ValidateToken resolves the caller of a request. The token may still carry
// its "Bearer " prefix.
func (c AuthServiceClient) ValidateToken(ctx context.Context, token string) (entities.User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return entities.User{}, entities.NewValidationError("GET", "Authorization", "", "missing token")
	}

	r := request{
		method: http.MethodGet,
		path:   "/auth-user/validate-token/" + url.PathEscape(token),
		field:  "Authorization",
		value:  "",
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.User{}, err
	}

	return decode[entities.User](c.client, r, body)
}

// User gets a user by id. Tickets use it to address the owner when someone
// else, like an admin, acts on the ticket.
func (c AuthServiceClient) User(ctx context.Context, id int64) (entities.User, error) {
	r := request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/auth-user/id/%d", id),
		field:  "user_id",
		value:  id,
	}

	body, err := c.client.do(ctx, r)
	if err != nil {
		return entities.User{}, err
	}

	return decode[entities.User](c.client, r, body)
}
