package clients

import (
	"context"
	"net/http"
)

// User is the account behind the API session cookie.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

type AuthClient struct{ c *Client }

func NewAuthClient(c *Client) *AuthClient { return &AuthClient{c: c} }

// Me returns the current user, or nil when nobody is logged in.
func (ac *AuthClient) Me(ctx context.Context) (*User, error) {
	var body struct {
		User *User `json:"user"`
	}
	if err := ac.c.call(ctx, "current user", http.MethodGet, "/auth/me", nil, &body); err != nil {
		return nil, err
	}
	return body.User, nil
}

func (ac *AuthClient) Logout(ctx context.Context) error {
	return ac.c.call(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil)
}
