package api

import (
	"context"
	"errors"
	"net/http"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Credentials
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, creds Credentials) (User, error) {
	if creds.Email == "" || creds.Password == "" {
		return User{}, errors.New("email and password are required")
	}
	var out authResponse
	err := c.do(ctx, call{op: "login", method: http.MethodPost, path: "/auth/login", body: creds, public: true, fallback: "Login failed"}, &out)
	if err != nil {
		return User{}, err
	}
	return out.User, c.keep(ctx, out.Token)
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	var out authResponse
	err := c.do(ctx, call{op: "register", method: http.MethodPost, path: "/auth/register", body: reg, public: true, fallback: "Registration failed"}, &out)
	if err != nil {
		return User{}, err
	}
	return out.User, c.keep(ctx, out.Token)
}

func (c *Client) keep(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.tokens.SaveToken(ctx, token)
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, call{op: "current user", method: http.MethodGet, path: "/auth/me", fallback: "Failed to fetch user"}, &out)
	return out, err
}

// Logout forgets the stored token.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.ClearToken(ctx)
}
