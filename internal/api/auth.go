package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/studenttracker/client/internal/model"
)

// Login authenticates and stores the issued tokens and user in the session.
// Bad credentials come back as *UnauthorizedError carrying the server message.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var res AuthResult
	if _, err := c.call(ctx, http.MethodPost, "/auth/login", Credentials{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}
	if err := c.session.SetAuth(res.Tokens.AccessToken, res.Tokens.RefreshToken, &res.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.logger.Info("logged in", "user_id", res.User.ID, "role", res.User.Role)
	return &res.User, nil
}

// Register creates an account and signs in as it
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	res, err := c.register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.session.SetAuth(res.Tokens.AccessToken, res.Tokens.RefreshToken, &res.User); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.logger.Info("registered", "user_id", res.User.ID, "role", res.User.Role)
	return &res.User, nil
}

// CreateUser registers an account on behalf of someone else; the session is untouched
func (c *Client) CreateUser(ctx context.Context, req RegisterRequest) (*model.User, error) {
	res, err := c.register(ctx, req)
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (c *Client) register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	var res AuthResult
	if _, err := c.call(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me fetches the signed-in user with their student or teacher profile and
// stores it in the session.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if _, err := c.call(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	if err := c.session.SetUser(&u); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &u, nil
}

// Refresh exchanges the refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.session.RefreshToken()
	if refresh == "" {
		return ErrSessionExpired
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, refresh)
	if err != nil {
		return err
	}
	if err := env.Err(); err != nil {
		return err
	}
	var tokens Tokens
	if err := env.Decode(&tokens); err != nil {
		return err
	}
	if tokens.AccessToken == "" {
		return fmt.Errorf("refresh: response carried no access token")
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refresh
	}
	return c.session.SetTokens(tokens.AccessToken, tokens.RefreshToken)
}

// Logout drops the local session. The backend keeps no server-side session state.
func (c *Client) Logout() error {
	return c.session.ClearAuth()
}

// Health is the backend health probe result
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health calls the unauthenticated health endpoint, which does not use the envelope
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: decode health: %w", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &h, &Error{StatusCode: resp.StatusCode, Message: h.Status}
	}
	return &h, nil
}
