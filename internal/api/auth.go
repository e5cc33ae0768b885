package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"lifepulse/internal/repository"
)

// AuthResult is the resolved outcome of a login attempt
type AuthResult struct {
	Success      bool
	UserID       string
	Token        string
	ErrorMessage string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	User  authUser `json:"user"`
	Token string   `json:"token"`
	Error string   `json:"error"`
}

type validateResponse struct {
	Valid bool      `json:"valid"`
	User  *authUser `json:"user"`
}

// Login exchanges email/password for a bearer token at POST /auth/login and
// persists the credentials on success. A rejected login is not an error; it
// comes back as an unsuccessful AuthResult with the server's message.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL(ctx)+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return AuthResult{}, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return AuthResult{}, fmt.Errorf("failed to decode login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := decoded.Error
		if message == "" {
			message = fmt.Sprintf("authentication failed with status %d", resp.StatusCode)
		}
		c.logger.Warn("Login rejected", "status", resp.StatusCode, "error", message)
		return AuthResult{Success: false, ErrorMessage: message}, nil
	}

	if err := c.saveAuthData(ctx, decoded.User, decoded.Token); err != nil {
		return AuthResult{}, err
	}

	c.logger.Info("Login succeeded", "user_id", decoded.User.ID)
	return AuthResult{Success: true, UserID: decoded.User.ID, Token: decoded.Token}, nil
}

// ValidateToken checks the stored token against GET /auth/login. An invalid
// token clears the stored credentials so the agent falls back to
// unauthenticated until the next login.
func (c *Client) ValidateToken(ctx context.Context) (bool, error) {
	token, err := c.settings.Get(ctx, repository.SettingAuthToken)
	if err != nil {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(ctx)+"/auth/login", nil)
	if err != nil {
		return false, fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("token validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Stored token rejected, clearing credentials", "status", resp.StatusCode)
		c.clearAuthData(ctx)
		return false, nil
	}

	var decoded validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("failed to decode validation response: %w", err)
	}

	if decoded.Valid && decoded.User != nil {
		if err := c.saveUserInfo(ctx, *decoded.User); err != nil {
			c.logger.Warn("Failed to refresh user info after validation", "error", err)
		}
	}
	return decoded.Valid, nil
}

// Logout discards the stored credentials
func (c *Client) Logout(ctx context.Context) {
	c.clearAuthData(ctx)
	c.logger.Info("Logged out")
}

// IsAuthenticated reports whether a token and user ID are stored
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if _, err := c.settings.Get(ctx, repository.SettingAuthToken); err != nil {
		return false
	}
	if _, err := c.settings.Get(ctx, repository.SettingUserID); err != nil {
		return false
	}
	return true
}

func (c *Client) saveAuthData(ctx context.Context, user authUser, token string) error {
	if err := c.settings.Set(ctx, repository.SettingAuthToken, token); err != nil {
		return fmt.Errorf("failed to store auth token: %w", err)
	}
	return c.saveUserInfo(ctx, user)
}

func (c *Client) saveUserInfo(ctx context.Context, user authUser) error {
	if err := c.settings.Set(ctx, repository.SettingUserID, user.ID); err != nil {
		return fmt.Errorf("failed to store user id: %w", err)
	}
	if user.Email != "" {
		if err := c.settings.Set(ctx, repository.SettingUserEmail, user.Email); err != nil {
			return fmt.Errorf("failed to store user email: %w", err)
		}
	}
	return nil
}

func (c *Client) clearAuthData(ctx context.Context) {
	for _, key := range []string{
		repository.SettingAuthToken,
		repository.SettingUserID,
		repository.SettingUserEmail,
	} {
		if err := c.settings.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to clear setting", "key", key, "error", err)
		}
	}
}
