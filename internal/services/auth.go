package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/averymorin/tunelist/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// expirySkew refreshes access tokens slightly before their deadline.
const expirySkew = 30 * time.Second

// User represents the authenticated backend user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// AuthClient manages the session with the backend's auth service.
//
// Sessions are held as [oauth2.Token] values: the backend token endpoint
// speaks password and refresh-token grants, and tokens are persisted to disk
// between runs so the CLI stays signed in.
//
// Implements [oauth2.TokenSource] and [SessionAPI].
type AuthClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *log.Logger
	tokenPath  string

	mu    sync.Mutex
	token *oauth2.Token
}

var _ oauth2.TokenSource = (*AuthClient)(nil)

// AuthOpts contains configuration options for creating an AuthClient.
type AuthOpts struct {
	BaseURL    string
	AnonKey    string
	TokenPath  string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewAuthClient creates an auth client for the backend at opts.BaseURL.
func NewAuthClient(opts AuthOpts) *AuthClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &AuthClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		anonKey:    opts.AnonKey,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		tokenPath:  opts.TokenPath,
	}
}

// tokenResponse is the auth token endpoint's response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Username string `json:"username"`
		} `json:"user_metadata"`
	} `json:"user"`
}

// SignIn performs a password grant and stores the resulting session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := a.tokenRequest(ctx, "password", body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	a.setToken(&resp)

	if err := a.SaveSession(); err != nil {
		a.logger.Warn("failed to persist session", "error", err)
	}

	return &User{
		ID:       resp.User.ID,
		Email:    resp.User.Email,
		Username: resp.User.UserMetadata.Username,
	}, nil
}

// Token returns a valid access token, refreshing the session when it has
// expired. Implements [oauth2.TokenSource].
func (a *AuthClient) Token() (*oauth2.Token, error) {
	return a.tokenContext(context.Background())
}

// AccessToken returns the raw bearer token for request headers.
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	tok, err := a.tokenContext(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (a *AuthClient) tokenContext(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	tok := a.token
	a.mu.Unlock()

	if tok == nil {
		return nil, shared.ErrNotAuthenticated
	}

	if tok.Expiry.IsZero() || time.Until(tok.Expiry) > expirySkew {
		return tok, nil
	}

	refresh, _ := tok.Extra("refresh_token").(string)
	if refresh == "" {
		refresh = tok.RefreshToken
	}
	if refresh == "" {
		return nil, fmt.Errorf("%w: session expired and no refresh token", shared.ErrTokenExpired)
	}

	var resp tokenResponse
	body := map[string]string{"refresh_token": refresh}
	if err := a.tokenRequest(ctx, "refresh_token", body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	fresh := a.setToken(&resp)

	if err := a.SaveSession(); err != nil {
		a.logger.Warn("failed to persist refreshed session", "error", err)
	}

	return fresh, nil
}

func (a *AuthClient) setToken(resp *tokenResponse) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	a.mu.Lock()
	a.token = tok
	a.mu.Unlock()

	return tok
}

// SetSession installs an existing token, e.g. one captured by the local
// login callback server.
func (a *AuthClient) SetSession(tok *oauth2.Token) {
	a.mu.Lock()
	a.token = tok
	a.mu.Unlock()
}

// GetUser fetches the user the current session belongs to.
func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrNotAuthenticated, resp.StatusCode)
	}

	var payload struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Username string `json:"username"`
		} `json:"user_metadata"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unexpected user response: %v", shared.ErrInvalidData, err)
	}

	return &User{ID: payload.ID, Email: payload.Email, Username: payload.UserMetadata.Username}, nil
}

// LoadSession restores a persisted session token from disk.
func (a *AuthClient) LoadSession() error {
	if a.tokenPath == "" {
		return shared.ErrNoSession
	}

	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNoSession, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	a.SetSession(&tok)
	return nil
}

// SaveSession writes the current session token to disk with restrictive
// permissions.
func (a *AuthClient) SaveSession() error {
	a.mu.Lock()
	tok := a.token
	a.mu.Unlock()

	if a.tokenPath == "" || tok == nil {
		return nil
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := os.WriteFile(a.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// tokenRequest posts to the token endpoint with the given grant type.
func (a *AuthClient) tokenRequest(ctx context.Context, grantType string, payload map[string]string, out *tokenResponse) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal token request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", a.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message   string `json:"msg"`
			ErrorDesc string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil {
			if apiErr.Message != "" {
				return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Message)
			}
			if apiErr.ErrorDesc != "" {
				return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.ErrorDesc)
			}
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unexpected token response: %w", err)
	}

	return nil
}
