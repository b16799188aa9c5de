package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// LoginResult contains the result of a browser sign-in flow.
type LoginResult struct {
	Token *oauth2.Token
	err   error
}

func (l *LoginResult) Error() error {
	return l.err
}

// TokenHandler handles the redirect that ends a browser sign-in.
// Implements the Handler interface for registration with a Router.
//
// The hosted login page redirects to localhost with access_token,
// refresh_token and expires_in in the query string, plus the state value
// the CLI generated before opening the browser.
type TokenHandler struct {
	state       string
	resultChan  chan LoginResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewTokenHandler creates a new login callback handler with the given state token.
// The state token should be cryptographically random for CSRF protection.
func NewTokenHandler(state string) *TokenHandler {
	return &TokenHandler{
		state:      state,
		resultChan: make(chan LoginResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the login callback request.
//
// Validates the state parameter, reads the session tokens from the query
// string, and sends the result through the result channel.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if state := query.Get("state"); state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.Send(LoginResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	accessToken := query.Get("access_token")
	if accessToken == "" {
		errParam := query.Get("error")
		errDesc := query.Get("error_description")
		err := fmt.Errorf("sign-in failed: %s - %s", errParam, errDesc)
		h.Send(LoginResult{err: err})
		http.Error(w, "Sign-in failed", http.StatusBadRequest)
		return
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: query.Get("refresh_token"),
		TokenType:    "bearer",
	}
	if expiresIn, err := strconv.Atoi(query.Get("expires_in")); err == nil && expiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}

	h.Send(LoginResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Sign-in Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #7D56F4; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Sign-in Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the login result through the channel (only once).
func (h *TokenHandler) Send(result LoginResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving sign-in completion.
//
// Channel will receive exactly one result and then be closed.
func (h *TokenHandler) Result() <-chan LoginResult {
	return h.resultChan
}
