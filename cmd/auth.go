package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/averymorin/tunelist/internal/server"
	"github.com/averymorin/tunelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginAddr is the local callback address the hosted login page redirects to.
const loginAddr = "127.0.0.1:8976"

// AuthLogin signs in with email/password or through the hosted login page.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth client not initialized", shared.ErrServiceUnavailable)
	}

	if cmd.Bool("browser") {
		return r.browserLogin(ctx)
	}

	email := cmd.String("email")
	if email == "" {
		email = r.config.Auth.Email
	}
	if email == "" {
		return fmt.Errorf("%w: --email is required (or set auth.email in config.toml)", shared.ErrMissingArgument)
	}

	password := cmd.String("password")
	if password == "" {
		r.writePlain("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", shared.ErrMissingArgument)
	}

	r.logger.Infof("signing in as %v", email)

	user, err := r.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if err := r.auth.SaveSession(); err != nil {
		r.logger.Warnf("failed to save session %v", err)
	}

	return r.writePlain("✓ Signed in as %s\n", user.Email)
}

// browserLogin runs the hosted login flow with a local HTTP callback server.
func (r *Runner) browserLogin(ctx context.Context) error {
	state := shared.GenerateID()
	handler := server.NewTokenHandler(state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:    loginAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting login callback server at %v", loginAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	loginURL := fmt.Sprintf(
		"%s/auth/v1/authorize?redirect_to=http://%s/callback&state=%s",
		strings.TrimRight(r.config.Backend.URL, "/"), loginAddr, state,
	)

	r.writePlain("→ Opening browser for sign-in...\n")
	if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
	}

	r.writePlain("→ Waiting for sign-in (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.LoginResult

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: sign-in timed out after 2 minutes", shared.ErrAuthFailed)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return fmt.Errorf("sign-in failed: %w", result.Error())
	}

	if result.Token == nil {
		return fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	r.auth.SetSession(result.Token)
	if err := r.auth.SaveSession(); err != nil {
		r.logger.Warnf("failed to save session %v", err)
	}

	user, err := r.auth.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	return r.writePlain("✓ Signed in as %s\n", user.Email)
}

// AuthLogout removes the saved session file.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	tokenPath := r.config.Auth.TokenPath
	if tokenPath == "" {
		return fmt.Errorf("%w: auth.token_path is not set", shared.ErrInvalidConfig)
	}

	if err := os.Remove(tokenPath); err != nil {
		if os.IsNotExist(err) {
			return r.writePlain("No saved session.\n")
		}
		return fmt.Errorf("failed to remove session: %w", err)
	}

	r.logger.Infof("session removed from %v", tokenPath)
	return r.writePlain("✓ Signed out\n")
}

// AuthWhoami shows the user the current session belongs to.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil {
		return fmt.Errorf("%w: auth client not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.auth.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: run 'tunelist auth login' first: %v", shared.ErrNotAuthenticated, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("  Email: %s\n", user.Email)
	if user.Username != "" {
		r.writePlain("  Username: %s\n", user.Username)
	}
	r.writePlain("  ID: %s\n", user.ID)
	return nil
}
