package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBasicRouter(t *testing.T) {
	t.Run("routes by method", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("GET", "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "pong")
		}))

		srv := httptest.NewServer(router)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/ping")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}

		resp, err = http.Post(srv.URL+"/ping", "text/plain", nil)
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST status = %d, want 405", resp.StatusCode)
		}
	})

	t.Run("applies middleware in order", func(t *testing.T) {
		router := NewBasicRouter()

		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		router.Use(mw("first"), mw("second"))
		router.Handle("GET", "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("GET", "/", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("middleware order = %v", order)
		}
	})
}

func TestTokenHandler(t *testing.T) {
	t.Run("valid callback delivers token", func(t *testing.T) {
		handler := NewTokenHandler("state-123")

		req := httptest.NewRequest("GET", "/callback?state=state-123&access_token=at&refresh_token=rt&expires_in=3600", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Token.AccessToken != "at" || result.Token.RefreshToken != "rt" {
			t.Errorf("token = %+v", result.Token)
		}
		if result.Token.Expiry.IsZero() {
			t.Error("expiry should be set from expires_in")
		}
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		handler := NewTokenHandler("state-123")

		req := httptest.NewRequest("GET", "/callback?state=wrong&access_token=at", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if result := <-handler.Result(); result.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		handler := NewTokenHandler("state-123")

		req := httptest.NewRequest("GET", "/callback?state=state-123&error=access_denied&error_description=denied", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if result := <-handler.Result(); result.Error() == nil {
			t.Error("expected sign-in error")
		}
	})

	t.Run("second callback is ignored", func(t *testing.T) {
		handler := NewTokenHandler("state-123")

		first := httptest.NewRequest("GET", "/callback?state=state-123&access_token=at", nil)
		handler.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest("GET", "/callback?state=state-123&access_token=other", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("replay status = %d, want 400", rec.Code)
		}

		result := <-handler.Result()
		if result.Token.AccessToken != "at" {
			t.Errorf("replay must not overwrite the first result, got %q", result.Token.AccessToken)
		}
	})
}
