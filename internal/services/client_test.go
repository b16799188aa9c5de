package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/averymorin/tunelist/internal/shared"
)

func decodeQuery(raw string) (url.Values, error) {
	return url.ParseQuery(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientOpts{
		BaseURL:   srv.URL,
		AnonKey:   "anon-key",
		RateLimit: 1000,
	})
}

func TestClientSelect(t *testing.T) {
	t.Run("builds eq and in filters", func(t *testing.T) {
		var gotPath, gotQuery, gotAuth string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`[{"id":"song-1","name":"Dust"}]`))
		})

		rows, err := client.Select(context.Background(), SelectParams{
			Table:   "songs",
			Columns: "id,name,slug",
			Eq:      map[string]string{"public": "true"},
			In:      map[string][]string{"id": {"song-1", "song-2"}},
		})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}

		if gotPath != "/rest/v1/songs" {
			t.Errorf("path = %s, want /rest/v1/songs", gotPath)
		}
		if gotAuth != "Bearer anon-key" {
			t.Errorf("authorization = %s, want anon key bearer", gotAuth)
		}

		decoded, err := decodeQuery(gotQuery)
		if err != nil {
			t.Fatalf("failed to parse query: %v", err)
		}
		if decoded.Get("select") != "id,name,slug" {
			t.Errorf("select param = %s", decoded.Get("select"))
		}
		if decoded.Get("public") != "eq.true" {
			t.Errorf("eq param = %s", decoded.Get("public"))
		}
		if decoded.Get("id") != `in.("song-1","song-2")` {
			t.Errorf("in param = %s", decoded.Get("id"))
		}

		if len(rows) != 1 || rows[0]["id"] != "song-1" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := client.Select(context.Background(), SelectParams{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("api error surfaces message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"permission denied for table songs"}`))
		})

		_, err := client.Select(context.Background(), SelectParams{Table: "songs"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestClientInsert(t *testing.T) {
	t.Run("returns representation", func(t *testing.T) {
		var gotPrefer string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPrefer = r.Header.Get("Prefer")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`[{"user_id":"user-1","song_id":"song-1","song_owner_id":"owner-1"}]`))
		})

		rows, err := client.Insert(context.Background(), "song_library", map[string]string{
			"user_id":       "user-1",
			"song_id":       "song-1",
			"song_owner_id": "owner-1",
		})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		if gotPrefer != "return=representation" {
			t.Errorf("prefer header = %s", gotPrefer)
		}
		if len(rows) != 1 || rows[0]["song_id"] != "song-1" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})

	t.Run("tolerates single object response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"song_id":"song-1"}`))
		})

		rows, err := client.Insert(context.Background(), "song_library", map[string]string{"song_id": "song-1"})
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("expected one row, got %d", len(rows))
		}
	})
}

func TestClientDelete(t *testing.T) {
	t.Run("requires filters", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		if err := client.Delete(context.Background(), "song_library", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("sends eq filters", func(t *testing.T) {
		var gotMethod, gotQuery string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusNoContent)
		})

		err := client.Delete(context.Background(), "song_library", map[string]string{
			"user_id": "user-1",
			"song_id": "song-1",
		})
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if gotMethod != http.MethodDelete {
			t.Errorf("method = %s", gotMethod)
		}

		decoded, err := decodeQuery(gotQuery)
		if err != nil {
			t.Fatalf("failed to parse query: %v", err)
		}
		if decoded.Get("user_id") != "eq.user-1" || decoded.Get("song_id") != "eq.song-1" {
			t.Errorf("unexpected filters: %s", gotQuery)
		}
	})
}

func TestQuoteList(t *testing.T) {
	tc := []struct {
		name string
		ids  []string
		want string
	}{
		{name: "plain ids", ids: []string{"a", "b"}, want: `"a","b"`},
		{name: "single id", ids: []string{"song-1"}, want: `"song-1"`},
		{name: "id with quote", ids: []string{`we"ird`}, want: `"we\"ird"`},
		{name: "id with comma", ids: []string{"a,b"}, want: `"a,b"`},
		{name: "empty", ids: nil, want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteList(tt.ids); got != tt.want {
				t.Errorf("QuoteList() = %s, want %s", got, tt.want)
			}
		})
	}
}
