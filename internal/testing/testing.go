// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/averymorin/tunelist/internal/services"
)

// MockBackend is a configurable test double for the backend client surface
// ([services.Querier], [services.Mutator] and [services.SessionAPI]).
type MockBackend struct {
	User    *services.User
	UserErr error

	SelectFn func(p services.SelectParams) ([]services.Row, error)
	InsertFn func(table string, payload any) ([]services.Row, error)
	DeleteFn func(table string, eq map[string]string) error

	Selects []services.SelectParams
}

func (m *MockBackend) GetUser(ctx context.Context) (*services.User, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	if m.User == nil {
		return &services.User{ID: "user", Email: "user@example.com"}, nil
	}
	return m.User, nil
}

func (m *MockBackend) Select(ctx context.Context, p services.SelectParams) ([]services.Row, error) {
	m.Selects = append(m.Selects, p)
	if m.SelectFn == nil {
		return []services.Row{}, nil
	}
	return m.SelectFn(p)
}

func (m *MockBackend) Insert(ctx context.Context, table string, payload any) ([]services.Row, error) {
	if m.InsertFn == nil {
		return nil, nil
	}
	return m.InsertFn(table, payload)
}

func (m *MockBackend) Upsert(ctx context.Context, table string, payload any) ([]services.Row, error) {
	return m.Insert(ctx, table, payload)
}

func (m *MockBackend) Delete(ctx context.Context, table string, eq map[string]string) error {
	if m.DeleteFn == nil {
		return nil
	}
	return m.DeleteFn(table, eq)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
