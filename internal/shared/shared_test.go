package shared

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == b {
		t.Error("expected distinct ids")
	}

	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a valid uuid, got %q: %v", a, err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Info("hello")

	if buf.Len() == 0 {
		t.Error("expected log output to be written")
	}
}

func TestVisibilityString(t *testing.T) {
	tc := []struct {
		name   string
		public bool
		want   string
	}{
		{name: "public", public: true, want: "Public"},
		{name: "private", public: false, want: "Private"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibilityString(tt.public); got != tt.want {
				t.Errorf("VisibilityString() = %v, want %v", got, tt.want)
			}
		})
	}
}
