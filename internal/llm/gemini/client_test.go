package gemini

import (
	"context"
	"testing"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "  ", "", 0); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
