package sessions

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ac := ApplicationContext{ID: "s1", ResumeText: "resume", JobDescription: "job"}
	if err := store.Save(ctx, ac); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ResumeText != "resume" || got.JobDescription != "job" {
		t.Fatalf("unexpected session %#v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	_ = store.Save(ctx, ApplicationContext{ID: "s1"})
	now = now.Add(30 * time.Second)
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("expected live session: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}

	_ = store.Save(ctx, ApplicationContext{ID: "s2"})
	if _, ok := store.data["s1"]; ok {
		t.Fatalf("expected expired session swept on save")
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		ac       ApplicationContext
		analysis bool
		email    bool
	}{
		{name: "empty", ac: ApplicationContext{}},
		{name: "resume only", ac: ApplicationContext{ResumeText: "r"}},
		{name: "blank job", ac: ApplicationContext{ResumeText: "r", JobDescription: "  "}},
		{name: "analysis ready", ac: ApplicationContext{ResumeText: "r", JobDescription: "j"}, analysis: true},
		{
			name:     "missing attachment",
			ac:       ApplicationContext{ResumeText: "r", JobDescription: "j", RecipientEmail: "a@b.co"},
			analysis: true,
		},
		{
			name:     "email ready",
			ac:       ApplicationContext{ResumeText: "r", JobDescription: "j", RecipientEmail: "a@b.co", AttachmentPath: "k"},
			analysis: true,
			email:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ac.ReadyForAnalysis(); got != tt.analysis {
				t.Fatalf("ReadyForAnalysis = %v, want %v", got, tt.analysis)
			}
			if got := tt.ac.ReadyForEmail(); got != tt.email {
				t.Fatalf("ReadyForEmail = %v, want %v", got, tt.email)
			}
		})
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "http://localhost:6379", time.Hour); err == nil {
		t.Fatalf("expected error for non-redis scheme")
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "jobapply:session:abc" {
		t.Fatalf("redisKey = %q", got)
	}
}
