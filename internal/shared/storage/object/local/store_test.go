package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"jobapply-backend/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	obj, err := store.Save(ctx, "session-1", "My Resume.pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(obj.Key, "_My Resume.pdf") {
		t.Fatalf("unexpected key %q", obj.Key)
	}
	if obj.FileName != "My Resume.pdf" || obj.SizeBytes != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected object %#v", obj)
	}
	if obj.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", obj.ContentType)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected contents %q", data)
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Save(context.Background(), "s", "../x.pdf", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal file name to be rejected")
	}
}
