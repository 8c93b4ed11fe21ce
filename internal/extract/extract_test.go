package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"jobapply-backend/internal/shared/storage/object/local"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t>Backend</w:t></w:r><w:r><w:tab/><w:t>Engineer</w:t></w:r></w:p>
</w:body>
</w:document>`

const documentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func buildDocx(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestFromBytesDocx(t *testing.T) {
	data := buildDocx(t, map[string]string{
		"word/document.xml":            documentXML,
		"word/_rels/document.xml.rels": documentRels,
	})

	for _, mime := range []string{mimeDOCX, "application/zip"} {
		text, err := FromBytes(context.Background(), data, mime, "resume.docx")
		if err != nil {
			t.Fatalf("FromBytes(%s): %v", mime, err)
		}
		if text != "Jane Doe\nBackend\tEngineer" {
			t.Fatalf("unexpected text %q", text)
		}
	}
}

func TestFromBytesPlainText(t *testing.T) {
	text, err := FromBytes(context.Background(), []byte("  John Smith\nEngineer \n"), "text/plain; charset=utf-8", "")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if text != "John Smith\nEngineer" {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := FromBytes(context.Background(), []byte("   "), "", "notes.txt"); !errors.Is(err, ErrNoText) {
		t.Fatalf("expected ErrNoText, got %v", err)
	}
}

func TestFromBytesRejectsUnknown(t *testing.T) {
	data := buildDocx(t, map[string]string{"notes.txt": "hello"})
	_, err := FromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromBytesBrokenPDF(t *testing.T) {
	if _, err := FromBytes(context.Background(), []byte("%PDF-1.4 not really"), "application/pdf", "r.pdf"); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestFromObject(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	obj, err := store.Save(ctx, "sess", "resume.txt", strings.NewReader("Jane Doe\nGo developer"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	text, err := FromObject(ctx, store, obj)
	if err != nil {
		t.Fatalf("FromObject: %v", err)
	}
	if text != "Jane Doe\nGo developer" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestNormalizeMimeType(t *testing.T) {
	tests := []struct {
		mime, name, want string
	}{
		{"application/pdf", "", mimePDF},
		{"application/octet-stream", "cv.PDF", mimePDF},
		{"", "cv.docx", mimeDOCX},
		{"text/plain; charset=utf-8", "", mimePlain},
		{"image/png", "x.png", "image/png"},
	}
	for _, tt := range tests {
		if got := normalizeMimeType(tt.mime, tt.name, nil); got != tt.want {
			t.Fatalf("normalizeMimeType(%q, %q) = %q, want %q", tt.mime, tt.name, got, tt.want)
		}
	}
}
