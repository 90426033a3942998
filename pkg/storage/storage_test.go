package storage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStorage(t *testing.T, maxSize int64) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStorage(dir, maxSize, nil)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	return store, dir
}

func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing content: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(int64(len(content)) + 4096)
	if err != nil {
		t.Fatalf("ReadForm failed: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestStorage_ValidateExtension(t *testing.T) {
	store, _ := newTestStorage(t, 1024)

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{name: "pdf", filename: "reading.pdf", wantErr: false},
		{name: "uppercase pdf", filename: "READING.PDF", wantErr: false},
		{name: "exe", filename: "virus.exe", wantErr: true},
		{name: "no extension", filename: "notes", wantErr: true},
		{name: "double extension", filename: "notes.pdf.exe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateExtension(tt.filename)
			if tt.wantErr && !errors.Is(err, ErrExtensionNotAllowed) {
				t.Fatalf("expected ErrExtensionNotAllowed, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStorage_SaveFile(t *testing.T) {
	store, dir := newTestStorage(t, 1024)

	content := []byte("%PDF-1.4 body")
	name, err := store.SaveFile(makeFileHeader(t, "chapter.pdf", content))
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	if !strings.HasSuffix(name, ".pdf") {
		t.Errorf("stored name should keep the extension, got %q", name)
	}
	if name == "chapter.pdf" {
		t.Error("stored name should be server-generated, not the original")
	}

	stored, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored content does not match upload")
	}
	if !store.Exists(name) {
		t.Error("Exists should report the stored file")
	}
}

func TestStorage_SaveFile_Rejections(t *testing.T) {
	store, dir := newTestStorage(t, 8)

	t.Run("bad extension leaves no file", func(t *testing.T) {
		if _, err := store.SaveFile(makeFileHeader(t, "bad.exe", []byte("MZ"))); !errors.Is(err, ErrExtensionNotAllowed) {
			t.Fatalf("expected ErrExtensionNotAllowed, got %v", err)
		}
		assertEmptyDir(t, dir)
	})

	t.Run("oversized file leaves no file", func(t *testing.T) {
		if _, err := store.SaveFile(makeFileHeader(t, "big.pdf", []byte("more than eight bytes"))); err == nil {
			t.Fatal("expected size rejection")
		}
		assertEmptyDir(t, dir)
	})
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty storage dir, found %d entries", len(entries))
	}
}

func TestStorage_DeleteFile(t *testing.T) {
	store, _ := newTestStorage(t, 1024)

	name, err := store.SaveFile(makeFileHeader(t, "gone.pdf", []byte("%PDF")))
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	if err := store.DeleteFile(name); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if store.Exists(name) {
		t.Error("file should be gone after delete")
	}

	// Deleting a missing file is not an error so the caller can retry a
	// half-finished delete
	if err := store.DeleteFile(name); err != nil {
		t.Errorf("deleting a missing file should succeed, got %v", err)
	}
}

func TestStorage_PathSanitized(t *testing.T) {
	store, dir := newTestStorage(t, 1024)

	path := store.Path("../escape.pdf")
	if filepath.Dir(path) != filepath.Clean(dir) {
		t.Errorf("path traversal must be stripped, got %q", path)
	}
}
