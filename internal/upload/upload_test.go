package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fileHeader builds a real multipart.FileHeader by parsing a form.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("postImg", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req.MultipartForm.File["postImg"][0]
}

func TestSaveWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	st, err := New(dir)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	path, err := st.Save(fileHeader(t, "Cat.PNG", []byte("meow")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(path, URLPrefix+"postImg-") || !strings.HasSuffix(path, ".png") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(path, URLPrefix)))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "meow" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestNamesAreUnique(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		name := st.Name(".jpg")
		if seen[name] {
			t.Fatalf("duplicate name %q", name)
		}
		seen[name] = true
	}
}

func TestSaveRejectsUnknownType(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	if _, err := st.Save(fileHeader(t, "script.sh", []byte("#!/bin/sh"))); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
