package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStorePutGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewFSStore(root)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path, err := store.Put(ctx, "certificates/a.pdf", strings.NewReader("pdf-bytes"), 9, "application/pdf")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if path != filepath.Join(root, "certificates", "a.pdf") {
		t.Fatalf("unexpected path %q", path)
	}

	rc, err := store.Get(ctx, "certificates/a.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("pdf-bytes")) {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, key := range []string{"", "../x.pdf", "a/../../x.pdf", "  "} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestNewMinioStoreRequiresBucket(t *testing.T) {
	if _, err := NewMinioStore(MinioConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
	store, err := NewMinioStore(MinioConfig{Endpoint: "localhost:9000", Bucket: "certs"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Put(context.Background(), "../x", strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
