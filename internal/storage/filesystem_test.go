package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesystemStore_UploadAndRemove(t *testing.T) {
	store, errNew := NewFilesystemStore(t.TempDir(), "/assets/")
	if errNew != nil {
		t.Fatalf("new store: %v", errNew)
	}

	path, errUpload := store.Upload(context.Background(), "1700000000-abcd1234.png", "image/png", strings.NewReader("payload"))
	if errUpload != nil {
		t.Fatalf("upload: %v", errUpload)
	}
	if path != "1700000000-abcd1234.png" {
		t.Fatalf("unexpected object path %q", path)
	}

	data, errRead := os.ReadFile(filepath.Join(store.Root(), path))
	if errRead != nil {
		t.Fatalf("read object: %v", errRead)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected object contents %q", data)
	}

	if got := store.PublicURL(path); got != "/assets/1700000000-abcd1234.png" {
		t.Fatalf("unexpected public url %q", got)
	}

	if errRemove := store.Remove(context.Background(), path); errRemove != nil {
		t.Fatalf("remove: %v", errRemove)
	}
	if _, errStat := os.Stat(filepath.Join(store.Root(), path)); !os.IsNotExist(errStat) {
		t.Fatalf("expected object to be gone, got %v", errStat)
	}
	// Removing again is a no-op.
	if errRemove := store.Remove(context.Background(), path); errRemove != nil {
		t.Fatalf("second remove: %v", errRemove)
	}
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	store, errNew := NewFilesystemStore(t.TempDir(), "/assets")
	if errNew != nil {
		t.Fatalf("new store: %v", errNew)
	}
	path, errUpload := store.Upload(context.Background(), "../../etc/passwd", "", strings.NewReader("x"))
	if errUpload != nil {
		t.Fatalf("upload: %v", errUpload)
	}
	if strings.Contains(path, "..") || strings.Contains(path, "/") {
		t.Fatalf("expected sanitized object name, got %q", path)
	}
}
