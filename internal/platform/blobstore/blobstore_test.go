package blobstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	key := VisitObjectKey("v1", "echo", "report.pdf")
	if key != "visits/v1/echo/report.pdf" {
		t.Fatalf("VisitObjectKey = %s", key)
	}

	if err := store.Put(ctx, key, strings.NewReader("pdf-bytes"), ""); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	data, contentType, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(data, []byte("pdf-bytes")) {
		t.Errorf("Get() data = %q", data)
	}
	if contentType != "application/pdf" {
		t.Errorf("content type = %s, want application/pdf", contentType)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice = %v, want ErrNotFound", err)
	}
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Put(ctx, "", strings.NewReader("x"), ""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("Put() = %v, want ErrEmptyKey", err)
	}
	if _, err := store.PresignedPutURL(ctx, "", time.Minute); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("PresignedPutURL() = %v, want ErrEmptyKey", err)
	}
}

func TestGuessContentType(t *testing.T) {
	cases := map[string]string{
		"visits/v1/ecg/scan.PNG":    "image/png",
		"visits/v1/safety/a.jpeg":   "image/jpeg",
		"visits/v1/echo/report.pdf": "application/pdf",
		"visits/v1/upt/result.webp": "image/webp",
		"visits/v1/misc/file.bin":   "application/octet-stream",
	}
	for key, want := range cases {
		if got := GuessContentType(key); got != want {
			t.Errorf("GuessContentType(%s) = %s, want %s", key, got, want)
		}
	}
}
