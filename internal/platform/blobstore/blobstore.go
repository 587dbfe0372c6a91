// Package blobstore stores uploaded trial documents (lab reports, echo
// reports, consent forms, bills). It defines the Store interface, a
// GCS-backed implementation, and an in-memory implementation suitable for
// testing and development. Visit documents use the key layout
// visits/<visitID>/<field>/<filename>.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrEmptyKey     = errors.New("object key is required")
	ErrFileTooLarge = errors.New("object exceeds maximum allowed size")
)

// MaxObjectSize is the maximum allowed object size in bytes (50 MB).
const MaxObjectSize = 50 * 1024 * 1024

// Store is the contract for object storage backends.
type Store interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	// PresignedPutURL returns a time-limited URL the browser can PUT the
	// object to directly, bypassing the API server.
	PresignedPutURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// VisitObjectKey builds the canonical key for a visit document.
func VisitObjectKey(visitID, field, filename string) string {
	return path.Join("visits", visitID, field, filename)
}

// GuessContentType maps a key's extension to a MIME type, defaulting to
// application/octet-stream.
func GuessContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	data        []byte
	contentType string
}

// Memory is a thread-safe in-memory Store for testing and development.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]storedObject)}
}

func (m *Memory) Put(_ context.Context, key string, content io.Reader, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxObjectSize+1))
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxObjectSize {
		return ErrFileTooLarge
	}
	if contentType == "" {
		contentType = GuessContentType(key)
	}

	m.mu.Lock()
	m.objects[key] = storedObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", ErrNotFound
	}
	return bytes.Clone(obj.data), obj.contentType, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

// PresignedPutURL returns a synthetic URL; memory-backed stores have no
// external upload endpoint.
func (m *Memory) PresignedPutURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return "memory://" + key, nil
}
