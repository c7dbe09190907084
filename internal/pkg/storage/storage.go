// internal/pkg/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

const (
	DriverLocal = "local"
	DriverGCS   = "gcs"
)

// Store is binary object storage addressed by slash-separated paths.
type Store interface {
	// Upload writes the object and returns its public URL.
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

type Config struct {
	Driver          string
	LocalDir        string
	PublicBaseURL   string
	GCSBucket       string
	CredentialsFile string
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case DriverGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName reduces a client-supplied file name to a safe path segment.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

// cleanObjectPath rejects absolute paths and parent traversal.
func cleanObjectPath(p string) (string, error) {
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != p {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}
