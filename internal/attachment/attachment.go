// Package attachment stores receipt files and removes the ones left behind by deleted expenses.
package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	internal "github.com/frahmantamala/expense-reimbursement/internal"
)

// Store keeps receipt files addressed by the url returned from Upload.
type Store interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// New builds the store selected by cfg.Driver. The returned close func releases the store's clients.
func New(ctx context.Context, cfg internal.StorageConfig, logger *slog.Logger) (Store, func() error, error) {
	switch cfg.Driver {
	case "gcs":
		s, err := NewGCSStore(ctx, cfg.Bucket, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("attachment store ready", "driver", "gcs", "bucket", cfg.Bucket)
		return s, s.Close, nil
	case "local", "":
		s, err := NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("attachment store ready", "driver", "local", "dir", cfg.LocalDir)
		return s, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// objectFromURL strips base from url and returns the object path it names.
func objectFromURL(url, base string) (string, error) {
	base = strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", fmt.Errorf("url %q is not served from %q", url, base)
	}
	name := strings.TrimPrefix(url, base)
	if name == "" {
		return "", fmt.Errorf("url %q has no object path", url)
	}
	return name, nil
}
