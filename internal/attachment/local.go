package attachment

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps receipts on disk under dir and serves them back from baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve local dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/files"
	}
	return &LocalStore{dir: abs, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// path maps an object path into dir, refusing anything that escapes it.
func (s *LocalStore) path(objectPath string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(objectPath))
	if p == s.dir || !strings.HasPrefix(p, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("object path %q escapes the store", objectPath)
	}
	return p, nil
}

func (s *LocalStore) Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	p, err := s.path(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create object %q: %w", objectPath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return "", fmt.Errorf("write object %q: %w", objectPath, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close object %q: %w", objectPath, err)
	}
	return s.baseURL + "/" + objectPath, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	name, err := objectFromURL(url, s.baseURL)
	if err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %q: %w", name, err)
	}
	return nil
}

// Ping checks that dir still exists and is a directory.
func (s *LocalStore) Ping(ctx context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("local store: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("local store: %s is not a directory", s.dir)
	}
	return nil
}

// Prefix is the url path the stored files are served under. A base url with a host is reduced to its path.
func (s *LocalStore) Prefix() string {
	u, err := url.Parse(s.baseURL)
	if err != nil || u.Path == "" {
		return "/files"
	}
	return strings.TrimSuffix(u.Path, "/")
}

// Handler serves stored files under Prefix.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(s.Prefix(), http.FileServer(http.Dir(s.dir)))
}
