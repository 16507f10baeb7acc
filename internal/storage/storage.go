// Package storage keeps uploaded images on local disk.
//
// Files live under Root as {prefix}/{xid}{ext} and are served by the HTTP
// server from /uploads/, so the public URL of a stored file is
// /uploads/{prefix}/{xid}{ext}.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

// URLPrefix is the path the server mounts Root on.
const URLPrefix = "/uploads/"

var (
	ErrNotExist    = errors.New("storage: file does not exist")
	ErrTooLarge    = errors.New("storage: file too large")
	ErrNotImage    = errors.New("storage: file is not an image")
	ErrEmpty       = errors.New("storage: file is empty")
	ErrBadLocation = errors.New("storage: invalid location")
)

// Upload prefixes.
const (
	PrefixOwners = "owners"
	PrefixPosts  = "posts"
	PrefixSite   = "site"
)

var prefixes = map[string]bool{PrefixOwners: true, PrefixPosts: true, PrefixSite: true}

// extensions maps sniffed content types onto the stored file extension.
var extensions = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

// FileStore stores images under Root.
type FileStore struct {
	Root     string
	MaxBytes int64
	logger   *slog.Logger
}

// New creates Root if needed. maxBytes caps each upload.
func New(root string, maxBytes int64, logger *slog.Logger) (*FileStore, error) {
	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("storage: %s is not a directory", root)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating %s: %w", root, err)
		}
	case err != nil:
		return nil, fmt.Errorf("storage: checking %s: %w", root, err)
	}

	return &FileStore{Root: root, MaxBytes: maxBytes, logger: logger}, nil
}

// SaveImage reads an image from r and stores it under prefix. It returns the
// public URL of the new file.
//
// The content type is sniffed from the bytes; the client's declared type and
// file name are ignored.
func (s *FileStore) SaveImage(r io.Reader, prefix string) (string, error) {
	if !prefixes[prefix] {
		return "", ErrBadLocation
	}

	// Read one byte past the limit to tell "exactly MaxBytes" from "more".
	data, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("storage: reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > s.MaxBytes {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, contentType)
	}

	dir := filepath.Join(s.Root, prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", dir, err)
	}

	name := xid.New().String() + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		s.logger.Error("failed to write upload",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("storage: writing %s: %w", name, err)
	}

	s.logger.Info("image stored",
		slog.String("name", path.Join(prefix, name)),
		slog.String("contentType", contentType),
		slog.Int("bytes", len(data)),
	)
	return URLPrefix + path.Join(prefix, name), nil
}

// Open returns the content of the file behind a public URL.
func (s *FileStore) Open(url string) ([]byte, error) {
	p, err := s.localPath(url)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s: %w", p, err)
	}
	return data, nil
}

// Delete removes the file behind a public URL.
func (s *FileStore) Delete(url string) error {
	p, err := s.localPath(url)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotExist
		}
		return fmt.Errorf("storage: removing %s: %w", p, err)
	}
	return nil
}

// localPath maps /uploads/{prefix}/{name} onto Root, refusing anything that
// is not exactly one known prefix and one plain file name.
func (s *FileStore) localPath(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return "", ErrBadLocation
	}
	prefix, name, ok := strings.Cut(rel, "/")
	if !ok || !prefixes[prefix] || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrBadLocation
	}
	return filepath.Join(s.Root, prefix, name), nil
}
