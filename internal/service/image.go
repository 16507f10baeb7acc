package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/storage"
)

// ImageStore is the part of storage.FileStore the service needs.
type ImageStore interface {
	SaveImage(r io.Reader, prefix string) (string, error)
	Delete(url string) error
}

// ImageService accepts uploads for owner photos, post covers and site
// assets.
type ImageService struct {
	store    ImageStore
	maxBytes int64
	logger   *slog.Logger
}

func NewImageService(store ImageStore, maxBytes int64, logger *slog.Logger) *ImageService {
	return &ImageService{store: store, maxBytes: maxBytes, logger: logger}
}

// Upload stores an image under prefix (storage.PrefixOwners and so on) and
// returns its public URL. Storage rejections become validation errors.
func (s *ImageService) Upload(_ context.Context, userID, prefix string, r io.Reader) (string, error) {
	url, err := s.store.SaveImage(r, prefix)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrTooLarge):
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("image must be %d MB or smaller", s.maxBytes>>20))
	case errors.Is(err, storage.ErrNotImage):
		return "", apperror.ValidationFailed("file", "file must be a JPEG, PNG, GIF or WebP image")
	case errors.Is(err, storage.ErrEmpty):
		return "", apperror.ValidationFailed("file", "file is empty")
	case errors.Is(err, storage.ErrBadLocation):
		return "", apperror.ValidationFailed("prefix", fmt.Sprintf("unknown upload location %q", prefix))
	default:
		s.logger.Error("upload failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("storing upload: %w", err)
	}

	s.logger.Info("image uploaded", slog.String("userID", userID), slog.String("url", url))
	return url, nil
}

// Remove deletes a previously uploaded image. Missing files are ignored.
func (s *ImageService) Remove(_ context.Context, url string) error {
	err := s.store.Delete(url)
	if err == nil || errors.Is(err, storage.ErrNotExist) {
		return nil
	}
	if errors.Is(err, storage.ErrBadLocation) {
		return apperror.ValidationFailed("url", "not an uploaded image")
	}
	return fmt.Errorf("removing upload: %w", err)
}
