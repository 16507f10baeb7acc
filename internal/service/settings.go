package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// MaxSettingLength caps a single setting value.
const MaxSettingLength = 5000

// SettingsService reads and writes the site settings. Every page render
// needs them, so reads are served from a cache that Set invalidates.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger

	mu     sync.RWMutex
	cached model.SiteSettings // nil = not loaded
}

func NewSettingsService(repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// All returns a copy of every stored setting.
func (s *SettingsService) All(ctx context.Context) (model.SiteSettings, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		loaded, err := s.repo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		if loaded == nil {
			loaded = model.SiteSettings{}
		}
		s.cached = loaded
	}
	return s.cached.Clone(), nil
}

// ForRender is All for page rendering: a storage failure is logged and
// yields empty settings so the page still renders.
func (s *SettingsService) ForRender(ctx context.Context) model.SiteSettings {
	settings, err := s.All(ctx)
	if err != nil {
		s.logger.Error("failed to load settings", slog.String("error", err.Error()))
		return model.SiteSettings{}
	}
	return settings
}

// Get returns one setting, "" when unset.
func (s *SettingsService) Get(ctx context.Context, key string) (string, error) {
	if !model.IsSettingKey(key) {
		return "", apperror.ValidationFailed("key", fmt.Sprintf("unknown setting %q", key))
	}
	all, err := s.All(ctx)
	if err != nil {
		return "", err
	}
	return all.Get(key), nil
}

// Set stores one setting and drops the cache.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if !model.IsSettingKey(key) {
		return apperror.ValidationFailed("key", fmt.Sprintf("unknown setting %q", key))
	}
	if len(value) > MaxSettingLength {
		return apperror.ValidationFailed(key,
			fmt.Sprintf("value must be %d characters or less", MaxSettingLength))
	}

	if err := s.repo.Set(ctx, key, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	s.invalidate()

	s.logger.Info("setting updated", slog.String("key", key))
	return nil
}

// SetMany validates every pair, then stores them all in one write. Either
// every value is saved or none is.
func (s *SettingsService) SetMany(ctx context.Context, values map[string]string) error {
	clean := make(map[string]string, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if !model.IsSettingKey(key) {
			return apperror.ValidationFailed("key", fmt.Sprintf("unknown setting %q", key))
		}
		if len(value) > MaxSettingLength {
			return apperror.ValidationFailed(key,
				fmt.Sprintf("value must be %d characters or less", MaxSettingLength))
		}
		clean[key] = strings.TrimSpace(value)
	}
	if len(clean) == 0 {
		return nil
	}

	if err := s.repo.SetMany(ctx, clean); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.invalidate()

	s.logger.Info("settings updated", slog.Int("count", len(clean)))
	return nil
}

func (s *SettingsService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}
