package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
)

// countingSettingsRepo counts GetAll calls to observe the cache.
type countingSettingsRepo struct {
	values map[string]string
	loads  int
	err    error
}

func (r *countingSettingsRepo) GetAll(_ context.Context) (model.SiteSettings, error) {
	r.loads++
	if r.err != nil {
		return nil, r.err
	}
	out := model.SiteSettings{}
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *countingSettingsRepo) Set(_ context.Context, key, value string) error {
	r.values[key] = value
	return nil
}

func (r *countingSettingsRepo) SetMany(_ context.Context, values map[string]string) error {
	if r.err != nil {
		return r.err
	}
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}

func TestSettings_CacheAndInvalidate(t *testing.T) {
	repo := &countingSettingsRepo{values: map[string]string{model.SettingSiteTitle: "Owners Club"}}
	svc := NewSettingsService(repo, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Owners Club", got.Get(model.SettingSiteTitle))
	}
	assert.Equal(t, 1, repo.loads, "reads are cached")

	require.NoError(t, svc.Set(ctx, model.SettingSiteTitle, "  GR86 Club  "))
	title, err := svc.Get(ctx, model.SettingSiteTitle)
	require.NoError(t, err)
	assert.Equal(t, "GR86 Club", title)
	assert.Equal(t, 2, repo.loads, "Set invalidates the cache")
}

func TestSettings_ReturnedMapIsACopy(t *testing.T) {
	repo := &countingSettingsRepo{values: map[string]string{model.SettingFooterText: "©"}}
	svc := NewSettingsService(repo, quietLogger())

	got, err := svc.All(context.Background())
	require.NoError(t, err)
	got[model.SettingFooterText] = "mutated"

	again, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "©", again.Get(model.SettingFooterText))
}

func TestSettings_RejectsUnknownKeysAndLongValues(t *testing.T) {
	repo := &countingSettingsRepo{values: map[string]string{}}
	svc := NewSettingsService(repo, quietLogger())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Set(ctx, "admin_password", "x"), apperror.ErrValidation)
	_, err := svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.ErrorIs(t, svc.Set(ctx, model.SettingIntro, strings.Repeat("a", MaxSettingLength+1)), apperror.ErrValidation)

	err = svc.SetMany(ctx, map[string]string{model.SettingTagline: "ok", "bogus": "x"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, repo.values, "nothing is written when any key is bad")

	require.NoError(t, svc.SetMany(ctx, map[string]string{model.SettingTagline: "ok", model.SettingHeroCTA: "Join"}))
	assert.Len(t, repo.values, 2)
}

func TestSettings_ForRenderSurvivesStorageFailure(t *testing.T) {
	repo := &countingSettingsRepo{err: errors.New("locked")}
	svc := NewSettingsService(repo, quietLogger())

	got := svc.ForRender(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSettings_SetManyWritesOneBatch(t *testing.T) {
	repo := &countingSettingsRepo{values: map[string]string{model.SettingTagline: "old"}}
	svc := NewSettingsService(repo, quietLogger())
	ctx := context.Background()

	_, err := svc.All(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SetMany(ctx, map[string]string{
		model.SettingTagline: "  new  ",
		model.SettingHeroCTA: "Join",
	}))
	got, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Get(model.SettingTagline))
	assert.Equal(t, "Join", got.Get(model.SettingHeroCTA))
	assert.Equal(t, 2, repo.loads, "SetMany invalidates the cache")

	repo.err = errors.New("disk full")
	err = svc.SetMany(ctx, map[string]string{model.SettingTagline: "lost", model.SettingHeroCTA: "lost"})
	require.Error(t, err)
	assert.Equal(t, "new", repo.values[model.SettingTagline])
	assert.Equal(t, "Join", repo.values[model.SettingHeroCTA])
}
