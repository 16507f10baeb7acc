package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/repository"
	"github.com/sakif/owners-club/internal/repository/sqlite"
)

// =========================================================================
// FIXTURES
// =========================================================================

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestOwnerService(t *testing.T) (*OwnerService, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewOwnerService(db.Owners(), quietLogger()), db
}

// newUser creates an account and returns its ID.
func newUser(t *testing.T, db *sqlite.DB, email string) string {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Users().Create(context.Background(), u))
	return u.ID
}

func validProfile() ProfileInput {
	return ProfileInput{
		DisplayName:   "Sam Driver",
		Country:       "Japan",
		Year:          2016,
		Transmission:  "Manual",
		Colour:        "Red",
		PublicProfile: true,
	}
}

// register creates a user and a profile in one step.
func register(t *testing.T, svc *OwnerService, db *sqlite.DB, email string, in ProfileInput) *model.Owner {
	t.Helper()
	o, err := svc.Register(context.Background(), newUser(t, db, email), in)
	require.NoError(t, err)
	return o
}

// =========================================================================
// REGISTER / VALIDATION
// =========================================================================

func TestRegister_NormalizesInput(t *testing.T) {
	svc, db := newTestOwnerService(t)

	in := validProfile()
	in.DisplayName = "  Sam Driver "
	in.Region = "London" // dropped: not the region country
	in.InstagramHandle = " @sam.gr86 "
	in.InstagramPostURLs = []string{" https://www.instagram.com/p/abc/ ", "", "  "}
	in.PhotoURLs = []string{"/uploads/owners/a.jpg", ""}

	o := register(t, svc, db, "sam@example.com", in)

	assert.Equal(t, "sam-driver", o.Username)
	assert.Equal(t, "Sam Driver", o.DisplayName)
	assert.Empty(t, o.Region)
	assert.Equal(t, "sam.gr86", o.InstagramHandle)
	assert.Equal(t, []string{"https://www.instagram.com/p/abc/"}, o.InstagramPostURLs)
	assert.Equal(t, []string{"/uploads/owners/a.jpg"}, o.PhotoURLs)
	assert.Equal(t, []string{}, o.Badges)
}

func TestRegister_KeepsRegionForRegionCountry(t *testing.T) {
	svc, db := newTestOwnerService(t)

	in := validProfile()
	in.Country = model.RegionCountry
	in.Region = "Scotland"
	o := register(t, svc, db, "a@example.com", in)
	assert.Equal(t, "Scotland", o.Region)

	in.Region = "Atlantis"
	_, err := svc.Register(context.Background(), newUser(t, db, "b@example.com"), in)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *ProfileInput)
		field  string
	}{
		{"missing display name", func(in *ProfileInput) { in.DisplayName = " " }, "displayName"},
		{"unknown country", func(in *ProfileInput) { in.Country = "Narnia" }, "country"},
		{"unknown year", func(in *ProfileInput) { in.Year = 1999 }, "year"},
		{"unknown transmission", func(in *ProfileInput) { in.Transmission = "CVT" }, "transmission"},
		{"unknown colour", func(in *ProfileInput) { in.Colour = "Purple" }, "colour"},
		{"handle with spaces", func(in *ProfileInput) { in.InstagramHandle = "two words" }, "instagramHandle"},
		{"four posts", func(in *ProfileInput) {
			in.InstagramPostURLs = []string{"https://a.io/1", "https://a.io/2", "https://a.io/3", "https://a.io/4"}
		}, "instagramPostUrls"},
		{"post not a URL", func(in *ProfileInput) { in.InstagramPostURLs = []string{"javascript:alert(1)"} }, "instagramPostUrls"},
		{"four photos", func(in *ProfileInput) { in.PhotoURLs = []string{"a", "b", "c", "d"} }, "photoUrls"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newTestOwnerService(t)
			in := validProfile()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), newUser(t, db, "v@example.com"), in)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr), "want AppError, got %v", err)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestRegister_OneProfilePerUser(t *testing.T) {
	svc, db := newTestOwnerService(t)
	userID := newUser(t, db, "once@example.com")

	_, err := svc.Register(context.Background(), userID, validProfile())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), userID, validProfile())
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegister_UsernameCollisionGetsSuffix(t *testing.T) {
	svc, db := newTestOwnerService(t)

	a := register(t, svc, db, "a@example.com", validProfile())
	b := register(t, svc, db, "b@example.com", validProfile())
	c := register(t, svc, db, "c@example.com", validProfile())

	assert.Equal(t, "sam-driver", a.Username)
	assert.Equal(t, "sam-driver-2", b.Username)
	assert.Equal(t, "sam-driver-3", c.Username)
}

func TestRegister_RequiresUser(t *testing.T) {
	svc, _ := newTestOwnerService(t)
	_, err := svc.Register(context.Background(), "", validProfile())
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

// racingOwners lets another account insert a profile with the same username
// just before each of the first `races` Create calls goes through.
type racingOwners struct {
	repository.OwnerRepository
	rivals []string
	races  int
}

func (r *racingOwners) Create(ctx context.Context, o *model.Owner) error {
	if r.races > 0 {
		r.races--
		rival := &model.Owner{
			UserID:        r.rivals[r.races],
			DisplayName:   o.DisplayName,
			Username:      o.Username,
			Country:       o.Country,
			Year:          o.Year,
			Transmission:  o.Transmission,
			Colour:        o.Colour,
			PublicProfile: true,
		}
		if err := r.OwnerRepository.Create(ctx, rival); err != nil {
			return err
		}
	}
	return r.OwnerRepository.Create(ctx, o)
}

func TestRegister_UsernameRaceIsRetried(t *testing.T) {
	db := newTestDB(t)
	repo := &racingOwners{
		OwnerRepository: db.Owners(),
		rivals:          []string{newUser(t, db, "rival@example.com")},
		races:           1,
	}
	svc := NewOwnerService(repo, quietLogger())

	o, err := svc.Register(context.Background(), newUser(t, db, "me@example.com"), validProfile())
	require.NoError(t, err)
	assert.Equal(t, "sam-driver-2", o.Username)

	rival, err := svc.Member(context.Background(), "sam-driver", registry.Viewer{})
	require.NoError(t, err)
	assert.NotEqual(t, o.ID, rival.ID)
}

func TestRegister_UsernameRaceLostTwice(t *testing.T) {
	db := newTestDB(t)
	repo := &racingOwners{
		OwnerRepository: db.Owners(),
		rivals: []string{
			newUser(t, db, "rival1@example.com"),
			newUser(t, db, "rival2@example.com"),
		},
		races: 2,
	}
	svc := NewOwnerService(repo, quietLogger())

	_, err := svc.Register(context.Background(), newUser(t, db, "me@example.com"), validProfile())
	require.ErrorIs(t, err, apperror.ErrConflict)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "username was just taken")
}

// =========================================================================
// OWN PROFILE
// =========================================================================

func TestMineUpdateDelete(t *testing.T) {
	svc, db := newTestOwnerService(t)
	ctx := context.Background()
	userID := newUser(t, db, "me@example.com")

	_, err := svc.Mine(ctx, userID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "no profile yet")

	created, err := svc.Register(ctx, userID, validProfile())
	require.NoError(t, err)

	in := validProfile()
	in.Colour = "Silver"
	in.ModList = "coilovers"
	updated, err := svc.UpdateMine(ctx, userID, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Username, updated.Username, "username is fixed at registration")

	mine, err := svc.Mine(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Silver", mine.Colour)
	assert.Equal(t, "coilovers", mine.ModList)

	require.NoError(t, svc.DeleteMine(ctx, userID))
	_, err = svc.Mine(ctx, userID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// PUBLIC VIEWS
// =========================================================================

func TestMember_PrivateVisibleToOwnerAndAdminOnly(t *testing.T) {
	svc, db := newTestOwnerService(t)
	ctx := context.Background()

	in := validProfile()
	in.PublicProfile = false
	o := register(t, svc, db, "shy@example.com", in)

	_, err := svc.Member(ctx, o.Username, registry.Viewer{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Member(ctx, o.Username, registry.Viewer{UserID: o.UserID})
	assert.NoError(t, err)

	_, err = svc.Member(ctx, o.Username, registry.Viewer{UserID: "someone", IsAdmin: true})
	assert.NoError(t, err)

	_, err = svc.Member(ctx, "nobody", registry.Viewer{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDirectory_PublicOnlyAndFiltered(t *testing.T) {
	svc, db := newTestOwnerService(t)

	red := validProfile()
	silver := validProfile()
	silver.Colour = "Silver"
	silver.Country = "Germany"
	hidden := validProfile()
	hidden.PublicProfile = false

	register(t, svc, db, "a@example.com", red)
	register(t, svc, db, "b@example.com", silver)
	register(t, svc, db, "c@example.com", hidden)

	view, err := svc.Directory(context.Background(),
		registry.Criteria{Colour: "Red", Status: registry.StatusPrivate},
		registry.ViewContext{Viewer: registry.Viewer{UserID: "u"}},
	)
	require.NoError(t, err)

	// Status is an admin-only criterion and is ignored here.
	require.Len(t, view.Records, 1)
	assert.Equal(t, "Red", view.Records[0].Colour)
	assert.Equal(t, 2, view.Total)
	assert.Equal(t, 2, view.Stats.Public)
	assert.Equal(t, []string{"Germany", "Japan"}, view.Options["country"])
	assert.Equal(t, "u", view.Context.Viewer.UserID)
	assert.Nil(t, view.BadgeEdit)
}

func TestHome(t *testing.T) {
	svc, db := newTestOwnerService(t)
	ctx := context.Background()

	var ids []string
	for i, email := range []string{"1@x.io", "2@x.io", "3@x.io", "4@x.io", "5@x.io", "6@x.io", "7@x.io"} {
		in := validProfile()
		if i == 0 {
			in.Country = "Germany"
		}
		ids = append(ids, register(t, svc, db, email, in).ID)
	}
	_, err := svc.ToggleFeatured(ctx, ids[0])
	require.NoError(t, err)

	home, err := svc.Home(ctx, registry.ViewContext{})
	require.NoError(t, err)

	assert.Len(t, home.Recent, HomeRecentCount)
	require.Len(t, home.Featured, 1)
	assert.Equal(t, ids[0], home.Featured[0].ID)
	assert.Equal(t, registry.Stats{Total: 7, Countries: 2, Featured: 1, Public: 7}, home.Stats)
}

// =========================================================================
// ADMIN
// =========================================================================

func TestAdminToggles(t *testing.T) {
	svc, db := newTestOwnerService(t)
	ctx := context.Background()
	o := register(t, svc, db, "a@example.com", validProfile())

	toggled, err := svc.TogglePublic(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, toggled.PublicProfile)

	toggled, err = svc.ToggleFeatured(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Featured)

	view, err := svc.AdminView(ctx, registry.Criteria{Status: registry.StatusPrivate}, registry.ViewContext{}, nil)
	require.NoError(t, err)
	require.Len(t, view.Records, 1)
	assert.True(t, view.Records[0].Featured)

	_, err = svc.TogglePublic(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, o.ID))
	assert.ErrorIs(t, svc.Delete(ctx, o.ID), apperror.ErrNotFound)
}
