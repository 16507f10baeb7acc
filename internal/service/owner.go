package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/repository"
)

const (
	MaxDisplayNameLength = 60
	MaxModListLength     = 5000
	MaxHandleLength      = 30

	// Home page section sizes.
	HomeRecentCount   = 6
	HomeFeaturedCount = 3
)

// OwnerService manages member profiles and the views built over them.
//
// Every read goes through registry.Normalize: the repository hands back
// raw rows, and rows that fail normalization are logged and left out.
type OwnerService struct {
	owners repository.OwnerRepository
	logger *slog.Logger
}

func NewOwnerService(owners repository.OwnerRepository, logger *slog.Logger) *OwnerService {
	return &OwnerService{owners: owners, logger: logger}
}

// ProfileInput is what a member submits from the registration or edit form.
type ProfileInput struct {
	DisplayName       string   `json:"displayName"`
	Country           string   `json:"country"`
	Region            string   `json:"region"`
	Year              int      `json:"year"`
	Transmission      string   `json:"transmission"`
	Colour            string   `json:"colour"`
	ModList           string   `json:"modList"`
	InstagramHandle   string   `json:"instagramHandle"`
	InstagramPostURLs []string `json:"instagramPostUrls"`
	PublicProfile     bool     `json:"publicProfile"`
	ShowOnMap         bool     `json:"showOnMap"`
	PhotoURLs         []string `json:"photoUrls"`
}

// validate trims and checks the input against the fixed option sets.
// Region is kept only for RegionCountry.
func (in ProfileInput) validate() (ProfileInput, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		return in, apperror.ValidationFailed("displayName", "display name is required")
	}
	if len([]rune(in.DisplayName)) > MaxDisplayNameLength {
		return in, apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or less", MaxDisplayNameLength))
	}

	in.Country = strings.TrimSpace(in.Country)
	if !slices.Contains(model.Countries, in.Country) {
		return in, apperror.ValidationFailed("country", "choose a country from the list")
	}
	in.Region = strings.TrimSpace(in.Region)
	if in.Country != model.RegionCountry {
		in.Region = ""
	} else if in.Region != "" && !slices.Contains(model.Regions, in.Region) {
		return in, apperror.ValidationFailed("region", "choose a region from the list")
	}

	if !slices.Contains(model.Years, in.Year) {
		return in, apperror.ValidationFailed("year", "choose a model year from the list")
	}
	in.Transmission = strings.TrimSpace(in.Transmission)
	if !slices.Contains(model.Transmissions, in.Transmission) {
		return in, apperror.ValidationFailed("transmission", "choose a transmission from the list")
	}
	in.Colour = strings.TrimSpace(in.Colour)
	if !slices.Contains(model.Colours, in.Colour) {
		return in, apperror.ValidationFailed("colour", "choose a colour from the list")
	}

	in.ModList = strings.TrimSpace(in.ModList)
	if len(in.ModList) > MaxModListLength {
		return in, apperror.ValidationFailed("modList",
			fmt.Sprintf("mod list must be %d characters or less", MaxModListLength))
	}

	in.InstagramHandle = strings.TrimPrefix(strings.TrimSpace(in.InstagramHandle), "@")
	if len(in.InstagramHandle) > MaxHandleLength || strings.ContainsAny(in.InstagramHandle, " /") {
		return in, apperror.ValidationFailed("instagramHandle", "invalid Instagram handle")
	}

	in.InstagramPostURLs = nonBlank(in.InstagramPostURLs)
	if len(in.InstagramPostURLs) > model.MaxPostURLs {
		return in, apperror.ValidationFailed("instagramPostUrls",
			fmt.Sprintf("at most %d Instagram posts", model.MaxPostURLs))
	}
	for _, u := range in.InstagramPostURLs {
		if !isWebURL(u) {
			return in, apperror.ValidationFailed("instagramPostUrls", fmt.Sprintf("invalid URL %q", u))
		}
	}

	in.PhotoURLs = nonBlank(in.PhotoURLs)
	if len(in.PhotoURLs) > model.MaxPhotos {
		return in, apperror.ValidationFailed("photoUrls",
			fmt.Sprintf("at most %d photos", model.MaxPhotos))
	}

	return in, nil
}

func (in ProfileInput) apply(o *model.Owner) {
	o.DisplayName = in.DisplayName
	o.Country = in.Country
	o.Region = in.Region
	o.Year = in.Year
	o.Transmission = in.Transmission
	o.Colour = in.Colour
	o.ModList = in.ModList
	o.InstagramHandle = in.InstagramHandle
	o.InstagramPostURLs = in.InstagramPostURLs
	o.PublicProfile = in.PublicProfile
	o.ShowOnMap = in.ShowOnMap
	o.PhotoURLs = in.PhotoURLs
}

// Register creates the profile for userID. Each account has at most one.
func (s *OwnerService) Register(ctx context.Context, userID string, in ProfileInput) (*model.Owner, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("sign in to register")
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	if _, err := s.owners.GetRowByUserID(ctx, userID); err == nil {
		return nil, apperror.ConflictMsg("you already have a registered profile")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking existing profile: %w", err)
	}

	o := &model.Owner{
		UserID: userID,
		Badges: []string{},
	}
	in.apply(o)

	if err := s.create(ctx, o, in.DisplayName); err != nil {
		return nil, err
	}

	s.logger.Info("owner registered",
		slog.String("ownerID", o.ID),
		slog.String("username", o.Username),
	)
	return o, nil
}

// create picks a free username and inserts o. A unique conflict means either
// the account already has a profile or another registration took the
// username between the check and the insert; the latter is retried once.
func (s *OwnerService) create(ctx context.Context, o *model.Owner, displayName string) error {
	for attempt := 1; ; attempt++ {
		username, err := s.uniqueUsername(ctx, displayName)
		if err != nil {
			return err
		}
		o.Username = username

		err = s.owners.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return fmt.Errorf("creating profile: %w", err)
		}

		if _, err := s.owners.GetRowByUserID(ctx, o.UserID); err == nil {
			return apperror.ConflictMsg("you already have a registered profile")
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("checking existing profile: %w", err)
		}
		if attempt == 2 {
			return apperror.ConflictMsg("that username was just taken, please try again")
		}
		s.logger.Warn("username taken during registration, retrying",
			slog.String("username", username),
		)
	}
}

// uniqueUsername slugs the display name and appends -2, -3, … until the
// username is free.
func (s *OwnerService) uniqueUsername(ctx context.Context, displayName string) (string, error) {
	base := registry.Slugify(displayName)
	if base == "" {
		base = "member"
	}

	candidate := base
	for i := 2; ; i++ {
		taken, err := s.owners.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking username %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

// Mine returns the signed-in member's own profile.
func (s *OwnerService) Mine(ctx context.Context, userID string) (*model.Owner, error) {
	return s.normalize(s.owners.GetRowByUserID(ctx, userID))
}

// UpdateMine replaces the member-editable fields of the caller's profile.
func (s *OwnerService) UpdateMine(ctx context.Context, userID string, in ProfileInput) (*model.Owner, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	o, err := s.Mine(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.apply(o)
	if err := s.owners.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("updating profile %s: %w", o.ID, err)
	}

	s.logger.Info("owner updated", slog.String("ownerID", o.ID))
	return o, nil
}

// DeleteMine removes the caller's profile. The account itself stays.
func (s *OwnerService) DeleteMine(ctx context.Context, userID string) error {
	o, err := s.Mine(ctx, userID)
	if err != nil {
		return err
	}
	return s.Delete(ctx, o.ID)
}

// Member returns a profile by username for /member/{username}. Private
// profiles are visible only to their owner and to admins.
func (s *OwnerService) Member(ctx context.Context, username string, viewer registry.Viewer) (*model.Owner, error) {
	o, err := s.normalize(s.owners.GetRowByUsername(ctx, username))
	if err != nil {
		return nil, err
	}
	if !o.PublicProfile && !viewer.IsAdmin && o.UserID != viewer.UserID {
		return nil, apperror.NotFound("member", username)
	}
	return o, nil
}

// Directory composes the public directory: public profiles only, newest
// first, filtered by colour, country and transmission.
func (s *OwnerService) Directory(ctx context.Context, c registry.Criteria, vc registry.ViewContext) (registry.View, error) {
	records, err := s.load(ctx, repository.OwnerQuery{PublicOnly: true})
	if err != nil {
		return registry.View{}, err
	}

	return registry.Compose(registry.ViewInput{
		Records: records,
		Criteria: registry.Criteria{
			Colour:       c.Colour,
			Country:      c.Country,
			Transmission: c.Transmission,
		},
		OptionFields: registry.DirectoryFields,
		Context:      vc,
	}), nil
}

// HomeView is the render-ready home page.
type HomeView struct {
	Recent   []model.Owner        `json:"recent"`
	Featured []model.Owner        `json:"featured"`
	Stats    registry.Stats       `json:"stats"`
	Context  registry.ViewContext `json:"-"`
}

// Home returns the newest and the featured public profiles plus stats over
// every public profile.
func (s *OwnerService) Home(ctx context.Context, vc registry.ViewContext) (HomeView, error) {
	records, err := s.load(ctx, repository.OwnerQuery{PublicOnly: true})
	if err != nil {
		return HomeView{}, err
	}

	return HomeView{
		Recent:   registry.Recent(records, HomeRecentCount),
		Featured: registry.Featured(records, HomeFeaturedCount),
		Stats:    registry.Compute(records),
		Context:  vc,
	}, nil
}

// AdminView composes the member management list over every profile.
// session, when non-nil, is the admin's open badge edit.
func (s *OwnerService) AdminView(ctx context.Context, c registry.Criteria, vc registry.ViewContext, session *registry.BadgeSession) (registry.View, error) {
	records, err := s.load(ctx, repository.OwnerQuery{})
	if err != nil {
		return registry.View{}, err
	}

	return registry.Compose(registry.ViewInput{
		Records:      records,
		Criteria:     c,
		OptionFields: registry.AdminFields,
		BadgeSession: session,
		Catalogue:    model.AvailableBadges,
		Context:      vc,
	}), nil
}

// All returns every usable profile, newest first.
func (s *OwnerService) All(ctx context.Context) ([]model.Owner, error) {
	return s.load(ctx, repository.OwnerQuery{})
}

// Get returns one profile by ID.
func (s *OwnerService) Get(ctx context.Context, id string) (*model.Owner, error) {
	return s.normalize(s.owners.GetRowByID(ctx, id))
}

// TogglePublic flips a profile's public flag.
func (s *OwnerService) TogglePublic(ctx context.Context, id string) (*model.Owner, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.PublicProfile = !o.PublicProfile
	if err := s.owners.SetPublic(ctx, id, o.PublicProfile); err != nil {
		return nil, err
	}

	s.logger.Info("owner visibility changed", slog.String("ownerID", id), slog.Bool("public", o.PublicProfile))
	return o, nil
}

// ToggleFeatured flips a profile's featured flag.
func (s *OwnerService) ToggleFeatured(ctx context.Context, id string) (*model.Owner, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Featured = !o.Featured
	if err := s.owners.SetFeatured(ctx, id, o.Featured); err != nil {
		return nil, err
	}

	s.logger.Info("owner featured changed", slog.String("ownerID", id), slog.Bool("featured", o.Featured))
	return o, nil
}

// SetBadges stores a committed badge list.
func (s *OwnerService) SetBadges(ctx context.Context, id string, badges []string) error {
	if err := s.owners.SetBadges(ctx, id, badges); err != nil {
		return err
	}
	s.logger.Info("owner badges saved", slog.String("ownerID", id), slog.Int("count", len(badges)))
	return nil
}

// Delete removes a profile.
func (s *OwnerService) Delete(ctx context.Context, id string) error {
	if err := s.owners.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("owner deleted", slog.String("ownerID", id))
	return nil
}

// load lists rows and normalizes them, logging the ones it skips.
func (s *OwnerService) load(ctx context.Context, q repository.OwnerQuery) ([]model.Owner, error) {
	rows, err := s.owners.ListRows(ctx, q)
	if err != nil {
		s.logger.Error("failed to list owners", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing owners: %w", err)
	}

	records, invalid := registry.NormalizeAll(rows)
	for _, r := range invalid {
		s.logger.Warn("skipping incomplete owner row",
			slog.String("ownerID", r.ID),
			slog.String("missing", strings.Join(r.Missing, ",")),
		)
	}
	return records, nil
}

// normalize turns one repository read into an Owner. An incomplete row is
// logged and reported as not found.
func (s *OwnerService) normalize(row registry.RawRow, err error) (*model.Owner, error) {
	if err != nil {
		return nil, err
	}
	res := registry.Normalize(row)
	if !res.OK {
		s.logger.Warn("incomplete owner row",
			slog.String("ownerID", res.ID),
			slog.String("missing", strings.Join(res.Missing, ",")),
		)
		return nil, apperror.NotFound("owner", res.ID)
	}
	return &res.Owner, nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
