package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// AuthService handles accounts and sessions.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Members sign up with email and password. GitHub sign-in is an optional
// second door into the same account table.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and the issued JWT so the handler can set
// the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUp creates an email/password account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.passwords.CheckStrength(password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMsg("an account with this email already exists")
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("account created", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks email and password. Unknown email and wrong password give
// the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	// GitHub-only accounts have no password.
	if user.PasswordHash == "" {
		return nil, invalid
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: it upserts the
// account on the GitHub ID and issues a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	id := ghUser.ID
	user := &model.User{
		GitHubID:  &id,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account behind a session.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("not signed in")
	}
	return s.users.GetByID(ctx, id)
}

// ValidateToken returns the user ID a JWT encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// IsAdmin reports whether userID holds the admin role. It satisfies
// auth.AdminChecker.
func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.users.IsAdmin(ctx, userID)
}

// SetAdminByEmail grants or revokes the admin role for the account with
// the given email.
func (s *AuthService) SetAdminByEmail(ctx context.Context, email string, admin bool) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetAdmin(ctx, user.ID, admin); err != nil {
		return nil, fmt.Errorf("service/auth: setting admin=%t for %s: %w", admin, user.ID, err)
	}
	user.IsAdmin = admin

	s.logger.Info("admin role changed",
		slog.String("userID", user.ID),
		slog.Bool("admin", admin),
	)
	return user, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "invalid email address")
	}
	return email, nil
}
