package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/logger"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/repository"
	"github.com/gatherly/auth-service/internal/service/session"
	"github.com/gatherly/auth-service/internal/token"
)

// RefreshCookieName is the cookie the refresh token travels in.
// The middleware gates read and clear the same cookie, so the name is a
// package constant rather than a per-service option.
const RefreshCookieName = "refresh_token"

// Interface to create or compare user password hashes
type Hasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during user registration or login process
	// BcryptHasher is used if not set
	Hasher Hasher

	// Logger; no-op if not set
	Logger logger.Logger
}

// Auth service: credentials in, token pairs out
type AuthService struct {
	sessions *session.Manager
	hasher   Hasher
	users    repository.UserRepo

	logger logger.Logger
}

func NewService(cfg Config, sessions *session.Manager, users repository.UserRepo) (*AuthService, error) {
	if sessions == nil || users == nil {
		return nil, errors.New("session manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &AuthService{
		sessions: sessions,
		hasher:   hasher,
		users:    users,
		logger:   log,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username string, email string, password string, fp models.Fingerprint) (models.User, models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.users.Create(ctx, username, email, hash)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	pair, err := s.sessions.IssuePair(ctx, user.ID, fp)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return user, pair, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string, fp models.Fingerprint) (models.User, models.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return models.User{}, models.TokenPair{}, err
	}

	// Compare runs against the empty hash for unknown emails too, so both
	// failure paths look alike to the caller
	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("login error: %w", apperrors.ErrInvalidCredentials)
	}

	pair, err := s.sessions.IssuePair(ctx, user.ID, fp)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return user, pair, nil
}

// Refresh rotates a validated access/refresh pair into a fresh one.
// Pair validation has to happen before (middleware does it); rotation
// keys off the payloads the middleware already decoded.
func (s *AuthService) Refresh(ctx context.Context, access token.Payload, refresh token.Payload, fp models.Fingerprint) (models.TokenPair, error) {
	return s.sessions.Rotate(ctx, refresh.UserID, refresh.LinkedTokenID, refresh.TokenID, fp)
}

// Logout deletes both records of the presented pair
func (s *AuthService) Logout(ctx context.Context, userID string, accessTokenID string, refreshTokenID string) error {
	return s.sessions.RevokePair(ctx, userID, accessTokenID, refreshTokenID)
}

// PublicKey returns the PEM verification key for sibling services
func (s *AuthService) PublicKey() string {
	return s.sessions.PublicKey()
}

// SetAuth writes the refresh token to response as an http only cookie
func (s *AuthService) SetAuth(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		MaxAge:   int(time.Until(pair.Refresh.ExpiresAt).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAuth expires the refresh cookie
func (s *AuthService) ClearAuth(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ReadRefreshToken gets the refresh token string from request cookie
func (s *AuthService) ReadRefreshToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", fmt.Errorf("refresh cookie error: %w", apperrors.ErrTokenNotFound)
	}
	return cookie.Value, nil
}
