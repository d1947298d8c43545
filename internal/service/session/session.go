package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/logger"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/repository"
	"github.com/gatherly/auth-service/internal/token"
)

const (
	defaultAccessTokenTTL  = 20 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Manager with sensible defaults
type Config struct {
	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Logger; no-op if not set
	Logger logger.Logger
}

// Manager owns the access/refresh token pair lifecycle: issuance,
// rotation, revocation and the device-bound pair validation
type Manager struct {
	codec  *token.Codec
	tokens repository.TokenRepo

	accessTTL  time.Duration
	refreshTTL time.Duration

	logger logger.Logger
}

func NewManager(cfg Config, codec *token.Codec, tokens repository.TokenRepo) (*Manager, error) {
	if codec == nil {
		return nil, errors.New("codec must not be nil")
	}
	if tokens == nil {
		return nil, errors.New("token repo must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Manager{
		codec:      codec,
		tokens:     tokens,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     log,
	}, nil
}

// IssuePair creates an access token and a refresh token carrying the
// access token id as its linked token id, and persists both records
// bound to the sender fingerprint.
// The table store has no cross-item transactions: if the refresh half
// fails to persist the already saved access record is deleted best
// effort and the whole operation reports failure.
func (m *Manager) IssuePair(ctx context.Context, userID string, fp models.Fingerprint) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)
	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	accessID, access, err := m.codec.Create(
		token.Payload{UserID: userID, Type: models.TokenTypeAccess},
		m.accessTTL,
	)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refreshID, refresh, err := m.codec.Create(
		token.Payload{UserID: userID, Type: models.TokenTypeRefresh, LinkedTokenID: accessID},
		m.refreshTTL,
	)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	err = m.tokens.Save(ctx, models.TokenRecord{
		UserID:      userID,
		TokenID:     accessID,
		Type:        models.TokenTypeAccess,
		Fingerprint: fp,
		IssuedAt:    now,
		ExpiresAt:   accessExpiresAt,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving access token. Err: %w", err)
	}

	err = m.tokens.Save(ctx, models.TokenRecord{
		UserID:        userID,
		TokenID:       refreshID,
		Type:          models.TokenTypeRefresh,
		LinkedTokenID: accessID,
		Fingerprint:   fp,
		IssuedAt:      now,
		ExpiresAt:     refreshExpiresAt,
	})
	if err != nil {
		// Don't leave the orphaned half alive longer than needed
		if delErr := m.tokens.Delete(ctx, userID, accessID); delErr != nil {
			m.logger.Warn("could not clean up orphaned access token", "user_id", userID, "error", delErr.Error())
		}
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{TokenID: accessID, Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{TokenID: refreshID, Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

// Rotate deletes the presented pair's records and issues a fresh pair
func (m *Manager) Rotate(ctx context.Context, userID string, accessTokenID string, refreshTokenID string, fp models.Fingerprint) (models.TokenPair, error) {
	if err := m.RevokePair(ctx, userID, accessTokenID, refreshTokenID); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while revoking old pair. Err: %w", err)
	}

	return m.IssuePair(ctx, userID, fp)
}

// RevokePair deletes both records of a pair
// Already missing records are fine: revocation is idempotent
func (m *Manager) RevokePair(ctx context.Context, userID string, accessTokenID string, refreshTokenID string) error {
	for _, tokenID := range []string{accessTokenID, refreshTokenID} {
		if tokenID == "" {
			continue
		}

		err := m.tokens.Delete(ctx, userID, tokenID)
		if err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
			return fmt.Errorf("error while deleting token. Err: %w", err)
		}
	}

	return nil
}

// ValidatePair is the core security check: the presented access/refresh
// pair must be the one on record, unmodified, not revoked, and bound to
// the same device that originally received it. Any mismatch burns both
// tokens (defensive revocation) and returns apperrors.ErrPairMismatch.
func (m *Manager) ValidatePair(ctx context.Context, access token.Payload, refresh token.Payload, fp models.Fingerprint) error {
	if refresh.UserID == "" || refresh.TokenID == "" {
		return fmt.Errorf("refresh payload incomplete: %w", apperrors.ErrTokenInvalid)
	}

	record, err := m.tokens.Get(ctx, refresh.UserID, refresh.TokenID)
	if err != nil {
		return err
	}

	sameFingerprint := record.Fingerprint == fp
	sameLinkedToken := record.LinkedTokenID == access.TokenID
	sameUser := access.UserID == refresh.UserID

	if !sameFingerprint || !sameLinkedToken || !sameUser || record.Revoked {
		m.logger.Warn("token pair validation failed, revoking pair",
			"user_id", refresh.UserID,
			"same_fingerprint", sameFingerprint,
			"same_linked_token", sameLinkedToken,
		)
		if err := m.RevokePair(ctx, refresh.UserID, record.LinkedTokenID, refresh.TokenID); err != nil {
			m.logger.Error("defensive revocation failed", "user_id", refresh.UserID, "error", err.Error())
		}
		return fmt.Errorf("validation error: %w", apperrors.ErrPairMismatch)
	}

	return nil
}

// DecodeAccess parses and verifies an access token
func (m *Manager) DecodeAccess(tokenString string) (token.Payload, error) {
	return m.decodeTyped(tokenString, models.TokenTypeAccess, false)
}

// DecodeExpiredAccess parses an access token ignoring signature and
// expiry, for the refresh flow bootstrap only
func (m *Manager) DecodeExpiredAccess(tokenString string) (token.Payload, error) {
	return m.decodeTyped(tokenString, models.TokenTypeAccess, true)
}

// DecodeRefresh parses and verifies a refresh token
func (m *Manager) DecodeRefresh(tokenString string) (token.Payload, error) {
	return m.decodeTyped(tokenString, models.TokenTypeRefresh, false)
}

func (m *Manager) decodeTyped(tokenString string, want models.TokenType, allowExpired bool) (token.Payload, error) {
	decode := m.codec.Decode
	if allowExpired {
		decode = m.codec.DecodeUnverified
	}

	payload, err := decode(tokenString)
	if err != nil {
		return token.Payload{}, err
	}

	if payload.Type != want {
		return token.Payload{}, fmt.Errorf("unexpected token type %q: %w", payload.Type, apperrors.ErrTokenInvalid)
	}

	return payload, nil
}

// PublicKey returns the PEM encoded verification key for distribution
// to services that validate tokens without holding the private key
func (m *Manager) PublicKey() string {
	return m.codec.PublicKey()
}
