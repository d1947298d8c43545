package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/testutil"
	"github.com/gatherly/auth-service/internal/token"
)

func Test_Manager(t *testing.T) {
	t.Parallel()

	privatePEM, publicPEM := testutil.GenerateRSAKeys(t)
	codec, err := token.New(privatePEM, publicPEM)
	require.NoError(t, err, "codec should be created without errors")

	fp := models.Fingerprint{IPAddr: "203.0.113.7", UserAgent: "test-agent/1.0"}

	newManager := func(t *testing.T, cfg Config) (*Manager, *testutil.MemoryTokenRepo) {
		repo := testutil.NewMemoryStorage().Tokens().(*testutil.MemoryTokenRepo)
		m, err := NewManager(cfg, codec, repo)
		require.NoError(t, err, "manager should be created without errors")
		return m, repo
	}

	t.Run("new defaults", func(t *testing.T) {
		m, _ := newManager(t, Config{})

		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL should be set")
	})

	t.Run("new fails without deps", func(t *testing.T) {
		_, err := NewManager(Config{}, nil, testutil.NewMemoryStorage().Tokens())
		require.Error(t, err)

		_, err = NewManager(Config{}, codec, nil)
		require.Error(t, err)
	})

	t.Run("IssuePair", func(t *testing.T) {
		t.Run("pair linkage", func(t *testing.T) {
			m, _ := newManager(t, Config{})

			pair, err := m.IssuePair(t.Context(), "user-1", fp)
			require.NoError(t, err)

			accessPayload, err := codec.Decode(pair.Access.Value)
			require.NoError(t, err)
			refreshPayload, err := codec.Decode(pair.Refresh.Value)
			require.NoError(t, err)

			assert.Equal(t, models.TokenTypeAccess, accessPayload.Type)
			assert.Equal(t, models.TokenTypeRefresh, refreshPayload.Type)
			assert.Equal(t, accessPayload.TokenID, refreshPayload.LinkedTokenID,
				"refresh payload should link to the paired access token id")
			assert.Equal(t, pair.Access.TokenID, accessPayload.TokenID)
			assert.Equal(t, pair.Refresh.TokenID, refreshPayload.TokenID)
		})

		t.Run("records persisted with fingerprint", func(t *testing.T) {
			m, repo := newManager(t, Config{})

			pair, err := m.IssuePair(t.Context(), "user-1", fp)
			require.NoError(t, err)

			access, err := repo.Get(t.Context(), "user-1", pair.Access.TokenID)
			require.NoError(t, err, "access record should be stored")
			refresh, err := repo.Get(t.Context(), "user-1", pair.Refresh.TokenID)
			require.NoError(t, err, "refresh record should be stored")

			assert.Equal(t, fp, access.Fingerprint)
			assert.Equal(t, fp, refresh.Fingerprint)
			assert.Equal(t, pair.Access.TokenID, refresh.LinkedTokenID)
			assert.Empty(t, access.LinkedTokenID, "access records carry no linked token id")
			assert.False(t, access.Revoked)
			assert.WithinDuration(t, time.Now().Add(defaultAccessTokenTTL), access.ExpiresAt, time.Second)
			assert.WithinDuration(t, time.Now().Add(defaultRefreshTokenTTL), refresh.ExpiresAt, time.Second)
		})

		t.Run("fail closed on store error", func(t *testing.T) {
			m, repo := newManager(t, Config{})
			repo.FailSaves = true

			_, err := m.IssuePair(t.Context(), "user-1", fp)
			require.Error(t, err, "issuance should fail when records can't be persisted")
			require.Equal(t, 0, repo.Len(), "no half-saved records should remain")
		})
	})

	t.Run("ValidatePair", func(t *testing.T) {
		issue := func(t *testing.T, m *Manager) (access token.Payload, refresh token.Payload) {
			pair, err := m.IssuePair(t.Context(), "user-1", fp)
			require.NoError(t, err)

			access, err = codec.Decode(pair.Access.Value)
			require.NoError(t, err)
			refresh, err = codec.Decode(pair.Refresh.Value)
			require.NoError(t, err)
			return access, refresh
		}

		t.Run("valid pair", func(t *testing.T) {
			m, _ := newManager(t, Config{})
			access, refresh := issue(t, m)

			err := m.ValidatePair(t.Context(), access, refresh, fp)
			require.NoError(t, err, "freshly issued pair from same device should validate")
		})

		t.Run("unknown refresh token", func(t *testing.T) {
			m, _ := newManager(t, Config{})
			access, refresh := issue(t, m)
			refresh.TokenID = "never-issued"

			err := m.ValidatePair(t.Context(), access, refresh, fp)
			require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})

		t.Run("fingerprint mismatch burns pair", func(t *testing.T) {
			m, repo := newManager(t, Config{})
			access, refresh := issue(t, m)

			otherDevice := models.Fingerprint{IPAddr: "198.51.100.9", UserAgent: fp.UserAgent}
			err := m.ValidatePair(t.Context(), access, refresh, otherDevice)
			require.ErrorIs(t, err, apperrors.ErrPairMismatch)

			_, err = repo.Get(t.Context(), "user-1", access.TokenID)
			require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "access record should be deleted")
			_, err = repo.Get(t.Context(), "user-1", refresh.TokenID)
			require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "refresh record should be deleted")

			err = m.ValidatePair(t.Context(), access, refresh, fp)
			require.Error(t, err, "pair should not validate after defensive revocation")
		})

		t.Run("user agent mismatch burns pair", func(t *testing.T) {
			m, repo := newManager(t, Config{})
			access, refresh := issue(t, m)

			otherAgent := models.Fingerprint{IPAddr: fp.IPAddr, UserAgent: "other-agent/2.0"}
			err := m.ValidatePair(t.Context(), access, refresh, otherAgent)
			require.ErrorIs(t, err, apperrors.ErrPairMismatch)
			require.Equal(t, 0, repo.Len())
		})

		t.Run("foreign access token burns pair", func(t *testing.T) {
			m, repo := newManager(t, Config{})
			_, refresh := issue(t, m)

			// Access token from another pair of the same user
			otherPair, err := m.IssuePair(t.Context(), "user-1", fp)
			require.NoError(t, err)
			foreignAccess, err := codec.Decode(otherPair.Access.Value)
			require.NoError(t, err)

			err = m.ValidatePair(t.Context(), foreignAccess, refresh, fp)
			require.ErrorIs(t, err, apperrors.ErrPairMismatch)

			_, err = repo.Get(t.Context(), "user-1", refresh.TokenID)
			require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("Rotate", func(t *testing.T) {
		m, repo := newManager(t, Config{})

		pair, err := m.IssuePair(t.Context(), "user-1", fp)
		require.NoError(t, err)

		rotated, err := m.Rotate(t.Context(), "user-1", pair.Access.TokenID, pair.Refresh.TokenID, fp)
		require.NoError(t, err)

		require.NotEqual(t, pair.Access.TokenID, rotated.Access.TokenID, "rotation should mint a new access token id")
		require.NotEqual(t, pair.Refresh.TokenID, rotated.Refresh.TokenID, "rotation should mint a new refresh token id")

		_, err = repo.Get(t.Context(), "user-1", pair.Access.TokenID)
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "old access record should be gone")
		_, err = repo.Get(t.Context(), "user-1", pair.Refresh.TokenID)
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound, "old refresh record should be gone")

		_, err = repo.Get(t.Context(), "user-1", rotated.Refresh.TokenID)
		require.NoError(t, err, "new refresh record should be stored")
	})

	t.Run("RevokePair", func(t *testing.T) {
		m, repo := newManager(t, Config{})

		pair, err := m.IssuePair(t.Context(), "user-1", fp)
		require.NoError(t, err)

		err = m.RevokePair(t.Context(), "user-1", pair.Access.TokenID, pair.Refresh.TokenID)
		require.NoError(t, err)
		require.Equal(t, 0, repo.Len(), "both records should be deleted")

		err = m.RevokePair(t.Context(), "user-1", pair.Access.TokenID, pair.Refresh.TokenID)
		require.NoError(t, err, "revoking an already revoked pair should be fine")
	})

	t.Run("decode helpers", func(t *testing.T) {
		m, _ := newManager(t, Config{AccessTTL: -100 * time.Second})

		pair, err := m.IssuePair(t.Context(), "user-1", fp)
		require.NoError(t, err, "issuing an already expired access token should work")

		_, err = m.DecodeAccess(pair.Access.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "expired access token should not decode verified")

		payload, err := m.DecodeExpiredAccess(pair.Access.Value)
		require.NoError(t, err, "expired access token should decode unverified")
		require.Equal(t, "user-1", payload.UserID)

		_, err = m.DecodeAccess(pair.Refresh.Value)
		require.ErrorIs(t, err, apperrors.ErrTokenInvalid, "refresh token should not pass as access token")

		refreshPayload, err := m.DecodeRefresh(pair.Refresh.Value)
		require.NoError(t, err)
		require.Equal(t, payload.TokenID, refreshPayload.LinkedTokenID)
	})

	t.Run("public key", func(t *testing.T) {
		m, _ := newManager(t, Config{})
		require.Equal(t, publicPEM, m.PublicKey())
	})
}
