package dynamo_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/repository/dynamo"
	"github.com/gatherly/auth-service/internal/testutil"
)

func Test_TokenRepo(t *testing.T) {
	c := testutil.StartDynamoContainer(t)
	defer c.Terminate()

	repo := &dynamo.TokenRepo{DB: c.Client, Table: testutil.TokenTable}

	// Each subtest works with its own user so records never clash
	newRecord := func(tokenType models.TokenType) models.TokenRecord {
		now := time.Now().Truncate(time.Second)
		return models.TokenRecord{
			UserID:  uuid.NewString(),
			TokenID: uuid.NewString(),
			Type:    tokenType,
			Fingerprint: models.Fingerprint{
				IPAddr:    "203.0.113.7",
				UserAgent: "test-agent/1.0",
			},
			IssuedAt:  now,
			ExpiresAt: now.Add(20 * time.Minute),
		}
	}

	t.Run("save and get token", func(t *testing.T) {
		record := newRecord(models.TokenTypeRefresh)
		record.LinkedTokenID = uuid.NewString()

		err := repo.Save(t.Context(), record)
		require.NoError(t, err)

		got, err := repo.Get(t.Context(), record.UserID, record.TokenID)

		require.NoError(t, err)
		assert.Equal(t, record, got, "stored record should round trip unchanged")
	})

	t.Run("save overwrites existing record", func(t *testing.T) {
		record := newRecord(models.TokenTypeAccess)
		require.NoError(t, repo.Save(t.Context(), record))

		record.Revoked = true
		require.NoError(t, repo.Save(t.Context(), record))

		got, err := repo.Get(t.Context(), record.UserID, record.TokenID)

		require.NoError(t, err)
		assert.True(t, got.Revoked, "second save should win")
	})

	t.Run("get unknown token fails", func(t *testing.T) {
		_, err := repo.Get(t.Context(), uuid.NewString(), uuid.NewString())

		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	})

	t.Run("same token id under different users", func(t *testing.T) {
		first := newRecord(models.TokenTypeAccess)
		second := newRecord(models.TokenTypeAccess)
		second.TokenID = first.TokenID

		require.NoError(t, repo.Save(t.Context(), first))
		require.NoError(t, repo.Save(t.Context(), second))

		got, err := repo.Get(t.Context(), first.UserID, first.TokenID)

		require.NoError(t, err)
		assert.Equal(t, first.UserID, got.UserID, "records are keyed by user and token together")
	})

	t.Run("delete token", func(t *testing.T) {
		record := newRecord(models.TokenTypeAccess)
		require.NoError(t, repo.Save(t.Context(), record))

		err := repo.Delete(t.Context(), record.UserID, record.TokenID)
		require.NoError(t, err)

		_, err = repo.Get(t.Context(), record.UserID, record.TokenID)
		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	})

	t.Run("delete unknown token fails", func(t *testing.T) {
		err := repo.Delete(t.Context(), uuid.NewString(), uuid.NewString())

		require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	})
}
