package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

func TestSubmissionRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSubmissionRepository(store)

	_, err := repo.Begin("  ", time.Time{})
	require.ErrorIs(t, err, domain.ErrSubmissionHashRequired)

	rec, err := repo.Begin("hash-a", time.Time{})
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionStatusInFlight, rec.Status)
	require.Equal(t, 1, rec.Attempts)
	require.NotEmpty(t, rec.IdempotencyKey)
	require.True(t, rec.TTLAt.After(time.Now()))

	_, err = repo.Begin("hash-a", time.Time{})
	require.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	require.NoError(t, repo.MarkFailed("hash-a", "Restaurant is closed"))
	failed, err := repo.Get("hash-a")
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionStatusFailed, failed.Status)
	require.Equal(t, "Restaurant is closed", failed.FailureReason)

	retry, err := repo.Begin("hash-a", time.Time{})
	require.NoError(t, err)
	require.Equal(t, rec.IdempotencyKey, retry.IdempotencyKey)
	require.Equal(t, 2, retry.Attempts)
	require.Empty(t, retry.FailureReason)

	require.NoError(t, repo.MarkAccepted("hash-a", 42))
	_, err = repo.Begin("hash-a", time.Time{})
	require.ErrorIs(t, err, domain.ErrAlreadySubmitted)

	accepted, err := repo.Get("hash-a")
	require.NoError(t, err)
	require.Equal(t, int64(42), accepted.OrderID)

	_, err = repo.Get("missing")
	require.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	require.ErrorIs(t, repo.MarkAccepted("missing", 1), domain.ErrSubmissionNotFound)
}

func TestSubmissionRepository_PostgresDeleteExpired(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSubmissionRepository(store)

	past := time.Now().UTC().Add(-time.Hour)
	for _, hash := range []string{"done-1", "done-2", "pending"} {
		_, err := repo.Begin(hash, past)
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkAccepted("done-1", 1))
	require.NoError(t, repo.MarkFailed("done-2", "boom"))

	removed, err := repo.DeleteExpired(time.Now().UTC(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	removed, err = repo.DeleteExpired(time.Now().UTC(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	// Незавершённая отправка переживает очистку.
	rec, err := repo.Get("pending")
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionStatusInFlight, rec.Status)
}

func TestSubmissionRepository_PostgresReclaimsStaleInFlight(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSubmissionRepository(store, WithInFlightLease(50*time.Millisecond))

	first, err := repo.Begin("hash-crashed", time.Time{})
	require.NoError(t, err)

	_, err = repo.Begin("hash-crashed", time.Time{})
	require.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	time.Sleep(150 * time.Millisecond)

	retry, err := repo.Begin("hash-crashed", time.Time{})
	require.NoError(t, err)
	require.Equal(t, first.IdempotencyKey, retry.IdempotencyKey)
	require.Equal(t, 2, retry.Attempts)
	require.Equal(t, domain.SubmissionStatusInFlight, retry.Status)

	_, err = repo.Begin("hash-crashed", time.Time{})
	require.ErrorIs(t, err, domain.ErrSubmissionInFlight)
}

func TestSubmissionRepository_PostgresDeleteExpiredDropsStaleInFlight(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSubmissionRepository(store, WithInFlightLease(50*time.Millisecond))

	past := time.Now().UTC().Add(-time.Hour)
	_, err := repo.Begin("abandoned", past)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	_, err = repo.Begin("live", past)
	require.NoError(t, err)

	removed, err := repo.DeleteExpired(time.Now().UTC(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get("abandoned")
	require.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	_, err = repo.Get("live")
	require.NoError(t, err)
}
