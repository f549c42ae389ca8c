package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divecrm/divecrm/internal/database"
	"github.com/divecrm/divecrm/internal/logger"
)

func newTestLease(t *testing.T) (*Lease, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	rdb := database.NewRedisFromClient(client)
	return NewLease(rdb, 30*time.Second, logger.New("error", "json")), mock
}

func TestLeaseAcquiresWhenFree(t *testing.T) {
	lease, mock := newTestLease(t)
	mock.ExpectSetNX(leaderKey, lease.id, 30*time.Second).SetVal(true)

	ok, err := lease.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseRenewsOwnHold(t *testing.T) {
	lease, mock := newTestLease(t)
	mock.ExpectSetNX(leaderKey, lease.id, 30*time.Second).SetVal(false)
	mock.ExpectGet(leaderKey).SetVal(lease.id)
	mock.ExpectExpire(leaderKey, 30*time.Second).SetVal(true)

	ok, err := lease.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseYieldsToOtherHolder(t *testing.T) {
	lease, mock := newTestLease(t)
	mock.ExpectSetNX(leaderKey, lease.id, 30*time.Second).SetVal(false)
	mock.ExpectGet(leaderKey).SetVal("another-process")

	ok, err := lease.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseReleaseDeletesOwnHold(t *testing.T) {
	lease, mock := newTestLease(t)
	mock.ExpectGet(leaderKey).SetVal(lease.id)
	mock.ExpectDel(leaderKey).SetVal(1)

	require.NoError(t, lease.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseReleaseIgnoresForeignHold(t *testing.T) {
	lease, mock := newTestLease(t)
	mock.ExpectGet(leaderKey).SetVal("another-process")

	require.NoError(t, lease.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
