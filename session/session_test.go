package session

import (
	"testing"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/cosigndb/memorydb"
	"github.com/cosign-network/cosigning/primitives"
	"github.com/cosign-network/cosigning/store"
	"github.com/stretchr/testify/require"
)

func TestCurrentStrictErrorsWithNoSession(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)
	_, _, err := New(txn).CurrentStrict(1)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestCurrentStrictAdoptsFirstQueuedSession(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	first := primitives.GlobalSession{StartBlockNumber: 10, TotalStake: 100}
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{1},
		Session: first,
	}))

	id, session, err := New(txn).CurrentStrict(10)
	require.NoError(t, err)
	require.Equal(t, [32]byte{1}, id)
	require.Equal(t, uint64(10), session.StartBlockNumber)
}

func TestCurrentStrictRejectsBlockBeforeSessionStart(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{1},
		Session: primitives.GlobalSession{StartBlockNumber: 10},
	}))

	_, _, err := New(txn).CurrentStrict(5)
	require.Error(t, err)
}

func TestCurrentStrictPromotesQueuedSessionAtExactStart(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{1},
		Session: primitives.GlobalSession{StartBlockNumber: 1},
	}))
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{2},
		Session: primitives.GlobalSession{StartBlockNumber: 20},
	}))

	id, _, err := New(txn).CurrentStrict(1)
	require.NoError(t, err)
	require.Equal(t, [32]byte{1}, id)

	// Still before the second session's start: the first remains current.
	id, _, err = New(txn).CurrentStrict(19)
	require.NoError(t, err)
	require.Equal(t, [32]byte{1}, id)

	// Exactly at the second session's start: it is promoted.
	id, session, err := New(txn).CurrentStrict(20)
	require.NoError(t, err)
	require.Equal(t, [32]byte{2}, id)
	require.Equal(t, uint64(20), session.StartBlockNumber)
}

func TestCurrentStrictRejectsWhenQueuedSessionIsBehind(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{1},
		Session: primitives.GlobalSession{StartBlockNumber: 1},
	}))
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{2},
		Session: primitives.GlobalSession{StartBlockNumber: 5},
	}))

	_, _, err := New(txn).CurrentStrict(1)
	require.NoError(t, err)

	// Caller skipped ahead past the queued session's start without ever
	// requesting block 5: the queued session is now behind.
	_, _, err = New(txn).CurrentStrict(10)
	require.Error(t, err)
}

func TestCurrentNonStrictAdoptsQueuedSessionWhenItsStartIsDue(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	// LatestCosignedBlockNumber defaults to 0, so a session starting at
	// block 1 is due (0+1 == 1) even though nothing is yet stored as
	// current.
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{9},
		Session: primitives.GlobalSession{StartBlockNumber: 1},
	}))

	id, session, ok, err := New(txn).CurrentNonStrict()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [32]byte{9}, id)
	require.Equal(t, uint64(1), session.StartBlockNumber)
}

// TestCurrentNonStrictAdoptsQueuedSessionDuringRotation covers the case a
// prior session bug dropped: a stored current session exists, but the
// evaluator has already advanced LatestCosignedBlockNumber to immediately
// before a queued successor session's start block (i.e. the successor's
// own notable block is being evaluated right now, in a txn not yet
// committed). Intake must see the successor as current so it can record
// the very cosigns that block needs to reach supermajority.
func TestCurrentNonStrictAdoptsQueuedSessionDuringRotation(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	require.NoError(t, store.SetCurrentlyEvaluatedGlobalSession(txn, [32]byte{1}, primitives.GlobalSession{StartBlockNumber: 1}))
	require.NoError(t, store.SetLatestCosignedBlockNumber(txn, 4))
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{2},
		Session: primitives.GlobalSession{StartBlockNumber: 5},
	}))

	id, session, ok, err := New(txn).CurrentNonStrict()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [32]byte{2}, id)
	require.Equal(t, uint64(5), session.StartBlockNumber)
}

func TestCurrentNonStrictReturnsStoredSessionWhenQueuedSessionNotYetDue(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	require.NoError(t, store.SetCurrentlyEvaluatedGlobalSession(txn, [32]byte{1}, primitives.GlobalSession{StartBlockNumber: 1}))
	require.NoError(t, store.SetLatestCosignedBlockNumber(txn, 3))
	require.NoError(t, store.GlobalSessionsChannel.Send(txn, nil, store.GlobalSessionEntry{
		ID:      [32]byte{2},
		Session: primitives.GlobalSession{StartBlockNumber: 5},
	}))

	id, session, ok, err := New(txn).CurrentNonStrict()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [32]byte{1}, id)
	require.Equal(t, uint64(1), session.StartBlockNumber)
}

func TestCurrentNonStrictFalseWhenEmpty(t *testing.T) {
	db := memorydb.New()
	txn := cosigndb.NewTxn(db)

	_, _, ok, err := New(txn).CurrentNonStrict()
	require.NoError(t, err)
	require.False(t, ok)
}
