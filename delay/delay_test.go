package delay

import (
	"context"
	"testing"
	"time"

	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/cosign-network/cosigning/cosigndb/memorydb"
	"github.com/cosign-network/cosigning/store"
	"github.com/stretchr/testify/require"
)

func TestRunIterationAcknowledgesOnceDelayHasAlreadyElapsed(t *testing.T) {
	db := memorydb.New()

	seed := cosigndb.NewTxn(db)
	require.NoError(t, store.CosignedBlocks.Send(seed, nil, store.CosignedBlockEntry{
		BlockNumber:   5,
		TimeEvaluated: uint64(time.Now().Add(-AcknowledgementDelay - time.Second).Unix()),
	}))
	require.NoError(t, seed.Commit())

	task := New(db)

	start := time.Now()
	madeProgress, err := task.RunIteration(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.True(t, madeProgress)
	require.Less(t, elapsed, time.Second)

	readTxn := cosigndb.NewTxn(db)
	latest, err := store.LatestAcknowledgedBlockNumber(readTxn)
	require.NoError(t, err)
	require.Equal(t, uint64(5), latest)
}

func TestRunIterationNoProgressWhenEmpty(t *testing.T) {
	db := memorydb.New()
	task := New(db)

	madeProgress, err := task.RunIteration(context.Background())
	require.NoError(t, err)
	require.False(t, madeProgress)
}

func TestRunIterationReturnsOnContextCancel(t *testing.T) {
	db := memorydb.New()

	seed := cosigndb.NewTxn(db)
	require.NoError(t, store.CosignedBlocks.Send(seed, nil, store.CosignedBlockEntry{
		BlockNumber:   1,
		TimeEvaluated: uint64(time.Now().Unix()),
	}))
	require.NoError(t, seed.Commit())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	task := New(db)
	_, err := task.RunIteration(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
