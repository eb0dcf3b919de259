package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLocker_OppositeOrderDoesNotDeadlock(t *testing.T) {
	l := NewAccountLocker()
	ctx := context.Background()

	var wg sync.WaitGroup
	var inside atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(2)
		for _, ids := range [][]int64{{1, 2}, {2, 1}} {
			go func(ids []int64) {
				defer wg.Done()
				unlock, err := l.Lock(ctx, ids...)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, int32(1), inside.Add(1), "two holders of the same pair")
				inside.Add(-1)
				unlock()
			}(ids)
		}
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock")
	}
	assert.Zero(t, l.size(), "locks must be reclaimed")
}

func TestAccountLocker_DisjointAccountsDoNotBlock(t *testing.T) {
	l := NewAccountLocker()
	unlock, err := l.Lock(context.Background(), 1, 2)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockOther, err := l.Lock(ctx, 3, 4)
	require.NoError(t, err)
	unlockOther()
}

func TestAccountLocker_CancelWhileWaiting(t *testing.T) {
	l := NewAccountLocker()
	unlock, err := l.Lock(context.Background(), 2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, 1, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 1 已被取得後又釋放，只剩 2 還被持有
	assert.Equal(t, 1, l.size())

	unlockOne, err := l.Lock(context.Background(), 1)
	require.NoError(t, err, "partially acquired locks must be released on cancel")
	unlockOne()

	unlock()
	assert.Zero(t, l.size())
}

func TestAccountLocker_CanceledContext(t *testing.T) {
	l := NewAccountLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, l.size())
}

func TestAccountLocker_DuplicateIDsAndIdempotentUnlock(t *testing.T) {
	l := NewAccountLocker()
	unlock, err := l.Lock(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())

	unlock()
	unlock()
	assert.Zero(t, l.size())
}
