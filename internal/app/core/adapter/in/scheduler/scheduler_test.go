package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

type blockingSweeper struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingSweeper() *blockingSweeper {
	return &blockingSweeper{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingSweeper) Accrue(ctx context.Context) (domain.AccrualReport, error) {
	b.calls.Add(1)
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return domain.AccrualReport{}, ctx.Err()
	}
	return domain.AccrualReport{Total: 1, Updated: 1}, b.err
}

func TestScheduler_RunNowIsSingleFlight(t *testing.T) {
	log, _ := test.NewNullLogger()
	sw := newBlockingSweeper()
	s, err := New(sw, time.Hour, log)
	require.NoError(t, err)

	type result struct {
		report  domain.AccrualReport
		skipped bool
		err     error
	}
	first := make(chan result, 1)
	go func() {
		r, skipped, err := s.RunNow(context.Background())
		first <- result{r, skipped, err}
	}()
	<-sw.started

	_, skipped, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, skipped, "second trigger must be skipped while a sweep runs")

	close(sw.release)
	r := <-first
	require.NoError(t, r.err)
	assert.False(t, r.skipped)
	assert.Equal(t, 1, r.report.Updated)
	assert.Equal(t, int32(1), sw.calls.Load())

	_, skipped, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, int32(2), sw.calls.Load())
}

func TestScheduler_TicksAndLogsSkips(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	sw := newBlockingSweeper()
	s, err := New(sw, time.Second, log)
	require.NoError(t, err)

	// 先佔住 running，讓排程的 tick 被略過
	hold := make(chan struct{})
	go func() {
		_, _, _ = s.RunNow(context.Background())
		close(hold)
	}()
	<-sw.started

	s.Start()
	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	close(sw.release)
	<-hold

	require.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopWaitsForRunningSweep(t *testing.T) {
	log, _ := test.NewNullLogger()
	sw := newBlockingSweeper()
	s, err := New(sw, time.Hour, log)
	require.NoError(t, err)
	s.Start()

	go func() { _, _, _ = s.RunNow(context.Background()) }()
	<-sw.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)

	close(sw.release)
	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_ReportsSweepError(t *testing.T) {
	log, _ := test.NewNullLogger()
	sw := newBlockingSweeper()
	sw.err = errors.New("boom")
	close(sw.release)
	s, err := New(sw, time.Hour, log)
	require.NoError(t, err)

	_, skipped, err := s.RunNow(context.Background())
	assert.False(t, skipped)
	assert.EqualError(t, err, "boom")
}

func TestNew_RejectsNonPositivePeriod(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := New(newBlockingSweeper(), 0, log)
	assert.Error(t, err)
}

func TestScheduler_RunNowAfterStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	sw := newBlockingSweeper()
	close(sw.release)
	s, err := New(sw, time.Hour, log)
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.Stop(context.Background()))

	_, skipped, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, skipped)
	assert.Zero(t, sw.calls.Load())
}

func TestScheduler_RunNowRacingStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	sw := newBlockingSweeper()
	close(sw.release)
	s, err := New(sw, time.Hour, log)
	require.NoError(t, err)
	s.Start()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, skipped, err := s.RunNow(context.Background())
				if errors.Is(err, ErrStopped) {
					return
				}
				if !skipped {
					ran.Add(1)
				}
			}
		}()
	}
	require.NoError(t, s.Stop(context.Background()))
	after := sw.calls.Load()
	wg.Wait()

	// Stop 回傳時已沒有 sweep 在執行，之後也不會再開始新的
	assert.Equal(t, after, sw.calls.Load())
	assert.Equal(t, ran.Load(), sw.calls.Load())
}
