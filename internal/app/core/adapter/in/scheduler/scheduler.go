package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// ErrStopped Stop 之後的觸發一律拒絕
var ErrStopped = errors.New("accrual scheduler stopped")

// Sweeper 執行一次 accrual
type Sweeper interface {
	Accrue(ctx context.Context) (domain.AccrualReport, error)
}

// Scheduler 定期觸發 accrual，同一時間最多只有一個 sweep 在執行
//
// 排程的 tick 與 RunNow 共用同一個 running 旗標，
// 前一次尚未結束時新的觸發直接略過 (不排隊)。
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     logrus.FieldLogger

	running atomic.Bool
	wg      sync.WaitGroup
	// mu 保護 stopped，並讓 wg.Add 不會與 Stop 的 wg.Wait 交錯
	mu      sync.Mutex
	stopped bool

	// ctx 傳給每次 sweep，Stop 逾時才取消
	ctx    context.Context
	cancel context.CancelFunc
}

// New 建立排程器
//
// 參數:
//
//	sweeper: 通常是 *usecase.CoreUseCase
//	period: 觸發間隔 (例如 60s)
//	log: logger
func New(sweeper Sweeper, period time.Duration, log logrus.FieldLogger) (*Scheduler, error) {
	if period <= 0 {
		return nil, fmt.Errorf("accrual period must be positive, got %v", period)
	}
	log = log.WithField("component", "scheduler")
	cl := cronLogger{log: log}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", period), s.tick); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start 開始排程 (非阻塞)
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("accrual scheduler started")
}

func (s *Scheduler) tick() {
	_, skipped, err := s.RunNow(s.ctx)
	switch {
	case skipped:
		s.log.Warn("accrual tick skipped, previous sweep still running")
	case errors.Is(err, ErrStopped):
	case err != nil:
		s.log.WithError(err).Error("accrual sweep failed")
	}
}

// RunNow 立即執行一次 sweep
//
// 回傳:
//
//	domain.AccrualReport: sweep 結果
//	bool: true 表示已有 sweep 在執行，本次略過
//	error: sweep 錯誤，Stop 之後呼叫回傳 ErrStopped
func (s *Scheduler) RunNow(ctx context.Context) (domain.AccrualReport, bool, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return domain.AccrualReport{}, false, ErrStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return domain.AccrualReport{}, true, nil
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer func() {
		s.running.Store(false)
		s.wg.Done()
	}()

	report, err := s.sweeper.Accrue(ctx)
	return report, false, err
}

// Stop 停止排程並等待執行中的 sweep 結束；ctx 逾時則取消 sweep
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop().Done()
	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.log.Info("accrual scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// cronLogger 把 cron 的 log 轉到 logrus
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
