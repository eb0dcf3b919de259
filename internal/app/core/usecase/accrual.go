package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// Accrual 定期讓所有帳戶餘額成長，並夾在各自的上限內
type Accrual struct {
	accounts AccountStore
	locker   *AccountLocker
	rate     decimal.Decimal
	observer Observer
	log      logrus.FieldLogger
}

// NewAccrual 建立 accrual
//
// 參數:
//
//	accounts: 帳戶儲存層
//	locker: 必須與 Ledger 共用，確保 accrual 不會與轉帳交錯
//	rate: 每次成長倍率 (例如 1.05)
//	log: logger
func NewAccrual(accounts AccountStore, locker *AccountLocker, rate decimal.Decimal, log logrus.FieldLogger) *Accrual {
	return &Accrual{
		accounts: accounts,
		locker:   locker,
		rate:     rate,
		observer: nopObserver{},
		log:      log.WithField("component", "accrual"),
	}
}

// WithObserver 設定指標收集
func (a *Accrual) WithObserver(o Observer) *Accrual {
	a.observer = o
	return a
}

// Sweep 對每個帳戶執行一次 balance = min(balance * rate, max)
//
// 單一帳戶失敗只記錄並計數，不影響其他帳戶。
// ctx 取消時在帳戶之間停止，已處理的帳戶不會回滾。
//
// 回傳:
//
//	domain.AccrualReport: 統計
//	error: 無法列出帳戶或 ctx 被取消
func (a *Accrual) Sweep(ctx context.Context) (domain.AccrualReport, error) {
	start := time.Now()
	var report domain.AccrualReport

	ids, err := a.accounts.IDs(ctx)
	if err != nil {
		a.observer.ObserveSweep("error", 0, 0, 0, time.Since(start))
		return report, storeError(err)
	}
	report.Total = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			a.observer.ObserveSweep("canceled", report.Updated, report.Unchanged, report.Failed, report.Duration)
			return report, err
		}

		changed, err := a.accrueOne(ctx, id)
		switch {
		case err != nil:
			report.Failed++
			a.log.WithError(err).WithField("account_id", id).Warn("accrual failed for account")
		case changed:
			report.Updated++
		default:
			report.Unchanged++
		}
	}

	report.Duration = time.Since(start)
	a.observer.ObserveSweep("ok", report.Updated, report.Unchanged, report.Failed, report.Duration)
	a.log.WithFields(logrus.Fields{
		"total":     report.Total,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
		"failed":    report.Failed,
		"duration":  report.Duration,
	}).Info("accrual sweep finished")
	return report, nil
}

func (a *Accrual) accrueOne(ctx context.Context, id int64) (bool, error) {
	unlock, err := a.locker.Lock(ctx, id)
	if err != nil {
		return false, err
	}
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	account, err := a.accounts.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !account.Accrue(a.rate) {
		return false, nil
	}
	if err := a.accounts.Save(ctx, account); err != nil {
		return false, storeError(err)
	}
	return true, nil
}
