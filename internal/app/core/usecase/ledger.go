package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// Ledger 帳本核心: 轉帳與餘額查詢
//
// 所有餘額異動都在 AccountLocker 持有帳戶鎖時進行，
// 轉帳一律先鎖 ID 較小的帳戶。
type Ledger struct {
	accounts AccountStore
	users    IdentityStore
	locker   *AccountLocker
	observer Observer
	log      logrus.FieldLogger
}

// NewLedger 建立帳本
//
// 參數:
//
//	accounts: 帳戶儲存層 (若同時實作 BatchSaver，兩邊帳戶會在同一個交易中寫入)
//	users: 使用者儲存層，用來解析轉出/轉入方
//	locker: 帳戶鎖，必須與 Accrual 共用同一個實例
//	log: logger
func NewLedger(accounts AccountStore, users IdentityStore, locker *AccountLocker, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		accounts: accounts,
		users:    users,
		locker:   locker,
		observer: nopObserver{},
		log:      log.WithField("component", "ledger"),
	}
}

// WithObserver 設定指標收集
func (l *Ledger) WithObserver(o Observer) *Ledger {
	l.observer = o
	return l
}

// Transfer 轉帳
//
// 參數:
//
//	ctx: 只有在等待帳戶鎖期間可以取消，取得鎖之後兩邊一定會一起寫入或一起不寫入
//	initiator: 已驗證的轉出方 username
//	toUserID: 轉入方 user ID
//	amount: 金額 (必須為正數)
//
// 回傳:
//
//	*domain.Transfer: 轉帳紀錄 (含轉帳後餘額)
//	error: InvalidAmount / UserNotFound / SelfTransfer / InsufficientFunds /
//	       CeilingExceeded / StoreUnavailable
func (l *Ledger) Transfer(ctx context.Context, initiator string, toUserID int64, amount decimal.Decimal) (tran *domain.Transfer, err error) {
	start := time.Now()
	defer func() {
		l.observer.ObserveTransfer(resultLabel(err), time.Since(start))
	}()

	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	amount = domain.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	sender, err := l.users.FindByUsername(ctx, initiator)
	if err != nil {
		return nil, userLookupError(err)
	}
	receiver, err := l.users.Get(ctx, toUserID)
	if err != nil {
		return nil, userLookupError(err)
	}

	tran = &domain.Transfer{
		From:       sender.AccountID,
		To:         receiver.AccountID,
		FromUserID: sender.ID,
		ToUserID:   receiver.ID,
		Amount:     amount,
	}
	if tran.From == tran.To {
		return nil, domain.ErrSelfTransfer
	}

	unlock, err := l.locker.Lock(ctx, tran.LockIDs()...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 取得鎖之後不再理會呼叫端的取消，避免只寫入一邊
	ctx = context.WithoutCancel(ctx)

	from, err := l.accounts.Get(ctx, tran.From)
	if err != nil {
		return nil, accountLookupError(err)
	}
	to, err := l.accounts.Get(ctx, tran.To)
	if err != nil {
		return nil, accountLookupError(err)
	}
	snapshot := from.Clone()

	if err := from.Withdraw(amount); err != nil {
		return nil, err
	}
	if err := to.Deposit(amount); err != nil {
		return nil, err
	}

	if err := l.persist(ctx, snapshot, from, to); err != nil {
		return nil, err
	}

	tran.ID = uuid.New()
	tran.FromBalance = from.Balance
	tran.ToBalance = to.Balance
	tran.CreatedAt = time.Now()

	l.log.WithFields(logrus.Fields{
		"transfer_id": tran.ID,
		"from":        tran.From,
		"to":          tran.To,
		"amount":      amount.String(),
	}).Debug("transfer committed")
	return tran, nil
}

// persist 寫入兩邊帳戶
// 儲存層不支援交易時先寫轉出方，轉入方失敗則以 snapshot 還原轉出方
func (l *Ledger) persist(ctx context.Context, snapshot, from, to *domain.Account) error {
	if batch, ok := l.accounts.(BatchSaver); ok {
		if err := batch.SaveBatch(ctx, from, to); err != nil {
			return storeError(err)
		}
		return nil
	}

	if err := l.accounts.Save(ctx, from); err != nil {
		return storeError(err)
	}
	if err := l.accounts.Save(ctx, to); err != nil {
		if rbErr := l.accounts.Save(ctx, snapshot); rbErr != nil {
			l.log.WithError(rbErr).WithField("account_id", snapshot.ID).Error("failed to restore source account after partial transfer")
			return storeError(errors.Join(err, rbErr))
		}
		return storeError(err)
	}
	return nil
}

// Balance 取得使用者帳戶 (在帳戶鎖內讀取)
func (l *Ledger) Balance(ctx context.Context, userID int64) (*domain.Account, error) {
	user, err := l.users.Get(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}

	unlock, err := l.locker.Lock(ctx, user.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := l.accounts.Get(ctx, user.AccountID)
	if err != nil {
		return nil, accountLookupError(err)
	}
	return account, nil
}

func userLookupError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrUserNotFound
	}
	return storeError(err)
}

func accountLookupError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: account missing", domain.ErrUserNotFound)
	}
	return storeError(err)
}

// storeError 非業務錯誤一律視為儲存層失敗
func storeError(err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
