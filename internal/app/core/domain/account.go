package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Account 使用者的帳戶，與 User 一對一，以 UserID 作為外鍵
type Account struct {
	ID     int64
	UserID int64
	// InitialBalance 建立時的餘額快照，之後不再變動
	InitialBalance decimal.Decimal
	Balance        decimal.Decimal
	// MaxBalance 帳戶餘額上限
	MaxBalance decimal.Decimal
	UpdatedAt  time.Time
}

// NewAccount 建立一個新帳戶，maxBalance 為 nil 時使用 initial * 2.07
//
// 參數:
//
//	initial: 初始餘額 (不可為負)
//	maxBalance: 餘額上限 (可選，不可小於初始餘額)
//
// 回傳:
//
//	*Account: 尚未持久化的帳戶 (ID 由儲存層指派)
//	error: ErrInvalidInput
func NewAccount(initial decimal.Decimal, maxBalance *decimal.Decimal) (*Account, error) {
	if initial.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidInput)
	}
	initial = RoundMoney(initial)

	ceiling := RoundMoney(initial.Mul(DefaultCeilingFactor))
	if maxBalance != nil {
		ceiling = RoundMoney(*maxBalance)
		if ceiling.LessThan(initial) {
			return nil, fmt.Errorf("%w: max balance is below the initial balance", ErrInvalidInput)
		}
	}

	return &Account{
		InitialBalance: initial,
		Balance:        initial,
		MaxBalance:     ceiling,
	}, nil
}

// Deposit 存款，入帳後不可超過上限
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	next := a.Balance.Add(amount)
	if next.GreaterThan(a.MaxBalance) {
		return fmt.Errorf("%w: account %d would hold %s, ceiling is %s", ErrCeilingExceeded, a.ID, next, a.MaxBalance)
	}
	a.Balance = next
	return nil
}

// Withdraw 提款
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return fmt.Errorf("%w: account %d holds %s, requested %s", ErrInsufficientFunds, a.ID, a.Balance, amount)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Accrue 依成長率增加餘額並夾在上限內: min(balance * rate, max)
// 回傳餘額是否有變動
func (a *Account) Accrue(rate decimal.Decimal) bool {
	next := RoundMoney(a.Balance.Mul(rate))
	if next.GreaterThan(a.MaxBalance) {
		next = a.MaxBalance
	}
	if next.IsNegative() {
		next = decimal.Zero
	}
	if next.Equal(a.Balance) {
		return false
	}
	a.Balance = next
	return true
}

// Clone 複製一份帳戶 (decimal 為不可變值，淺拷貝即可)
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
