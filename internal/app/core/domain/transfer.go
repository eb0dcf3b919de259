package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer 一筆已完成的轉帳
type Transfer struct {
	// ID: 轉帳追蹤號 (UUID)
	ID uuid.UUID
	// From, To: 帳戶 ID
	From int64
	To   int64
	// FromUserID, ToUserID: 帳戶所屬使用者
	FromUserID int64
	ToUserID   int64
	Amount     decimal.Decimal
	// FromBalance, ToBalance: 轉帳後餘額
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
	CreatedAt   time.Time
}

// LockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transfer) LockIDs() []int64 {
	if t.From == t.To {
		return []int64{t.From}
	}
	if t.From < t.To {
		return []int64{t.From, t.To}
	}
	return []int64{t.To, t.From}
}
