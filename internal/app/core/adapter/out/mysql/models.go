package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// sqlUser 對應資料庫的 users 表
type sqlUser struct {
	ID           int64 `gorm:"primaryKey"`
	Username     string
	PasswordHash string
	Email        string
	Phone        string
	FullName     string
	BirthDate    time.Time `gorm:"type:date"`
	CreatedAt    time.Time
	Account      *sqlAccount `gorm:"foreignKey:UserID"`
}

func (*sqlUser) TableName() string {
	return "users"
}

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID             int64 `gorm:"primaryKey"`
	UserID         int64
	InitialBalance decimal.Decimal `gorm:"type:decimal(19,4)"`
	Balance        decimal.Decimal `gorm:"type:decimal(19,4)"`
	MaxBalance     decimal.Decimal `gorm:"type:decimal(19,4)"`
	UpdatedAt      time.Time
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:             a.ID,
		UserID:         a.UserID,
		InitialBalance: a.InitialBalance,
		Balance:        a.Balance,
		MaxBalance:     a.MaxBalance,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (u *sqlUser) toDomain() *domain.User {
	out := &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Email:        u.Email,
		Phone:        u.Phone,
		FullName:     u.FullName,
		BirthDate:    u.BirthDate,
		CreatedAt:    u.CreatedAt,
	}
	if u.Account != nil {
		out.Account = u.Account.toDomain()
		out.AccountID = u.Account.ID
	}
	return out
}
