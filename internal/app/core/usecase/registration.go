package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// RegisterInput 註冊資料
type RegisterInput struct {
	Username string
	// Password 明文，只用來產生雜湊，不會被保存或記錄
	Password       string
	Email          string
	Phone          string
	FullName       string
	BirthDate      time.Time
	InitialBalance decimal.Decimal
	// MaxBalance 可選，nil 時為 InitialBalance * 2.07
	MaxBalance *decimal.Decimal
}

func (in RegisterInput) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"username", in.Username},
		{"password", in.Password},
		{"email", in.Email},
		{"phone", in.Phone},
		{"full_name", in.FullName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if in.BirthDate.IsZero() {
		missing = append(missing, "birth_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Registration 註冊服務: 建立使用者與其帳戶
type Registration struct {
	users  IdentityStore
	hasher PasswordHasher
	log    logrus.FieldLogger
}

func NewRegistration(users IdentityStore, hasher PasswordHasher, log logrus.FieldLogger) *Registration {
	return &Registration{
		users:  users,
		hasher: hasher,
		log:    log.WithField("component", "registration"),
	}
}

// Register 註冊
//
// 先依 username → email → phone 的順序檢查重複 (第一個衝突即回傳)，
// 最終的唯一性由儲存層的 unique constraint 保證，並發註冊時由儲存層回傳 Duplicate*。
//
// 回傳:
//
//	*domain.User: 已建立的使用者 (含帳戶)
//	error: InvalidInput / DuplicateUsername / DuplicateEmail / DuplicatePhone / StoreUnavailable
func (r *Registration) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	checks := []struct {
		find func(context.Context, string) (*domain.User, error)
		key  string
		dup  error
	}{
		{r.users.FindByUsername, in.Username, domain.ErrDuplicateUsername},
		{r.users.FindByEmail, in.Email, domain.ErrDuplicateEmail},
		{r.users.FindByPhone, in.Phone, domain.ErrDuplicatePhone},
	}
	for _, c := range checks {
		_, err := c.find(ctx, c.key)
		if err == nil {
			return nil, c.dup
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, storeError(err)
		}
	}

	account, err := domain.NewAccount(in.InitialBalance, in.MaxBalance)
	if err != nil {
		return nil, err
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Phone:        in.Phone,
		FullName:     in.FullName,
		BirthDate:    in.BirthDate,
		Account:      account,
	}
	if err := r.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"account_id": user.AccountID,
		"username":   user.Username,
	}).Info("user registered")
	return user, nil
}
