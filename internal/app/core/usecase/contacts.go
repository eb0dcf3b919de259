package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// ContactInput 可修改的聯絡資料，空字串表示不修改
type ContactInput struct {
	Email string
	Phone string
}

// Contacts 聯絡資料修改服務
type Contacts struct {
	users IdentityStore
	log   logrus.FieldLogger
}

func NewContacts(users IdentityStore, log logrus.FieldLogger) *Contacts {
	return &Contacts{
		users: users,
		log:   log.WithField("component", "contacts"),
	}
}

// UpdateContact 修改 email / phone
//
// 回傳:
//
//	*domain.User: 修改後的使用者
//	error: UserNotFound (優先於其他錯誤) / NoContactProvided / DuplicateEmail / DuplicatePhone / StoreUnavailable
func (c *Contacts) UpdateContact(ctx context.Context, userID int64, in ContactInput) (*domain.User, error) {
	user, err := c.users.Get(ctx, userID)
	if err != nil {
		return nil, userLookupError(err)
	}

	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return nil, domain.ErrNoContactProvided
	}

	nextEmail, nextPhone := user.Email, user.Phone
	if email != "" && email != user.Email {
		if err := c.ensureFree(ctx, c.users.FindByEmail, email, userID, domain.ErrDuplicateEmail); err != nil {
			return nil, err
		}
		nextEmail = email
	}
	if phone != "" && phone != user.Phone {
		if err := c.ensureFree(ctx, c.users.FindByPhone, phone, userID, domain.ErrDuplicatePhone); err != nil {
			return nil, err
		}
		nextPhone = phone
	}

	if nextEmail == user.Email && nextPhone == user.Phone {
		return user, nil
	}

	if err := c.users.UpdateContact(ctx, userID, nextEmail, nextPhone); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError(err)
	}
	user.Email, user.Phone = nextEmail, nextPhone

	c.log.WithField("user_id", userID).Info("contact updated")
	return user, nil
}

// ensureFree 確認 key 沒有被其他使用者使用 (自己的紀錄不算衝突)
func (c *Contacts) ensureFree(ctx context.Context, find func(context.Context, string) (*domain.User, error), key string, self int64, dup error) error {
	owner, err := find(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return storeError(err)
	case owner.ID != self:
		return dup
	}
	return nil
}
