package usecase

import (
	"context"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// Directory 使用者查詢
type Directory struct {
	users IdentityStore
}

func NewDirectory(users IdentityStore) *Directory {
	return &Directory{users: users}
}

// Search 依條件搜尋使用者，超出範圍的頁數回傳空 slice
func (d *Directory) Search(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	users, err := d.users.Search(ctx, filter.Normalize())
	if err != nil {
		return nil, storeError(err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}
