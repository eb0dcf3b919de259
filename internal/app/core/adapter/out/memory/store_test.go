package memory

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

func newUser(t *testing.T, username, email, phone, fullName string, born time.Time) *domain.User {
	t.Helper()
	account, err := domain.NewAccount(decimal.NewFromInt(100), nil)
	require.NoError(t, err)
	return &domain.User{
		Username:  username,
		Email:     email,
		Phone:     phone,
		FullName:  fullName,
		BirthDate: born,
		Account:   account,
	}
}

func TestStore_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	users := store.Users()

	u := newUser(t, "alice", "alice@example.com", "0911", "Alice Liddell", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, users.Create(ctx, u))

	assert.NotZero(t, u.ID)
	assert.NotZero(t, u.AccountID)
	assert.Equal(t, u.ID, u.Account.UserID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got.Account)
	assert.True(t, got.Account.Balance.Equal(decimal.NewFromInt(100)))

	_, err = users.FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, domain.ErrNotFound, "username lookup is case-sensitive")
}

func TestStore_CreateEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	born := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, users.Create(ctx, newUser(t, "alice", "a@x", "1", "A", born)))

	assert.ErrorIs(t, users.Create(ctx, newUser(t, "alice", "b@x", "2", "B", born)), domain.ErrDuplicateUsername)
	assert.ErrorIs(t, users.Create(ctx, newUser(t, "bob", "a@x", "2", "B", born)), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, users.Create(ctx, newUser(t, "bob", "b@x", "1", "B", born)), domain.ErrDuplicatePhone)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	u := newUser(t, "alice", "a@x", "1", "A", time.Now())
	require.NoError(t, store.Users().Create(ctx, u))

	acc, err := store.Get(ctx, u.AccountID)
	require.NoError(t, err)
	acc.Balance = decimal.NewFromInt(999)

	again, err := store.Get(ctx, u.AccountID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(100)))
}

func TestStore_SaveBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	u := newUser(t, "alice", "a@x", "1", "A", time.Now())
	require.NoError(t, store.Users().Create(ctx, u))

	acc, err := store.Get(ctx, u.AccountID)
	require.NoError(t, err)
	acc.Balance = decimal.NewFromInt(1)

	err = store.SaveBatch(ctx, acc, &domain.Account{ID: 404})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	again, err := store.Get(ctx, u.AccountID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.NewFromInt(100)))
}

func TestStore_UpdateContact(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	a := newUser(t, "alice", "a@x", "1", "A", time.Now())
	b := newUser(t, "bob", "b@x", "2", "B", time.Now())
	require.NoError(t, users.Create(ctx, a))
	require.NoError(t, users.Create(ctx, b))

	assert.ErrorIs(t, users.UpdateContact(ctx, a.ID, "b@x", "1"), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, users.UpdateContact(ctx, a.ID, "a@x", "2"), domain.ErrDuplicatePhone)
	assert.ErrorIs(t, users.UpdateContact(ctx, 404, "z@x", "9"), domain.ErrNotFound)

	require.NoError(t, users.UpdateContact(ctx, a.ID, "new@x", "1"))
	_, err := users.FindByEmail(ctx, "a@x")
	assert.ErrorIs(t, err, domain.ErrNotFound, "old email must be released")
	got, err := users.FindByEmail(ctx, "new@x")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("Member %02d", i)
		if i%5 == 0 {
			name = fmt.Sprintf("Smith %02d", i)
		}
		born := time.Date(1980+i, 6, 1, 0, 0, 0, 0, time.UTC)
		u := newUser(t, fmt.Sprintf("u%02d", i), fmt.Sprintf("u%02d@example.com", i), fmt.Sprintf("09%02d", i), name, born)
		require.NoError(t, users.Create(ctx, u))
	}

	got, err := users.Search(ctx, domain.UserFilter{FullName: "smith"})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].ID, got[i].ID, "results are ordered by id")
	}

	bornAfter := time.Date(2000, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err = users.Search(ctx, domain.UserFilter{BornAfter: &bornAfter})
	require.NoError(t, err)
	assert.Len(t, got, 4, "strictly after: 2001..2004")

	got, err = users.Search(ctx, domain.UserFilter{Email: "EXAMPLE.COM", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = users.Search(ctx, domain.UserFilter{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	for _, page := range []int{math.MaxInt/10 + 1, math.MaxInt} {
		got, err = users.Search(ctx, domain.UserFilter{Page: page, PageSize: 10})
		require.NoError(t, err, "page %d", page)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}

	got, err = users.Search(ctx, domain.UserFilter{FullName: "smith", Phone: "0910"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u10", got[0].Username)
}
