package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
)

// Store 是一個使用 RWMutex 實現的記憶體儲存層
//
// Store 實作 AccountStore 與 BatchSaver，Users() 回傳同一份資料的 IdentityStore。
// 唯一性 (username / email / phone) 在寫鎖內檢查並寫入，等同資料庫的 unique index。
// 所有讀寫都以 Clone 進出，呼叫端拿到的物件不會與內部狀態共用。
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	users: 使用者資料 Map
//	byUsername, byEmail, byPhone: 唯一索引
//	mu: RWMutex 用於保護以上資料
type Store struct {
	mu         sync.RWMutex
	accounts   map[int64]*domain.Account
	users      map[int64]*domain.User
	byUsername map[string]int64
	byEmail    map[string]int64
	byPhone    map[string]int64

	nextUserID    int64
	nextAccountID int64
	now           func() time.Time
}

// NewStore 建立一個空的記憶體儲存層
func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]*domain.Account),
		users:      make(map[int64]*domain.User),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		byPhone:    make(map[string]int64),
		now:        time.Now,
	}
}

// ---- AccountStore ----

// Get 取得帳戶
func (s *Store) Get(ctx context.Context, accountID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return account.Clone(), nil
}

// Save 寫入帳戶餘額 (InitialBalance / MaxBalance / UserID 不會被覆寫)
func (s *Store) Save(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(account)
}

// SaveBatch 在同一把寫鎖內寫入多個帳戶，任一帳戶不存在則全部不寫
func (s *Store) SaveBatch(ctx context.Context, accounts ...*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range accounts {
		if _, ok := s.accounts[account.ID]; !ok {
			return domain.ErrNotFound
		}
	}
	for _, account := range accounts {
		if err := s.saveLocked(account); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) saveLocked(account *domain.Account) error {
	current, ok := s.accounts[account.ID]
	if !ok {
		return domain.ErrNotFound
	}
	current.Balance = account.Balance
	current.UpdatedAt = s.now()
	account.UpdatedAt = current.UpdatedAt
	return nil
}

// IDs 所有帳戶 ID (由小到大)
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

// ---- IdentityStore ----

// Users 以 IdentityStore 介面回傳同一份資料 (Store 本身的 Get 是帳戶的 Get)
func (s *Store) Users() *UserView {
	return &UserView{s: s}
}

// UserView IdentityStore
type UserView struct{ s *Store }

// Get 取得使用者 (含帳戶)
func (v *UserView) Get(ctx context.Context, userID int64) (*domain.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.userLocked(userID)
}

// FindByUsername 以 username 查詢 (區分大小寫)
func (v *UserView) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return v.findBy(v.s.byUsername, username)
}

// FindByEmail 以 email 查詢
func (v *UserView) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return v.findBy(v.s.byEmail, email)
}

// FindByPhone 以電話查詢
func (v *UserView) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return v.findBy(v.s.byPhone, phone)
}

func (v *UserView) findBy(index map[string]int64, key string) (*domain.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	id, ok := index[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v.s.userLocked(id)
}

func (s *Store) userLocked(userID int64) (*domain.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := user.Clone()
	if account, ok := s.accounts[user.AccountID]; ok {
		out.Account = account.Clone()
	}
	return out, nil
}

// Create 建立使用者與帳戶 (同一把寫鎖內完成，不會只建立一半)
func (v *UserView) Create(ctx context.Context, user *domain.User) error {
	if user.Account == nil {
		return domain.ErrInvalidInput
	}
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return domain.ErrDuplicateUsername
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	if _, ok := s.byPhone[user.Phone]; ok {
		return domain.ErrDuplicatePhone
	}

	s.nextUserID++
	s.nextAccountID++
	now := s.now()

	user.ID = s.nextUserID
	user.CreatedAt = now
	user.AccountID = s.nextAccountID
	user.Account.ID = s.nextAccountID
	user.Account.UserID = user.ID
	user.Account.UpdatedAt = now

	stored := user.Clone()
	stored.Account = nil
	s.users[user.ID] = stored
	s.accounts[user.AccountID] = user.Account.Clone()
	s.byUsername[user.Username] = user.ID
	s.byEmail[user.Email] = user.ID
	s.byPhone[user.Phone] = user.ID
	return nil
}

// UpdateContact 修改 email / phone，衝突時不寫入
func (v *UserView) UpdateContact(ctx context.Context, userID int64, email, phone string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, ok := s.byEmail[email]; ok && owner != userID {
		return domain.ErrDuplicateEmail
	}
	if owner, ok := s.byPhone[phone]; ok && owner != userID {
		return domain.ErrDuplicatePhone
	}

	delete(s.byEmail, user.Email)
	delete(s.byPhone, user.Phone)
	user.Email = email
	user.Phone = phone
	s.byEmail[email] = userID
	s.byPhone[phone] = userID
	return nil
}

// Search 不分大小寫的子字串比對，依 ID 排序後分頁
func (v *UserView) Search(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	filter = filter.Normalize()
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.users))
	for id, user := range s.users {
		if matches(user, filter) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	offset := filter.Offset()
	if offset >= len(ids) {
		return []*domain.User{}, nil
	}
	end := min(offset+filter.PageSize, len(ids))

	out := make([]*domain.User, 0, end-offset)
	for _, id := range ids[offset:end] {
		user, err := s.userLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

func matches(user *domain.User, f domain.UserFilter) bool {
	if !containsFold(user.FullName, f.FullName) ||
		!containsFold(user.Email, f.Email) ||
		!containsFold(user.Phone, f.Phone) {
		return false
	}
	if f.BornAfter != nil && !user.BirthDate.After(*f.BornAfter) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

var (
	_ usecase.AccountStore  = (*Store)(nil)
	_ usecase.BatchSaver    = (*Store)(nil)
	_ usecase.IdentityStore = (*UserView)(nil)
)
