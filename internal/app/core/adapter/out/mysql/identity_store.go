package mysql

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-funds-ledger/pkg/mysql"
)

// IdentityStore 以 MySQL 實作的使用者儲存層
// 唯一性由 uk_users_username / uk_users_email / uk_users_phone 保證
type IdentityStore struct {
	client *mysql.Client
	now    func() time.Time
}

func NewIdentityStore(client *mysql.Client) *IdentityStore {
	return &IdentityStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdentityStore) findOne(ctx context.Context, column string, value any) (*domain.User, error) {
	var row sqlUser
	err := s.client.DB().WithContext(ctx).
		Preload("Account").
		Where(column+" = ?", value).
		First(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return row.toDomain(), nil
}

// Get 取得使用者 (含帳戶)
func (s *IdentityStore) Get(ctx context.Context, userID int64) (*domain.User, error) {
	return s.findOne(ctx, "id", userID)
}

func (s *IdentityStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, "username", username)
}

func (s *IdentityStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, "email", email)
}

func (s *IdentityStore) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.findOne(ctx, "phone", phone)
}

// Create 在同一個交易內建立 user 與 account
func (s *IdentityStore) Create(ctx context.Context, user *domain.User) error {
	if user.Account == nil {
		return domain.ErrInvalidInput
	}
	now := s.now()
	row := sqlUser{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Email:        user.Email,
		Phone:        user.Phone,
		FullName:     user.FullName,
		BirthDate:    user.BirthDate,
		CreatedAt:    now,
	}

	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		account := sqlAccount{
			UserID:         row.ID,
			InitialBalance: user.Account.InitialBalance,
			Balance:        user.Account.Balance,
			MaxBalance:     user.Account.MaxBalance,
			UpdatedAt:      now,
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		row.Account = &account
		return nil
	})
	if err != nil {
		return translate(err)
	}

	user.ID = row.ID
	user.CreatedAt = now
	user.AccountID = row.Account.ID
	user.Account.ID = row.Account.ID
	user.Account.UserID = row.ID
	user.Account.UpdatedAt = now
	return nil
}

// UpdateContact 只修改 email 與 phone
func (s *IdentityStore) UpdateContact(ctx context.Context, userID int64, email, phone string) error {
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sqlUser
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&row).Error; err != nil {
			return err
		}
		return tx.Model(&sqlUser{}).
			Where("id = ?", userID).
			Updates(map[string]any{"email": email, "phone": phone}).Error
	})
	return translate(err)
}

// Search 不分大小寫的子字串比對，依 ID 排序後分頁
func (s *IdentityStore) Search(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	filter = filter.Normalize()
	q := s.client.DB().WithContext(ctx).Preload("Account")
	for _, c := range []struct{ column, value string }{
		{"full_name", filter.FullName},
		{"email", filter.Email},
		{"phone", filter.Phone},
	} {
		if c.value == "" {
			continue
		}
		q = q.Where("LOWER("+c.column+") LIKE ?", "%"+escapeLike(strings.ToLower(c.value))+"%")
	}
	if filter.BornAfter != nil {
		q = q.Where("birth_date > ?", *filter.BornAfter)
	}

	var rows []sqlUser
	if err := q.Order("id").Offset(filter.Offset()).Limit(filter.PageSize).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	out := make([]*domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

var _ usecase.IdentityStore = (*IdentityStore)(nil)
