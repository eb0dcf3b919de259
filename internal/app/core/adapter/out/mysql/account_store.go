package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-funds-ledger/pkg/mysql"
)

// AccountStore 以 MySQL 實作的帳戶儲存層
type AccountStore struct {
	client *mysql.Client
	now    func() time.Time
}

func NewAccountStore(client *mysql.Client) *AccountStore {
	return &AccountStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get 取得帳戶
func (s *AccountStore) Get(ctx context.Context, accountID int64) (*domain.Account, error) {
	var row sqlAccount
	if err := s.client.DB().WithContext(ctx).Where("id = ?", accountID).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.toDomain(), nil
}

// Save 只更新 balance 與 updated_at
func (s *AccountStore) Save(ctx context.Context, account *domain.Account) error {
	return s.save(s.client.DB().WithContext(ctx), account)
}

// SaveBatch 在同一個交易內以 SELECT ... FOR UPDATE 鎖住所有列後更新
// 跨 process 共用同一個資料庫時也能依列序列化
func (s *AccountStore) SaveBatch(ctx context.Context, accounts ...*domain.Account) error {
	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}

	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&locked).Error; err != nil {
			return err
		}
		if len(locked) != len(ids) {
			return domain.ErrNotFound
		}
		for _, a := range accounts {
			if err := s.save(tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *AccountStore) save(db *gorm.DB, account *domain.Account) error {
	now := s.now()
	res := db.Model(&sqlAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"balance":    account.Balance,
			"updated_at": now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	account.UpdatedAt = now
	return nil
}

// IDs 所有帳戶 ID (由小到大)
func (s *AccountStore) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.client.DB().WithContext(ctx).Model(&sqlAccount{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

var (
	_ usecase.AccountStore = (*AccountStore)(nil)
	_ usecase.BatchSaver   = (*AccountStore)(nil)
)
