package usecase

import (
	"context"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// AccountStore 帳戶儲存層介面
//
// 餘額的 read-modify-write 必須在 AccountLocker 持有該帳戶鎖時進行
type AccountStore interface {
	// Get 取得帳戶，查無資料回傳 domain.ErrNotFound
	Get(ctx context.Context, accountID int64) (*domain.Account, error)
	// Save 寫入帳戶餘額
	Save(ctx context.Context, account *domain.Account) error
	// IDs 所有帳戶 ID (由小到大)
	IDs(ctx context.Context) ([]int64, error)
}

// BatchSaver 可選介面: 在同一個交易中寫入多個帳戶，全部成功或全部失敗
type BatchSaver interface {
	SaveBatch(ctx context.Context, accounts ...*domain.Account) error
}

// IdentityStore 使用者儲存層介面
//
// username / email / phone 的唯一性由儲存層強制 (unique constraint)，
// 違反時回傳 domain.ErrDuplicateUsername / ErrDuplicateEmail / ErrDuplicatePhone
type IdentityStore interface {
	// Get, FindBy*: 查無資料回傳 domain.ErrNotFound，回傳的 User 帶有 Account
	Get(ctx context.Context, userID int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	// Create 原子地建立 user 與 user.Account，並回填 ID 與 CreatedAt
	Create(ctx context.Context, user *domain.User) error
	// UpdateContact 只修改 email 與 phone
	UpdateContact(ctx context.Context, userID int64, email, phone string) error
	// Search 依條件搜尋，依 ID 排序
	Search(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error)
}

// PasswordHasher 密碼單向雜湊
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// PasswordVerifier 比對明文與雜湊，不符時回傳非 nil
type PasswordVerifier interface {
	Compare(hash, plaintext string) error
}

// TokenIssuer 簽發 bearer token，subject 為 username
type TokenIssuer interface {
	Issue(username string) (string, error)
}
