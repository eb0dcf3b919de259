package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// CoreUseCase 是核心業務邏輯層，提供給 driver (gRPC / scheduler) 使用的所有操作
type CoreUseCase struct {
	ledger       *Ledger
	accrual      *Accrual
	registration *Registration
	contacts     *Contacts
	directory    *Directory
	sessions     *Sessions
}

func NewCoreUseCase(ledger *Ledger, accrual *Accrual, registration *Registration, contacts *Contacts, directory *Directory, sessions *Sessions) *CoreUseCase {
	return &CoreUseCase{
		ledger:       ledger,
		accrual:      accrual,
		registration: registration,
		contacts:     contacts,
		directory:    directory,
		sessions:     sessions,
	}
}

// Register 註冊使用者與帳戶
func (c *CoreUseCase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return c.registration.Register(ctx, in)
}

// UpdateContact 修改聯絡資料
func (c *CoreUseCase) UpdateContact(ctx context.Context, userID int64, in ContactInput) (*domain.User, error) {
	return c.contacts.UpdateContact(ctx, userID, in)
}

// Transfer 由 initiator 轉帳給 toUserID
func (c *CoreUseCase) Transfer(ctx context.Context, initiator string, toUserID int64, amount decimal.Decimal) (*domain.Transfer, error) {
	return c.ledger.Transfer(ctx, initiator, toUserID, amount)
}

// GetAccountBalance 取得帳戶餘額
func (c *CoreUseCase) GetAccountBalance(ctx context.Context, userID int64) (*domain.Account, error) {
	return c.ledger.Balance(ctx, userID)
}

// Search 搜尋使用者
func (c *CoreUseCase) Search(ctx context.Context, filter domain.UserFilter) ([]*domain.User, error) {
	return c.directory.Search(ctx, filter)
}

// Accrue 執行一次 accrual sweep
func (c *CoreUseCase) Accrue(ctx context.Context) (domain.AccrualReport, error) {
	return c.accrual.Sweep(ctx)
}

// Login 驗證帳密並簽發 token
func (c *CoreUseCase) Login(ctx context.Context, username, password string) (string, error) {
	return c.sessions.Login(ctx, username, password)
}
