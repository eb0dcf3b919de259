package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-funds-ledger/internal/app/core/usecase"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (plainHasher) Compare(hash, plaintext string) error {
	if hash != "hashed:"+plaintext {
		return errors.New("mismatch")
	}
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(username string) (string, error) {
	return "token-for-" + username, nil
}

type fixture struct {
	store    *memory.Store
	users    usecase.IdentityStore
	accounts usecase.AccountStore
	locker   *usecase.AccountLocker
	log      *logrus.Logger
	hook     *test.Hook

	ledger       *usecase.Ledger
	accrual      *usecase.Accrual
	registration *usecase.Registration
	contacts     *usecase.Contacts
	directory    *usecase.Directory
	sessions     *usecase.Sessions
	core         *usecase.CoreUseCase
}

type fixtureOption func(*fixture)

// withAccounts 以包裝過的 AccountStore 取代記憶體儲存層
func withAccounts(wrap func(usecase.AccountStore) usecase.AccountStore) fixtureOption {
	return func(f *fixture) { f.accounts = wrap(f.accounts) }
}

func withUsers(wrap func(usecase.IdentityStore) usecase.IdentityStore) fixtureOption {
	return func(f *fixture) { f.users = wrap(f.users) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	store := memory.NewStore()
	f := &fixture{
		store:    store,
		users:    store.Users(),
		accounts: store,
		locker:   usecase.NewAccountLocker(),
		log:      log,
		hook:     hook,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.ledger = usecase.NewLedger(f.accounts, f.users, f.locker, log)
	f.accrual = usecase.NewAccrual(f.accounts, f.locker, domain.DefaultGrowthRate, log)
	f.registration = usecase.NewRegistration(f.users, plainHasher{}, log)
	f.contacts = usecase.NewContacts(f.users, log)
	f.directory = usecase.NewDirectory(f.users)
	f.sessions = usecase.NewSessions(f.users, plainHasher{}, fakeTokens{}, log)
	f.core = usecase.NewCoreUseCase(f.ledger, f.accrual, f.registration, f.contacts, f.directory, f.sessions)
	return f
}

var seq atomic.Int64

func registerInput(username, initial string) usecase.RegisterInput {
	n := seq.Add(1)
	return usecase.RegisterInput{
		Username:       username,
		Password:       "s3cret",
		Email:          fmt.Sprintf("%s.%d@example.com", username, n),
		Phone:          fmt.Sprintf("+886-9%08d", n),
		FullName:       "Test " + username,
		BirthDate:      time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		InitialBalance: dec(initial),
	}
}

func (f *fixture) register(t *testing.T, username, initial string) *domain.User {
	t.Helper()
	u, err := f.registration.Register(context.Background(), registerInput(username, initial))
	require.NoError(t, err)
	return u
}

func (f *fixture) balance(t *testing.T, u *domain.User) decimal.Decimal {
	t.Helper()
	acc, err := f.store.Get(context.Background(), u.AccountID)
	require.NoError(t, err)
	return acc.Balance
}

func (f *fixture) total(t *testing.T) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	ids, err := f.store.IDs(ctx)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, id := range ids {
		acc, err := f.store.Get(ctx, id)
		require.NoError(t, err)
		sum = sum.Add(acc.Balance)
	}
	return sum
}

// failingAccounts 只嵌入 AccountStore (不提供 BatchSaver)，讓轉帳走補償路徑
type failingAccounts struct {
	usecase.AccountStore
	failSaveOf  int64
	failGetOf   int64
	failFromNth int64
	saves       atomic.Int64
}

func (s *failingAccounts) Get(ctx context.Context, id int64) (*domain.Account, error) {
	if s.failGetOf != 0 && id == s.failGetOf {
		return nil, fmt.Errorf("read account %d: connection reset", id)
	}
	return s.AccountStore.Get(ctx, id)
}

func (s *failingAccounts) Save(ctx context.Context, account *domain.Account) error {
	n := s.saves.Add(1)
	if s.failSaveOf != 0 && account.ID == s.failSaveOf {
		return fmt.Errorf("write account %d: connection reset", account.ID)
	}
	if s.failFromNth != 0 && n >= s.failFromNth {
		return fmt.Errorf("write #%d: connection reset", n)
	}
	return s.AccountStore.Save(ctx, account)
}

// stalePrecheck 模擬 pre-check 讀到舊資料: FindBy* 一律查無，只剩儲存層的唯一性把關
type stalePrecheck struct {
	usecase.IdentityStore
}

func (stalePrecheck) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (stalePrecheck) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (stalePrecheck) FindByPhone(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

type recordingObserver struct {
	transfers atomic.Int64
	sweeps    atomic.Int64
	lastKind  atomic.Value
}

func (o *recordingObserver) ObserveTransfer(result string, _ time.Duration) {
	o.transfers.Add(1)
	o.lastKind.Store(result)
}

func (o *recordingObserver) ObserveSweep(result string, _, _, _ int, _ time.Duration) {
	o.sweeps.Add(1)
	o.lastKind.Store(result)
}
