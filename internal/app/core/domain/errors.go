package domain

import "errors"

// Kind 錯誤種類，傳輸層依此決定回傳的狀態碼
type Kind string

const (
	KindInvalidAmount     Kind = "InvalidAmount"
	KindSelfTransfer      Kind = "SelfTransfer"
	KindUserNotFound      Kind = "UserNotFound"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindDuplicateUsername Kind = "DuplicateUsername"
	KindDuplicateEmail    Kind = "DuplicateEmail"
	KindDuplicatePhone    Kind = "DuplicatePhone"
	KindNoContactProvided Kind = "NoContactProvided"
	KindStoreUnavailable  Kind = "StoreUnavailable"
	KindCeilingExceeded   Kind = "CeilingExceeded"
	KindInvalidInput      Kind = "InvalidInput"
	KindInvalidCredential Kind = "InvalidCredentials"
)

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func newError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = newError(KindInvalidAmount, "amount must be positive")

	// ErrSelfTransfer 不可轉帳給自己
	ErrSelfTransfer = newError(KindSelfTransfer, "source and destination are the same account")

	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = newError(KindUserNotFound, "user not found")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = newError(KindInsufficientFunds, "insufficient funds")

	// ErrDuplicateUsername 帳號已被使用
	ErrDuplicateUsername = newError(KindDuplicateUsername, "username is already taken")

	// ErrDuplicateEmail Email 已被使用
	ErrDuplicateEmail = newError(KindDuplicateEmail, "email is already taken")

	// ErrDuplicatePhone 電話已被使用
	ErrDuplicatePhone = newError(KindDuplicatePhone, "phone number is already taken")

	// ErrNoContactProvided email 與 phone 至少要提供一個
	ErrNoContactProvided = newError(KindNoContactProvided, "at least one contact (email or phone) must be provided")

	// ErrStoreUnavailable 儲存層失敗，唯一可以由呼叫端重試的錯誤
	ErrStoreUnavailable = newError(KindStoreUnavailable, "store unavailable")

	// ErrCeilingExceeded 入帳後會超過帳戶上限
	ErrCeilingExceeded = newError(KindCeilingExceeded, "balance ceiling exceeded")

	// ErrInvalidInput 輸入欄位不合法
	ErrInvalidInput = newError(KindInvalidInput, "invalid input")

	// ErrInvalidCredentials 帳號或密碼錯誤 (不區分是哪一個)
	ErrInvalidCredentials = newError(KindInvalidCredential, "invalid username or password")
)

// ErrNotFound 儲存層查無資料 (由 service 轉成對應的業務錯誤)
var ErrNotFound = errors.New("not found")

// KindOf 取出錯誤鏈中的 Kind，非業務錯誤回傳空字串
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return ""
}

// IsRetryable 只有 StoreUnavailable 可以重試
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
