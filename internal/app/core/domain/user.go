package domain

import "time"

// User 使用者，每個使用者擁有一個 Account
type User struct {
	ID       int64
	Username string
	// PasswordHash 單向雜湊後的密碼，不保存明文
	PasswordHash string
	Email        string
	Phone        string
	FullName     string
	// BirthDate 建立後不可修改
	BirthDate time.Time
	// CreatedAt 由儲存層在寫入時設定
	CreatedAt time.Time

	AccountID int64
	// Account 讀取時一併載入，建立時必須提供
	Account *Account
}

// Clone 複製使用者與其帳戶
func (u *User) Clone() *User {
	c := *u
	if u.Account != nil {
		c.Account = u.Account.Clone()
	}
	return &c
}
