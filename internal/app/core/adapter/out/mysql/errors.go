package mysql

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-funds-ledger/internal/app/core/domain"
)

// erDupEntry MySQL duplicate key
const erDupEntry = 1062

// unique index 名稱 → 業務錯誤 (見 pkg/mysql/migrations)
var duplicateByIndex = []struct {
	index string
	err   error
}{
	{"uk_users_username", domain.ErrDuplicateUsername},
	{"uk_users_email", domain.ErrDuplicateEmail},
	{"uk_users_phone", domain.ErrDuplicatePhone},
}

// translate 把資料庫錯誤轉成 domain 錯誤
func translate(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	var me *mysqldriver.MySQLError
	if errors.As(err, &me) && me.Number == erDupEntry {
		for _, d := range duplicateByIndex {
			if strings.Contains(me.Message, d.index) {
				return d.err
			}
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

// escapeLike 跳脫 LIKE 的萬用字元，讓使用者輸入只做字面比對
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
