package domain

import (
	"math"
	"time"
)

const (
	// DefaultPageSize 未指定時每頁筆數
	DefaultPageSize = 10
	// MaxPageSize 每頁筆數上限
	MaxPageSize = 100
)

// UserFilter 使用者搜尋條件，空字串/nil 的條件不套用
type UserFilter struct {
	// FullName, Email, Phone: 不分大小寫的子字串比對
	FullName string
	Email    string
	Phone    string
	// BornAfter: 生日嚴格晚於此日期
	BornAfter *time.Time
	// Page 從 0 開始
	Page     int
	PageSize int
}

// Normalize 修正分頁參數
func (f UserFilter) Normalize() UserFilter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	// page * pageSize 不可溢位；超出範圍的頁一律視為最後一個可表示的頁 (結果為空)
	if f.Page > math.MaxInt/f.PageSize {
		f.Page = math.MaxInt / f.PageSize
	}
	return f
}

// Offset page * pageSize，僅對 Normalize 過的 filter 有意義
func (f UserFilter) Offset() int {
	return f.Page * f.PageSize
}
