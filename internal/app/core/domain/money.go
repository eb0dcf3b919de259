package domain

import "github.com/shopspring/decimal"

// amount 使用 decimal，並定義精度：小數點後 4 位
const MoneyScale int32 = 4

var (
	// DefaultCeilingFactor 未指定上限時 MaxBalance = InitialBalance * 2.07
	DefaultCeilingFactor = decimal.RequireFromString("2.07")

	// DefaultGrowthRate 每次 accrual 餘額成長 5%
	DefaultGrowthRate = decimal.RequireFromString("1.05")
)

// RoundMoney 四捨五入到 MoneyScale
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
