package domain

import "time"

// AccrualReport 一次 accrual sweep 的結果
type AccrualReport struct {
	Total     int
	Updated   int
	Unchanged int
	Failed    int
	Duration  time.Duration
}
