package usecase

import "time"

// Observer 業務指標的收集介面 (實作在 pkg/metrics)
type Observer interface {
	// ObserveTransfer result: "ok" 或錯誤種類
	ObserveTransfer(result string, elapsed time.Duration)
	// ObserveSweep result: "ok" 或 "canceled"
	ObserveSweep(result string, updated, unchanged, failed int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveTransfer(string, time.Duration) {}
func (nopObserver) ObserveSweep(string, int, int, int, time.Duration) {}
