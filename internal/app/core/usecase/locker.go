package usecase

import (
	"context"
	"slices"
	"sync"
)

// AccountLocker 每個帳戶一把互斥鎖
//
// 多帳戶的操作一律依 ID 由小到大取鎖，避免兩筆反方向的轉帳互相等待 (deadlock)。
// 不同帳戶之間不會互相阻塞。鎖以 reference count 管理，沒有人持有或等待時即回收。
type AccountLocker struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	// 容量 1 的 channel 當作可被 context 取消的 mutex
	sem  chan struct{}
	refs int
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{
		locks: make(map[int64]*accountLock),
	}
}

// Lock 取得所有帳戶的鎖
//
// 參數:
//
//	ctx: 只有在等待鎖的期間可以被取消
//	ids: 帳戶 ID (順序不拘，重複會被忽略)
//
// 回傳:
//
//	func(): 釋放所有鎖 (可重複呼叫)
//	error: ctx 被取消
func (l *AccountLocker) Lock(ctx context.Context, ids ...int64) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]int64, 0, len(ordered))
	for _, id := range ordered {
		if err := l.acquire(ctx, id); err != nil {
			l.release(held)
			return nil, err
		}
		held = append(held, id)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held) })
	}, nil
}

func (l *AccountLocker) acquire(ctx context.Context, id int64) error {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &accountLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.unref(id, lock)
		return ctx.Err()
	}
}

// release 反向釋放
func (l *AccountLocker) release(ids []int64) {
	for i := len(ids) - 1; i >= 0; i-- {
		l.mu.Lock()
		lock := l.locks[ids[i]]
		l.mu.Unlock()

		<-lock.sem
		l.unref(ids[i], lock)
	}
}

func (l *AccountLocker) unref(id int64, lock *accountLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

// size 目前仍被持有或等待中的鎖數量
func (l *AccountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
