// Package lock 提供按业务键加锁的排期互斥原语。
//
// 放置答辩与分配委员会都是"先校验后写入"的序列，需要在同一时刻只有一个调用方
// 对同一个时段 / 答辩执行该序列。Locker 按排序后的键依次获取，多键加锁不会死锁。
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	apperrors "defense-scheduler/pkg/errors"
)

// Locker 业务键互斥锁
type Locker interface {
	// Lock 获取全部键，返回的 unlock 必须调用一次
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// normalizeKeys 排序、去重并丢弃空键
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// waitError 区分调用方取消与等待超时
func waitError(parent, waitCtx context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return apperrors.ErrLockTimeout
	}
	return waitCtx.Err()
}

// ── 进程内实现 ──

type localEntry struct {
	ch   chan struct{}
	refs int // 持有者 + 等待者
}

// Local 进程内键锁，单实例部署或 Redis 不可用时使用
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

// NewLocal 创建进程内键锁，wait 为单次加锁的最长等待时间
func NewLocal(wait time.Duration) *Local {
	return &Local{entries: make(map[string]*localEntry), wait: wait}
}

func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]*localEntry, 0, len(keys))
	heldKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		e := l.enter(k)
		select {
		case e.ch <- struct{}{}:
			held = append(held, e)
			heldKeys = append(heldKeys, k)
		case <-waitCtx.Done():
			l.leave(k, e)
			l.releaseAll(heldKeys, held)
			return nil, waitError(ctx, waitCtx)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.releaseAll(heldKeys, held) })
	}, nil
}

func (l *Local) enter(key string) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) leave(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) releaseAll(keys []string, entries []*localEntry) {
	for i := len(entries) - 1; i >= 0; i-- {
		<-entries[i].ch
		l.leave(keys[i], entries[i])
	}
}
