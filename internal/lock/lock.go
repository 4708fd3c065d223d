// Package lock — межпроцессная блокировка прохода scheduler'а.
//
// Внутри процесса проходы не пересекаются благодаря scheduler.Loop.
// Locker защищает от пересечения между репликами сервиса:
//   - Noop     — одна реплика, блокировка не нужна
//   - Postgres — pg_try_advisory_lock на выделенном соединении
//   - Redis    — SET NX PX с токеном владельца
package lock

import (
	"context"
	"errors"
)

// ErrNotHeld — блокировка уже не принадлежит нам (истёк TTL).
var ErrNotHeld = errors.New("lock not held")

// Release освобождает захваченную блокировку.
type Release func(ctx context.Context) error

// Locker пытается захватить блокировку без ожидания.
// ok=false означает, что блокировку держит кто-то другой.
type Locker interface {
	TryAcquire(ctx context.Context) (release Release, ok bool, err error)
}

// Noop — Locker, который всегда успешен.
type Noop struct{}

// TryAcquire всегда захватывает блокировку.
func (Noop) TryAcquire(context.Context) (Release, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
