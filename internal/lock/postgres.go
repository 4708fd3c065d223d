package lock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultAdvisoryKey — ключ advisory lock по умолчанию.
const DefaultAdvisoryKey int64 = 424242

// Postgres — блокировка через pg_try_advisory_lock.
//
// Advisory lock привязан к сессии, поэтому соединение берётся из пула
// и удерживается до Release.
type Postgres struct {
	pool *pgxpool.Pool
	key  int64
}

// NewPostgres создаёт Postgres locker.
func NewPostgres(pool *pgxpool.Pool, key int64) *Postgres {
	if key == 0 {
		key = DefaultAdvisoryKey
	}
	return &Postgres{pool: pool, key: key}
}

// TryAcquire пытается захватить advisory lock.
func (p *Postgres) TryAcquire(ctx context.Context) (Release, bool, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", p.key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		defer conn.Release()

		var unlocked bool
		if err := conn.QueryRow(ctx, "select pg_advisory_unlock($1)", p.key).Scan(&unlocked); err != nil {
			return fmt.Errorf("advisory unlock: %w", err)
		}
		if !unlocked {
			return ErrNotHeld
		}
		return nil
	}
	return release, true, nil
}
