package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchedulerLockKey — ключ advisory lock лидера scheduler.
const SchedulerLockKey int64 = 424242

// LeaderLock — leader election через pg_try_advisory_lock.
//
// Advisory lock привязан к сессии, поэтому держим выделенное соединение
// из пула до Release.
type LeaderLock struct {
	pool *pgxpool.Pool
	key  int64
	conn *pgxpool.Conn
}

// NewLeaderLock создаёт lock для ключа key.
func NewLeaderLock(pool *pgxpool.Pool, key int64) *LeaderLock {
	return &LeaderLock{pool: pool, key: key}
}

// TryAcquire пытается стать лидером. Возвращает ErrLockHeld, если lock занят.
func (l *LeaderLock) TryAcquire(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return ErrLockHeld
	}

	l.conn = conn
	return nil
}

// Acquire ждёт lock, повторяя попытку каждые interval.
func (l *LeaderLock) Acquire(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := l.TryAcquire(ctx)
		if err == nil {
			return nil
		}
		logger.Info("waiting for scheduler leadership", "reason", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// lockCheckTimeout — таймаут проверки lock перед запуском.
const lockCheckTimeout = 5 * time.Second

// Check подтверждает, что lock всё ещё держит наше соединение.
//
// Advisory lock живёт в сессии: обрыв соединения тихо снимает его.
// При любой ошибке соединение возвращается в пул и Check отдаёт ErrLockLost.
func (l *LeaderLock) Check(ctx context.Context) error {
	if l.conn == nil {
		return ErrLockLost
	}

	ctx, cancel := context.WithTimeout(ctx, lockCheckTimeout)
	defer cancel()

	// bigint-ключ хранится в pg_locks как classid (старшие 32 бита) + objid
	var held bool
	err := l.conn.QueryRow(ctx, `
		select exists (
			select 1 from pg_locks
			where locktype = 'advisory' and granted
			  and pid = pg_backend_pid()
			  and classid::bigint = $1 and objid::bigint = $2
		)`, l.key>>32&0xffffffff, l.key&0xffffffff).Scan(&held)
	if err != nil {
		l.conn.Release()
		l.conn = nil
		return fmt.Errorf("%w: %v", ErrLockLost, err)
	}
	if !held {
		l.conn.Release()
		l.conn = nil
		return ErrLockLost
	}
	return nil
}

// Release отпускает lock и возвращает соединение в пул.
func (l *LeaderLock) Release() {
	if l.conn == nil {
		return
	}
	_, _ = l.conn.Exec(context.Background(), "select pg_advisory_unlock($1)", l.key)
	l.conn.Release()
	l.conn = nil
}
