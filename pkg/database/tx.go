package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Postgres error codes that make a transaction safe to replay from the start.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// TxFunc runs statements inside a transaction. The executor must not escape the call.
type TxFunc func(tx sqlx.ExtContext) error

// TxManager runs read-modify-write sequences in serializable transactions and replays them
// when Postgres reports a serialization conflict.
type TxManager struct {
	db               *sqlx.DB
	retries          int
	retryConstraints map[string]struct{}
	logger           *zap.Logger
	onRetry          func(attempt int, err error)
}

// TxManagerOption customises a TxManager.
type TxManagerOption func(*TxManager)

// WithRetryOnConstraint marks unique violations on the named constraint as retryable.
func WithRetryOnConstraint(names ...string) TxManagerOption {
	return func(m *TxManager) {
		for _, name := range names {
			m.retryConstraints[name] = struct{}{}
		}
	}
}

// WithRetryHook registers a callback invoked before each replay.
func WithRetryHook(hook func(attempt int, err error)) TxManagerOption {
	return func(m *TxManager) {
		m.onRetry = hook
	}
}

// NewTxManager constructs a TxManager. retries is the number of replays after the first attempt.
func NewTxManager(db *sqlx.DB, retries int, logger *zap.Logger, opts ...TxManagerOption) *TxManager {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &TxManager{db: db, retries: retries, logger: logger, retryConstraints: map[string]struct{}{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InTx executes fn in a serializable transaction, committing on success.
func (m *TxManager) InTx(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 0; attempt <= m.retries; attempt++ {
		if attempt > 0 {
			if m.onRetry != nil {
				m.onRetry(attempt, err)
			}
			m.logger.Debug("replaying transaction", zap.Int("attempt", attempt), zap.Error(err))
		}
		err = m.runOnce(ctx, fn)
		if err == nil || !m.retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (m *TxManager) runOnce(ctx context.Context, fn TxFunc) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	case codeUniqueViolation:
		_, ok := m.retryConstraints[pqErr.Constraint]
		return ok
	}
	return false
}
