package pgsess

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNestedTransaction is returned when a transaction is requested on a
// session that already has one open. This layer does not support
// nesting or savepoints.
var ErrNestedTransaction = errors.New("pgsess: transaction already open on session")

// TxBody is a unit of work scoped to one transaction.
type TxBody func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs body inside BEGIN..COMMIT on an already-open
// session. Any error returned by body forces a rollback and is then
// returned unchanged — the transaction layer annotates via logs, it
// never swallows or rewraps the body's error. Server notices raised
// inside the transaction go through the session's notice hook: logged
// at warn, suppressed.
func (m *Manager) WithTransaction(ctx context.Context, sess Session, body TxBody) error {
	if sess == nil {
		panic("pgsess: WithTransaction called with nil session")
	}
	if sess.InTransaction() {
		return ErrNestedTransaction
	}

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgsess: begin: %w", err)
	}

	if err := body(ctx, tx); err != nil {
		m.logger.Error().
			Err(err).
			Str("target", m.cfg.Table).
			Msg("transaction body failed, rolling back")
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgsess: commit: %w", err)
	}
	return nil
}

// WithNewConnection opens a fresh session via Open, runs body inside a
// transaction on it, and guarantees the session is closed on every exit
// path — success, body error, or cancellation — before returning.
func (m *Manager) WithNewConnection(ctx context.Context, body TxBody) (err error) {
	sess, err := m.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(ctx); cerr != nil {
			m.logger.Error().Err(cerr).Msg("closing connection failed")
			if err == nil {
				err = fmt.Errorf("pgsess: close: %w", cerr)
			}
		}
	}()
	return m.WithTransaction(ctx, sess, body)
}
