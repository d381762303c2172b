package pgsess

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeSession records statements and serves canned responses. The
// embedded interfaces on fakeTx/fakeRows panic for anything a test
// does not stub, which is what we want.
type fakeSession struct {
	execSQL   []string
	execErrOn map[string]error

	queryErr  error
	queryRows pgx.Rows

	inTx     bool
	beginErr error
	tx       *fakeTx

	closed   int
	closeErr error
}

func (s *fakeSession) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	if err := s.execErrOn[sql]; err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.CommandTag{}, nil
}

func (s *fakeSession) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.queryRows, nil
}

func (s *fakeSession) Begin(ctx context.Context) (pgx.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	if s.tx == nil {
		s.tx = &fakeTx{}
	}
	return s.tx, nil
}

func (s *fakeSession) InTransaction() bool {
	return s.inTx
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.closed++
	return s.closeErr
}

type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
	commitErr error
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.commits++
	return t.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	return nil
}

// fakeRows yields a fixed word list through Next/Scan, then reports
// deferredErr from Err().
type fakeRows struct {
	pgx.Rows
	words       []string
	i           int
	deferredErr error
	scanErr     error
	closed      bool
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.words) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	*dest[0].(*string) = r.words[r.i-1]
	return nil
}

func (r *fakeRows) Err() error {
	return r.deferredErr
}

func (r *fakeRows) Close() {
	r.closed = true
}
