package pgsess

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestSetStatementQuoting(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, value string
		scope       GUCScope
		want        string
	}{
		{"client_encoding", "utf8", ScopeSession, "SET client_encoding TO 'utf8'"},
		{"work_mem", "64MB", ScopeTransaction, "SET LOCAL work_mem TO '64MB'"},
		// search_path values are identifier lists and stay unquoted.
		{"search_path", "staging, public", ScopeSession, "SET search_path TO staging, public"},
		{"SEARCH_PATH", "public", ScopeTransaction, "SET LOCAL SEARCH_PATH TO public"},
		// Embedded quotes are doubled, not escaped with backslash.
		{"application_name", "o'clock", ScopeSession, "SET application_name TO 'o''clock'"},
	}
	for _, c := range cases {
		if got := setStatement(c.name, c.value, c.scope); got != c.want {
			t.Fatalf("setStatement(%q, %q) = %q, want %q", c.name, c.value, got, c.want)
		}
	}
}

func TestApplyGUCsStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	setErr := &pgconn.PgError{Code: "42704", Message: "unrecognized configuration parameter"}
	sess := &fakeSession{
		execErrOn: map[string]error{"SET nope TO 'x'": setErr},
	}

	err := ApplyGUCs(context.Background(), sess, []Setting{
		{Name: "work_mem", Value: "64MB"},
		{Name: "nope", Value: "x"},
		{Name: "never", Value: "runs"},
	}, ScopeSession)

	if !errors.Is(err, setErr) {
		t.Fatalf("expected the SET error to propagate, got %v", err)
	}
	if len(sess.execSQL) != 2 {
		t.Fatalf("expected execution to stop at the failure, got %v", sess.execSQL)
	}
}
