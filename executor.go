package pgsess

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/rs/zerolog"
)

// Executor runs statements against a session, measuring wall time and
// reporting outcome counters to a stats sink.
type Executor struct {
	sink   StatsSink
	logger zerolog.Logger
}

// NewExecutor creates an Executor. Panics on a nil sink (programmer
// error) — ExecuteTimed's contract is that the sink always reflects the
// outcome.
func NewExecutor(sink StatsSink, logger zerolog.Logger) *Executor {
	if sink == nil {
		panic("pgsess: NewExecutor called with nil StatsSink")
	}
	return &Executor{sink: sink, logger: logger}
}

// ExecuteTimed executes statements sequentially, logging each before it
// runs, and updates the sink for (section, label) exactly once. count
// is the number of logical items the statements represent (rows in a
// batch, DDL objects, ...).
//
// On success: attempted += count, rows += count. On the first failing
// statement: the error is logged, errors += 1, rows -= count (the count
// optimistically added elsewhere is retracted), and execution stops.
// Elapsed wall time up to that point is added either way. The failure
// is absorbed into statistics, never re-raised — ExecuteTimed always
// returns.
func (e *Executor) ExecuteTimed(ctx context.Context, sess Session, section, label string, stmts []string, count int64) {
	start := time.Now()
	for _, stmt := range stmts {
		e.logger.Trace().Str("sql", truncateForLog(stmt, 200)).Msg("executing")
		if _, err := sess.Exec(ctx, stmt); err != nil {
			e.logger.Error().
				Err(err).
				Str("section", section).
				Str("label", label).
				Str("sql", truncateForLog(stmt, 200)).
				Msg("statement failed")
			e.sink.Update(section, label, count, -count, 1, time.Since(start).Seconds())
			return
		}
	}
	e.sink.Update(section, label, count, count, 0, time.Since(start).Seconds())
}

// Execute runs statements sequentially with no stats tracking. When
// clientMinMessages is non-empty, client_min_messages is SET LOCAL for
// the duration and unconditionally RESET afterwards — including when a
// statement in between fails, so the level cannot leak past this call.
// The first execution error is returned.
func (e *Executor) Execute(ctx context.Context, sess Session, stmts []string, clientMinMessages string) error {
	if clientMinMessages != "" {
		set := "SET LOCAL client_min_messages TO " + quoteGUCValue(clientMinMessages)
		if _, err := sess.Exec(ctx, set); err != nil {
			return fmt.Errorf("pgsess: %s: %w", set, err)
		}
		defer func() {
			_, _ = sess.Exec(ctx, "RESET client_min_messages")
		}()
	}
	for _, stmt := range stmts {
		e.logger.Trace().Str("sql", truncateForLog(stmt, 200)).Msg("executing")
		if _, err := sess.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgsess: execute: %w", err)
		}
	}
	return nil
}

// SplitScript splits a multi-statement SQL text into individual
// statements on real lexer boundaries — semicolons inside string
// literals, dollar quoting, and comments do not split. Empty statements
// are dropped.
func SplitScript(sql string) ([]string, error) {
	stmts, err := pg_query.SplitWithScanner(sql, true)
	if err != nil {
		return nil, fmt.Errorf("pgsess: split script: %w", err)
	}
	out := stmts[:0]
	for _, s := range stmts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// truncateForLog truncates a statement for log output, respecting rune
// boundaries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
