package pgsess

import (
	"context"
	"fmt"
	"strings"
)

// GUCScope selects whether a setting applies to the whole session or
// only to the current transaction (SET LOCAL).
type GUCScope int

const (
	ScopeSession GUCScope = iota
	ScopeTransaction
)

// ApplyGUCs issues one SET statement per setting, in order. Values are
// single-quoted (embedded quotes doubled), except search_path, whose value is
// itself a comma-separated identifier list and is emitted unquoted.
// Execution failures are not caught here — the first failing SET
// propagates to the caller.
func ApplyGUCs(ctx context.Context, sess Session, settings []Setting, scope GUCScope) error {
	for _, s := range settings {
		stmt := setStatement(s.Name, s.Value, scope)
		if _, err := sess.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func setStatement(name, value string, scope GUCScope) string {
	local := ""
	if scope == ScopeTransaction {
		local = "LOCAL "
	}
	if strings.EqualFold(name, "search_path") {
		return fmt.Sprintf("SET %s%s TO %s", local, name, value)
	}
	return fmt.Sprintf("SET %s%s TO %s", local, name, quoteGUCValue(value))
}

func quoteGUCValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
