package pgsess

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// reservedKeywordsQuery asks the server for its reserved ('R') and
// type/function-name ('T') keywords. pg_get_keywords() exists since
// PostgreSQL 8.1; older servers get the static fallback.
const reservedKeywordsQuery = `select word from pg_get_keywords() where catcode in ('R','T')`

// FetchReservedKeywords returns the server's reserved-keyword set as
// lowercase words. When the server lacks pg_get_keywords() (SQLSTATE
// 42883, undefined function) the static fallback set is returned
// instead; any other error propagates.
func FetchReservedKeywords(ctx context.Context, sess Session) (map[string]struct{}, error) {
	rows, err := sess.Query(ctx, reservedKeywordsQuery)
	if err != nil {
		if isUndefinedFunction(err) {
			return fallbackKeywordSet(), nil
		}
		return nil, fmt.Errorf("pgsess: fetch reserved keywords: %w", err)
	}
	defer rows.Close()

	words := make(map[string]struct{})
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("pgsess: fetch reserved keywords: %w", err)
		}
		words[strings.ToLower(w)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		if isUndefinedFunction(err) {
			return fallbackKeywordSet(), nil
		}
		return nil, fmt.Errorf("pgsess: fetch reserved keywords: %w", err)
	}
	return words, nil
}

// QuoteIdent double-quotes an identifier when it is reserved or not a
// plain lowercase identifier. reserved is typically the set returned by
// FetchReservedKeywords.
func QuoteIdent(name string, reserved map[string]struct{}) string {
	_, isReserved := reserved[strings.ToLower(name)]
	if !isReserved && isPlainIdent(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_':
		case r >= '0' && r <= '9' && i > 0:
		case r == '$' && i > 0:
		default:
			return false
		}
	}
	return true
}

func isUndefinedFunction(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUndefinedFunction
}

func fallbackKeywordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(fallbackKeywords))
	for _, w := range fallbackKeywords {
		set[w] = struct{}{}
	}
	return set
}

// fallbackKeywords is the standard reserved-word list used when the
// server cannot be asked. It covers the reserved and
// type/function-name keyword classes, plus words that were reserved on
// the old servers this fallback actually targets.
var fallbackKeywords = []string{
	"all", "analyse", "analyze", "and", "any", "array", "as", "asc",
	"asymmetric", "authorization", "between", "bigint", "binary", "bit",
	"boolean", "both", "case", "cast", "char", "character", "check",
	"coalesce", "collate", "collation", "column", "concurrently",
	"constraint", "create", "cross", "current_catalog", "current_date",
	"current_role", "current_schema", "current_time", "current_timestamp",
	"current_user", "decimal", "default", "deferrable", "desc", "distinct",
	"do", "else", "end", "except", "exists", "extract", "false", "fetch",
	"float", "for", "foreign", "freeze", "from", "full", "grant",
	"greatest", "group", "grouping", "having", "ilike", "in", "initially",
	"inner", "int", "integer", "intersect", "interval", "into", "is",
	"isnull", "join", "lateral", "leading", "least", "left", "like",
	"limit", "localtime", "localtimestamp", "natural", "new", "not",
	"notnull", "null", "nullif", "numeric", "off", "offset", "old", "on",
	"only", "or", "order", "outer", "overlaps", "placing", "primary",
	"references", "returning", "right", "select", "session_user",
	"similar", "some", "symmetric", "table", "tablesample", "then", "to",
	"trailing", "true", "union", "unique", "user", "using", "variadic",
	"verbose", "when", "where", "window", "with",
}
