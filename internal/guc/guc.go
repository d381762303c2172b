// Package guc normalizes session configuration (GUC) entries before
// they are sent to the server.
package guc

import (
	"strings"

	"github.com/rs/zerolog"
)

// Entry is the package's own name/value pair type. Names compare
// case-insensitively.
type Entry struct {
	Name  string
	Value string
}

// DefaultApplicationName identifies this tool in pg_stat_activity when
// the caller does not supply an application_name of its own.
const DefaultApplicationName = "pgsess"

// Sanitize normalizes a list of session settings. It never contacts the
// server. Rules, in order:
//
//  1. A forced client_encoding=utf8 entry is prepended.
//  2. Caller-supplied client_encoding entries are dropped; a non-UTF8
//     value additionally gets a warning (the data path is UTF8-only).
//  3. If no application_name entry exists, one is appended with
//     DefaultApplicationName.
//
// Output order is therefore: forced defaults, filtered caller entries,
// then the appended application_name if one was added.
func Sanitize(entries []Entry, logger zerolog.Logger) []Entry {
	out := make([]Entry, 0, len(entries)+2)
	out = append(out, Entry{Name: "client_encoding", Value: "utf8"})

	haveAppName := false
	for _, e := range entries {
		if strings.EqualFold(e.Name, "client_encoding") {
			if !isUTF8(e.Value) {
				logger.Warn().
					Str("value", e.Value).
					Msg("ignoring non-utf8 client_encoding setting, forcing utf8")
			}
			continue
		}
		if strings.EqualFold(e.Name, "application_name") {
			haveAppName = true
		}
		out = append(out, e)
	}

	if !haveAppName {
		out = append(out, Entry{Name: "application_name", Value: DefaultApplicationName})
	}
	return out
}

func isUTF8(value string) bool {
	return strings.EqualFold(value, "utf8") || strings.EqualFold(value, "utf-8")
}
