package pgsess

import (
	"time"
)

// SSLMode controls whether and how strictly TLS is used for the
// connection. SSLTry and SSLRequire additionally trigger client
// certificate lookup (see ConnConfig.SSLCertPath/SSLKeyPath).
type SSLMode string

const (
	// SSLDisable never uses TLS.
	SSLDisable SSLMode = "disable"
	// SSLTry uses TLS when the server supports it and falls back to
	// plaintext otherwise (libpq "prefer").
	SSLTry SSLMode = "try"
	// SSLRequire refuses to connect without TLS.
	SSLRequire SSLMode = "require"
)

// enabled reports whether client certificate material should be looked up.
func (m SSLMode) enabled() bool {
	return m == SSLTry || m == SSLRequire
}

// libpq returns the sslmode keyword value understood by the transport.
func (m SSLMode) libpq() string {
	if m == SSLTry {
		return "prefer"
	}
	return string(m)
}

// RetryConfig bounds the connection retry loop. Only server-reported
// resource exhaustion (SQLSTATE 53300/53400) is retried; every other
// error class fails the first attempt immediately.
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay"`
}

// DefaultRetry returns the process default of 5 attempts, 500ms apart.
func DefaultRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 5, Delay: 500 * time.Millisecond}
}

// Setting is a session configuration (GUC) name/value pair. Names are
// compared case-insensitively.
type Setting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConnConfig describes how to reach one target database. It is a plain
// value with no session state attached; treat it as immutable once a
// Manager has been built from it.
type ConnConfig struct {
	User     string  `json:"user"`
	Password string  `json:"password"`
	Host     string  `json:"host"` // network address, or absolute unix-socket path
	Port     int     `json:"port"`
	Database string  `json:"dbname"`
	SSLMode  SSLMode `json:"sslmode"`

	// Table is informational only — it names the load target and is
	// carried into error and log context.
	Table string `json:"table"`

	// SSLCertPath and SSLKeyPath override the default client
	// certificate locations (~/.postgresql/postgresql.crt and .key).
	// The material is used only when both files exist on disk.
	SSLCertPath string `json:"sslcert,omitempty"`
	SSLKeyPath  string `json:"sslkey,omitempty"`

	// Settings are session GUCs applied to every new session after the
	// sanitizer has forced client_encoding=utf8 and ensured an
	// application_name.
	Settings []Setting `json:"settings,omitempty"`

	Retry RetryConfig `json:"retry"`
}

// Clone returns an independent deep copy of the config. The copy shares
// no mutable state with the original — it is the right input for a
// per-worker Manager that needs the same credentials but its own
// session.
func (c ConnConfig) Clone() ConnConfig {
	out := c
	if c.Settings != nil {
		out.Settings = make([]Setting, len(c.Settings))
		copy(out.Settings, c.Settings)
	}
	return out
}
