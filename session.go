package pgsess

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/rickchristie/pgsess/internal/guc"
	"github.com/rickchristie/pgsess/internal/sslcert"
)

// SQLSTATE codes this layer classifies.
const (
	codeTooManyConnections = "53300" // retryable at connect time
	codeConfigurationLimit = "53400" // retryable at connect time
	codeUndefinedFunction  = "42883" // recovered by FetchReservedKeywords
)

// Session is the capability surface of one open, authenticated
// connection. A Session has exactly one logical owner at a time; it is
// never shared across concurrent callers. Implemented by the pgx-backed
// session Manager.Open returns.
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	// InTransaction reports whether a transaction is currently open.
	InTransaction() bool
	Close(ctx context.Context) error
}

type pgxSession struct {
	conn *pgx.Conn
}

func (s *pgxSession) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

func (s *pgxSession) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.conn.Query(ctx, sql, args...)
}

func (s *pgxSession) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.conn.Begin(ctx)
}

func (s *pgxSession) InTransaction() bool {
	return s.conn.PgConn().TxStatus() != 'I'
}

func (s *pgxSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// ConnExhaustedError is returned by Open when every retry attempt
// failed with server-side resource exhaustion. No session exists when
// this error is returned; the caller must treat it as a hard stop for
// that connection attempt.
type ConnExhaustedError struct {
	Target   string
	Attempts int
}

func (e *ConnExhaustedError) Error() string {
	return fmt.Sprintf("pgsess: could not connect to %s after %d attempts: server resources exhausted",
		e.Target, e.Attempts)
}

// Manager opens and closes sessions against one target database. Each
// Manager owns its config copy; a worker wanting its own connection
// builds a new Manager from ConnConfig.Clone().
type Manager struct {
	cfg    ConnConfig
	logger zerolog.Logger

	dial  func(ctx context.Context, cfg *pgx.ConnConfig) (Session, error)
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. Panics on invalid config (programmer
// error). Performs no I/O.
func NewManager(cfg ConnConfig, logger zerolog.Logger) *Manager {
	if cfg.Host == "" {
		panic("pgsess: ConnConfig.Host must be non-empty")
	}
	if cfg.Database == "" {
		panic("pgsess: ConnConfig.Database must be non-empty")
	}
	switch cfg.SSLMode {
	case "":
		cfg.SSLMode = SSLTry
	case SSLDisable, SSLTry, SSLRequire:
	default:
		panic(fmt.Sprintf("pgsess: unknown sslmode %q", cfg.SSLMode))
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetry()
	}
	if cfg.Retry.MaxAttempts < 1 {
		panic("pgsess: RetryConfig.MaxAttempts must be >= 1")
	}
	if cfg.Retry.Delay < 0 {
		panic("pgsess: RetryConfig.Delay must be >= 0")
	}
	return &Manager{
		cfg:    cfg.Clone(),
		logger: logger,
		dial:   dialPgx,
		sleep:  sleepCtx,
	}
}

// Config returns a copy of the manager's effective configuration, with
// defaults applied.
func (m *Manager) Config() ConnConfig {
	return m.cfg.Clone()
}

// Open establishes an authenticated session, retrying bounded by the
// retry config when the server reports resource exhaustion (SQLSTATE
// 53300/53400). Notices raised during the handshake and afterwards are
// logged at warn level and suppressed. On success the sanitized session
// GUCs have already been applied.
func (m *Manager) Open(ctx context.Context) (Session, error) {
	return m.OpenAs(ctx, m.cfg.User)
}

// OpenAs is Open with the username overridden, for the occasional
// maintenance statement that must run as a different role.
func (m *Manager) OpenAs(ctx context.Context, user string) (Session, error) {
	connCfg, err := m.connConfig(user)
	if err != nil {
		return nil, err
	}
	target := m.target()

	var sess Session
	for attempt := 1; attempt <= m.cfg.Retry.MaxAttempts; attempt++ {
		s, dialErr := m.dial(ctx, connCfg)
		if dialErr == nil {
			sess = s
			break
		}
		if !isResourceExhausted(dialErr) {
			m.logger.Error().Err(dialErr).Str("target", target).Msg("connection failed")
			return nil, fmt.Errorf("pgsess: connect %s: %w", target, dialErr)
		}
		m.logger.Error().
			Err(dialErr).
			Str("target", target).
			Int("attempt", attempt).
			Msg("server refused connection, out of slots")
		if attempt < m.cfg.Retry.MaxAttempts {
			if sleepErr := m.sleep(ctx, m.cfg.Retry.Delay); sleepErr != nil {
				return nil, fmt.Errorf("pgsess: connect %s: %w", target, sleepErr)
			}
		}
	}
	if sess == nil {
		return nil, &ConnExhaustedError{Target: target, Attempts: m.cfg.Retry.MaxAttempts}
	}

	entries := make([]guc.Entry, len(m.cfg.Settings))
	for i, s := range m.cfg.Settings {
		entries[i] = guc.Entry(s)
	}
	sanitized := guc.Sanitize(entries, m.logger)
	settings := make([]Setting, len(sanitized))
	for i, e := range sanitized {
		settings[i] = Setting(e)
	}
	if err := ApplyGUCs(ctx, sess, settings, ScopeSession); err != nil {
		m.logger.Error().Err(err).Str("target", target).Msg("applying session settings failed")
		_ = sess.Close(ctx)
		return nil, fmt.Errorf("pgsess: configure session for %s: %w", target, err)
	}
	return sess, nil
}

// Close releases the session. Passing a nil session is a programming
// error and panics. Close is not idempotent — callers track session
// state and pair every Open with exactly one Close.
func (m *Manager) Close(ctx context.Context, sess Session) error {
	if sess == nil {
		panic("pgsess: Close called with nil session")
	}
	return sess.Close(ctx)
}

func (m *Manager) connConfig(user string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(m.connString(user))
	if err != nil {
		return nil, fmt.Errorf("pgsess: invalid connection parameters for %s: %w", m.target(), err)
	}
	cfg.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
		m.logger.Warn().
			Str("severity", n.Severity).
			Str("code", n.Code).
			Str("target", m.cfg.Table).
			Msg(n.Message)
	}
	return cfg, nil
}

func (m *Manager) connString(user string) string {
	c := m.cfg
	parts := []string{
		"host=" + dsnValue(resolveHost(c.Host)),
		fmt.Sprintf("port=%d", c.Port),
		"dbname=" + dsnValue(c.Database),
	}
	if user != "" {
		parts = append(parts, "user="+dsnValue(user))
	}
	if c.Password != "" {
		parts = append(parts, "password="+dsnValue(c.Password))
	}
	parts = append(parts, "sslmode="+c.SSLMode.libpq())
	if c.SSLMode.enabled() {
		if material, ok := sslcert.Resolve(c.SSLCertPath, c.SSLKeyPath); ok {
			parts = append(parts,
				"sslcert="+dsnValue(material.CertFile),
				"sslkey="+dsnValue(material.KeyFile))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Manager) target() string {
	if strings.HasPrefix(m.cfg.Host, "/") {
		return m.cfg.Host + "/" + m.cfg.Database
	}
	return fmt.Sprintf("%s:%d/%s", m.cfg.Host, m.cfg.Port, m.cfg.Database)
}

// resolveHost maps a unix-socket file path to the socket directory the
// transport expects. A host naming the socket file itself yields its
// directory; a directory path or network address passes through
// unchanged.
func resolveHost(host string) string {
	if !strings.HasPrefix(host, "/") {
		return host
	}
	if strings.HasPrefix(filepath.Base(host), ".s.PGSQL") {
		return filepath.Dir(host)
	}
	return host
}

// dsnValue quotes a keyword/value connection-string value when it
// contains characters the conninfo grammar treats specially.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func isResourceExhausted(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeTooManyConnections || pgErr.Code == codeConfigurationLimit
}

func dialPgx(ctx context.Context, cfg *pgx.ConnConfig) (Session, error) {
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &pgxSession{conn: conn}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
