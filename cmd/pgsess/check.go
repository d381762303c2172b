package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/rickchristie/pgsess"
)

// checkConfig is the optional JSON config file for the check command.
// Flags override file values.
type checkConfig struct {
	Host        string           `json:"host"`
	Port        int              `json:"port"`
	DBName      string           `json:"dbname"`
	User        string           `json:"user"`
	SSLMode     string           `json:"sslmode"`
	Table       string           `json:"table"`
	Settings    []pgsess.Setting `json:"settings"`
	RetryMax    int              `json:"retry_max_attempts"`
	RetryDelay  string           `json:"retry_delay"`
	LogLevel    string           `json:"log_level"`
	SSLCertPath string           `json:"sslcert"`
	SSLKeyPath  string           `json:"sslkey"`
}

func runCheck() error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to JSON configuration file")
	host := fs.String("host", "", "Database host or unix-socket path")
	port := fs.Int("port", 0, "Database port")
	dbname := fs.String("dbname", "", "Database name")
	user := fs.String("user", "", "Database user")
	sslmode := fs.String("sslmode", "", "SSL mode: disable, try, require")
	table := fs.String("table", "", "Target table (log context only)")
	logLevel := fs.String("log-level", "", "Log level: trace, debug, info, warn, error")
	fs.Parse(os.Args[2:])

	cfg, err := loadCheckConfig(*configPath, checkConfig{
		Host:     *host,
		Port:     *port,
		DBName:   *dbname,
		User:     *user,
		SSLMode:  *sslmode,
		Table:    *table,
		LogLevel: *logLevel,
	})
	if err != nil {
		return err
	}

	retry, err := buildRetry(cfg)
	if err != nil {
		return err
	}

	password := os.Getenv("PGSESS_PASSWORD")
	if password == "" && isTTY(os.Stdin.Fd()) {
		password = promptPassword("Password: ")
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	return runProbe(cfg, retry, password, logger)
}

func runProbe(cfg checkConfig, retry pgsess.RetryConfig, password string, logger zerolog.Logger) error {
	mgr := pgsess.NewManager(pgsess.ConnConfig{
		User:        cfg.User,
		Password:    password,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Database:    cfg.DBName,
		SSLMode:     pgsess.SSLMode(cfg.SSLMode),
		Table:       cfg.Table,
		SSLCertPath: cfg.SSLCertPath,
		SSLKeyPath:  cfg.SSLKeyPath,
		Settings:    cfg.Settings,
		Retry:       retry,
	}, logger)

	return check(context.Background(), os.Stderr, mgr)
}

// loadCheckConfig loads the optional JSON config file and lays
// non-empty flag values over it. Flags win; a zero port flag keeps the
// file (or default) port.
func loadCheckConfig(configPath string, flags checkConfig) (checkConfig, error) {
	cfg := checkConfig{Port: 5432, SSLMode: "try", LogLevel: "info"}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}
	applyFlag(&cfg.Host, flags.Host)
	applyFlag(&cfg.DBName, flags.DBName)
	applyFlag(&cfg.User, flags.User)
	applyFlag(&cfg.SSLMode, flags.SSLMode)
	applyFlag(&cfg.Table, flags.Table)
	applyFlag(&cfg.LogLevel, flags.LogLevel)
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}

	if cfg.Host == "" || cfg.DBName == "" {
		return cfg, fmt.Errorf("host and dbname are required (flags or config file)")
	}
	return cfg, nil
}

// buildRetry maps the config file's retry fields onto the library
// defaults.
func buildRetry(cfg checkConfig) (pgsess.RetryConfig, error) {
	retry := pgsess.DefaultRetry()
	if cfg.RetryMax > 0 {
		retry.MaxAttempts = cfg.RetryMax
	}
	if cfg.RetryDelay != "" {
		d, err := time.ParseDuration(cfg.RetryDelay)
		if err != nil {
			return retry, fmt.Errorf("invalid retry_delay %q: %w", cfg.RetryDelay, err)
		}
		retry.Delay = d
	}
	return retry, nil
}

func check(ctx context.Context, w io.Writer, mgr *pgsess.Manager) error {
	sess, err := mgr.Open(ctx)
	if err != nil {
		printCheck(w, false, fmt.Sprintf("Connection established: %v", err))
		return err
	}
	defer mgr.Close(ctx, sess)
	printCheck(w, true, "Connection established (session settings applied)")

	var version string
	rows, err := sess.Query(ctx, "show server_version")
	if err == nil {
		if rows.Next() {
			_ = rows.Scan(&version)
		}
		rows.Close()
		err = rows.Err()
	}
	if err != nil {
		printCheck(w, false, fmt.Sprintf("Server version readable: %v", err))
	} else {
		printCheck(w, true, fmt.Sprintf("Server version readable (%s)", version))
	}

	keywords, err := pgsess.FetchReservedKeywords(ctx, sess)
	if err != nil {
		printCheck(w, false, fmt.Sprintf("Reserved keywords discoverable: %v", err))
	} else {
		printCheck(w, true, fmt.Sprintf("Reserved keywords discoverable (%d words)", len(keywords)))
	}

	err = mgr.WithTransaction(ctx, sess, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "select 1")
		return err
	})
	if err != nil {
		printCheck(w, false, fmt.Sprintf("Transaction round-trip: %v", err))
		return err
	}
	printCheck(w, true, "Transaction round-trip (BEGIN/COMMIT)")
	return nil
}

func setupLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}

func printCheck(w io.Writer, ok bool, msg string) {
	mark := "✗"
	if ok {
		mark = "✓"
	}
	fmt.Fprintf(w, "  %s %s\n", mark, msg)
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(pw)
}

func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

func applyFlag(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
