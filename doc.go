// Package pgsess is the connection and session-management layer an ETL
// loader uses to talk to a target PostgreSQL database before any bulk
// transfer starts.
//
// It owns four things: opening an authenticated (optionally TLS
// client-certificate) connection with bounded retry against transient
// resource exhaustion, configuring session-level settings (GUCs)
// deterministically, running units of work inside transactions with
// uniform diagnostic capture, and executing statements while reporting
// timing and row/error counters to a stats sink. Server metadata
// discovery (the reserved-keyword set) is included with a static
// fallback for servers that lack pg_get_keywords().
//
// # Usage
//
//	mgr := pgsess.NewManager(pgsess.ConnConfig{
//		User:     "loader",
//		Password: password,
//		Host:     "db.internal",
//		Port:     5432,
//		Database: "warehouse",
//		SSLMode:  pgsess.SSLTry,
//		Table:    "public.orders",
//	}, logger)
//
//	sess, err := mgr.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer mgr.Close(ctx, sess)
//
//	err = mgr.WithTransaction(ctx, sess, func(ctx context.Context, tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "TRUNCATE public.orders")
//		return err
//	})
//
// The layer is strictly synchronous: one Manager and one Session per
// worker, no sharing across goroutines. Callers needing parallel loads
// run independent Managers, each built from a Clone() of the same
// ConnConfig.
//
// # Logging
//
// All components take a zerolog.Logger at construction. Statements are
// logged at trace level (field "sql"), server notices at warn, execution
// failures at error. Notices never abort anything — they are logged and
// suppressed at the lowest layer that sees them.
//
// For full documentation and configuration reference, see:
// https://github.com/rickchristie/pgsess
package pgsess
