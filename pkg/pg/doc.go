// Package pg provides the PostgreSQL bootstrap layer for subskit: pooled
// connectivity via pgx/v5, schema migrations via goose/v3, a health check
// closure and error classification helpers.
//
// The API surface is intentionally small. Config is populated from
// environment variables (see field tags), Connect opens a *pgxpool.Pool with
// linear-backoff retries, and Migrate brings the schema up to date before the
// processor starts a pass.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError unwrap
// *pgconn.PgError values so stores can classify failures without importing
// driver internals.
package pg
