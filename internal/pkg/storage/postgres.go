package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/lottosage/lottosage/internal/pkg/models"
)

// DrawArchive stores fetched draw records in PostgreSQL so history
// survives cache churn. Archiving is optional; the pipeline runs
// without it when no DSN is configured.
type DrawArchive struct {
	db *sql.DB
}

func NewDrawArchive(dsn string) (*DrawArchive, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	archive := &DrawArchive{db: db}
	if err := archive.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize draw archive schema: %w", err)
	}

	slog.Info("postgres draw archive initialized")
	return archive, nil
}

func (a *DrawArchive) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS draw_records (
		id SERIAL PRIMARY KEY,
		game_type VARCHAR(10) NOT NULL,
		period VARCHAR(20) NOT NULL,
		draw_date VARCHAR(20) NOT NULL DEFAULT '',
		primary_numbers INTEGER[] NOT NULL,
		secondary_numbers INTEGER[] NOT NULL,
		sale_amount BIGINT NOT NULL DEFAULT 0,
		pool_amount BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(game_type, period)
	);

	CREATE INDEX IF NOT EXISTS idx_draw_records_game_period ON draw_records(game_type, period DESC);
	`
	_, err := a.db.ExecContext(ctx, query)
	return err
}

// ArchiveDraws upserts records by (game, period). Re-archiving the
// same draw refreshes its amounts, which the detail-page backfill
// relies on.
func (a *DrawArchive) ArchiveDraws(ctx context.Context, records []models.DrawRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO draw_records (game_type, period, draw_date, primary_numbers, secondary_numbers, sale_amount, pool_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_type, period) DO UPDATE SET
			draw_date = EXCLUDED.draw_date,
			primary_numbers = EXCLUDED.primary_numbers,
			secondary_numbers = EXCLUDED.secondary_numbers,
			sale_amount = EXCLUDED.sale_amount,
			pool_amount = EXCLUDED.pool_amount
	`)
	if err != nil {
		return fmt.Errorf("prepare archive statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			string(rec.GameType),
			rec.Period,
			rec.Date,
			pq.Array(rec.PrimaryNumbers),
			pq.Array(rec.SecondaryNumbers),
			rec.SaleAmount,
			rec.PoolAmount,
		)
		if err != nil {
			return fmt.Errorf("archive %s draw %s: %w", rec.GameType, rec.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	slog.Info("draws archived", "count", len(records))
	return nil
}

// LatestArchived returns the newest archived period for a game, or ""
// when nothing is stored yet.
func (a *DrawArchive) LatestArchived(ctx context.Context, game models.GameType) (string, error) {
	var period string
	err := a.db.QueryRowContext(ctx,
		`SELECT period FROM draw_records WHERE game_type = $1 ORDER BY period DESC LIMIT 1`,
		string(game),
	).Scan(&period)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest archived %s period: %w", game, err)
	}
	return period, nil
}

func (a *DrawArchive) Close() error {
	return a.db.Close()
}
