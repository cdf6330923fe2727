package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	tx_hash      TEXT NOT NULL UNIQUE,
	tx_type      TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	from_address TEXT NOT NULL,
	to_address   TEXT NOT NULL,
	value        TEXT NOT NULL,
	token        TEXT NOT NULL,
	event_id     TEXT NOT NULL DEFAULT '',
	side         TEXT NOT NULL DEFAULT '',
	team         TEXT NOT NULL DEFAULT '',
	odds         TEXT NOT NULL DEFAULT '',
	bonus        TEXT NOT NULL DEFAULT ''
)`

// defaultListLimit caps unbounded history queries.
const defaultListLimit = 100

type recordRow struct {
	ID        string    `db:"id"`
	Hash      string    `db:"tx_hash"`
	Type      string    `db:"tx_type"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	From      string    `db:"from_address"`
	To        string    `db:"to_address"`
	Value     string    `db:"value"`
	Token     string    `db:"token"`
	EventID   string    `db:"event_id"`
	Side      string    `db:"side"`
	Team      string    `db:"team"`
	Odds      string    `db:"odds"`
	Bonus     string    `db:"bonus"`
}

func (r recordRow) toRecord() *Record {
	return &Record{
		ID:        r.ID,
		Hash:      r.Hash,
		Type:      types.TxType(r.Type),
		Status:    types.TxStatus(r.Status),
		Timestamp: r.CreatedAt,
		From:      r.From,
		To:        r.To,
		Value:     r.Value,
		Token:     r.Token,
		Details: Details{
			EventID: r.EventID,
			Side:    r.Side,
			Team:    r.Team,
			Odds:    r.Odds,
			Bonus:   r.Bonus,
		},
	}
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	DSN    string
	Logger *zap.Logger
}

// NewPostgresStore connects, verifies the connection and ensures the schema.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	if cfg == nil || cfg.Logger == nil {
		return nil, errors.New("config and logger are required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := NewPostgresStoreFromDB(db, cfg.Logger)

	err = store.EnsureSchema(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-history-connected")
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing connection.
func NewPostgresStoreFromDB(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the transactions table if missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record inserts a transaction.
func (p *PostgresStore) Record(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO transactions (
			id, tx_hash, tx_type, status, created_at,
			from_address, to_address, value, token,
			event_id, side, team, odds, bonus
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.Hash,
		string(rec.Type),
		string(rec.Status),
		rec.Timestamp,
		rec.From,
		rec.To,
		rec.Value,
		rec.Token,
		rec.Details.EventID,
		rec.Details.Side,
		rec.Details.Team,
		rec.Details.Odds,
		rec.Details.Bonus,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	RecordsTotal.WithLabelValues(string(rec.Type)).Inc()
	p.logger.Debug("transaction-recorded",
		zap.String("tx-hash", rec.Hash),
		zap.String("type", string(rec.Type)))

	return nil
}

// UpdateStatus changes the status of the transaction with hash.
func (p *PostgresStore) UpdateStatus(ctx context.Context, hash string, status types.TxStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE tx_hash = $2`,
		string(status), hash)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	StatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	return nil
}

// List returns matching transactions, newest first.
func (p *PostgresStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("tx_type = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(tx_hash ILIKE $%d OR token ILIKE $%d OR team ILIKE $%d OR event_id ILIKE $%d)", n, n, n, n))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := `SELECT id, tx_hash, tx_type, status, created_at, from_address, to_address,
		value, token, event_id, side, team, odds, bonus FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var rows []recordRow
	err := p.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}

	out := make([]*Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// Ping checks the database connection.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-history")
	return p.db.Close()
}
