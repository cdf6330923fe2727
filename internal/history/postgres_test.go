package history

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewPostgresStoreFromDB(sqlx.NewDb(db, "postgres"), zap.NewNop())
	t.Cleanup(func() { _ = db.Close() })
	return store, mock
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := newMockStore(t)

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		ID:        "id-1",
		Hash:      "0xabc",
		Type:      types.TxTypeBet,
		Status:    types.TxStatusPending,
		Timestamp: ts,
		From:      "0xfrom",
		To:        "0xto",
		Value:     "100",
		Token:     "HYPE",
		Details:   Details{EventID: "0xe1", Side: "A", Team: "PSG", Odds: "1.8"},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs("id-1", "0xabc", "bet", "pending", ts, "0xfrom", "0xto", "100", "HYPE", "0xe1", "A", "PSG", "1.8", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Record(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnError(errors.New("duplicate key"))

	err := store.Record(context.Background(), NewRecord(types.TxTypeStake, "0x1"))
	assert.ErrorContains(t, err, "insert transaction")
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET status = $1 WHERE tx_hash = $2")).
		WithArgs("confirmed", "0xabc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET status = $1 WHERE tx_hash = $2")).
		WithArgs("failed", "0xmissing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.UpdateStatus(context.Background(), "0xabc", types.TxStatusConfirmed))
	assert.ErrorIs(t, store.UpdateStatus(context.Background(), "0xmissing", types.TxStatusFailed), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "tx_hash", "tx_type", "status", "created_at", "from_address", "to_address",
		"value", "token", "event_id", "side", "team", "odds", "bonus"}
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE tx_type = $1 AND (tx_hash ILIKE $2")).
		WithArgs("bet", "%psg%", 100).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("id-1", "0xabc", "bet", "confirmed", ts, "0xfrom", "0xto", "100", "HYPE", "0xe1", "A", "PSG", "1.8", ""))

	got, err := store.List(context.Background(), Filter{Type: types.TxTypeBet, Search: "psg"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xabc", got[0].Hash)
	assert.Equal(t, types.TxStatusConfirmed, got[0].Status)
	assert.Equal(t, "PSG", got[0].Details.Team)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListNoFilter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := store.List(context.Background(), Filter{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS transactions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreFromDB(sqlx.NewDb(db, "postgres"), zap.NewNop())

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, store.Ping(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}
