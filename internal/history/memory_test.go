package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

func seedRecords(t *testing.T, store Store) {
	t.Helper()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	recs := []*Record{
		{Hash: "0xaaa1", Type: types.TxTypeApprove, Token: "HYPE", Timestamp: base},
		{Hash: "0xbbb2", Type: types.TxTypeBet, Token: "HYPE", Timestamp: base.Add(time.Minute),
			Details: Details{Team: "PSG", EventID: "0xe1", Side: "A", Odds: "1.8"}},
		{Hash: "0xccc3", Type: types.TxTypeStake, Token: "CHZ", Timestamp: base.Add(2 * time.Minute)},
		{Hash: "0xddd4", Type: types.TxTypeBet, Token: "HYPE", Timestamp: base.Add(3 * time.Minute),
			Details: Details{Team: "Barcelona", EventID: "0xe2", Side: "B"}},
	}
	for _, r := range recs {
		r.Status = types.TxStatusPending
		require.NoError(t, store.Record(context.Background(), r))
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	seedRecords(t, store)

	got, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "0xddd4", got[0].Hash)
	assert.Equal(t, "0xaaa1", got[3].Hash)
}

func TestMemoryStore_Filter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "by-type", filter: Filter{Type: types.TxTypeBet}, want: []string{"0xddd4", "0xbbb2"}},
		{name: "search-team", filter: Filter{Search: "psg"}, want: []string{"0xbbb2"}},
		{name: "search-token", filter: Filter{Search: "chz"}, want: []string{"0xccc3"}},
		{name: "search-hash", filter: Filter{Search: "AAA"}, want: []string{"0xaaa1"}},
		{name: "type-and-search", filter: Filter{Type: types.TxTypeStake, Search: "psg"}, want: []string{}},
		{name: "limit", filter: Filter{Limit: 1}, want: []string{"0xddd4"}},
	}

	store := NewMemoryStore(zap.NewNop())
	seedRecords(t, store)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(context.Background(), tt.filter)
			require.NoError(t, err)

			hashes := make([]string, 0, len(got))
			for _, r := range got {
				hashes = append(hashes, r.Hash)
			}
			assert.Equal(t, tt.want, hashes)
		})
	}
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	seedRecords(t, store)

	require.NoError(t, store.UpdateStatus(context.Background(), "0xccc3", types.TxStatusConfirmed))
	assert.ErrorIs(t, store.UpdateStatus(context.Background(), "0xnope", types.TxStatusFailed), ErrNotFound)

	got, err := store.List(context.Background(), Filter{Type: types.TxTypeStake})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.TxStatusConfirmed, got[0].Status)
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	seedRecords(t, store)

	got, _ := store.List(context.Background(), Filter{Limit: 1})
	got[0].Status = types.TxStatusFailed

	again, _ := store.List(context.Background(), Filter{Limit: 1})
	assert.Equal(t, types.TxStatusPending, again[0].Status)
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(types.TxTypeUnstake, "0x01")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, types.TxStatusPending, rec.Status)
	assert.Equal(t, types.TxTypeUnstake, rec.Type)
	assert.False(t, rec.Timestamp.IsZero())
}
