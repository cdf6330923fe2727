package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fanify/hype-flow/pkg/types"
)

// ErrNotFound is returned when no record matches a hash.
var ErrNotFound = errors.New("transaction not found")

// Details carries action-specific context shown next to a transaction.
type Details struct {
	EventID string `json:"eventId,omitempty"`
	Side    string `json:"side,omitempty"`
	Team    string `json:"team,omitempty"`
	Odds    string `json:"odds,omitempty"`
	Bonus   string `json:"bonus,omitempty"`
}

// Record is one submitted transaction.
type Record struct {
	ID        string         `json:"id"`
	Hash      string         `json:"hash"`
	Type      types.TxType   `json:"type"`
	Status    types.TxStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Value     string         `json:"value"`
	Token     string         `json:"token"`
	Details   Details        `json:"details"`
}

// NewRecord creates a pending record with a fresh id.
func NewRecord(txType types.TxType, hash string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		Hash:      hash,
		Type:      txType,
		Status:    types.TxStatusPending,
		Timestamp: time.Now().UTC(),
	}
}

// Filter selects records. Zero values match everything.
type Filter struct {
	Type   types.TxType
	Search string
	Limit  int
}

// Matches reports whether r passes the filter. Search is case-insensitive
// over hash, token, team and event id.
func (f Filter) Matches(r *Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}

	if f.Search == "" {
		return true
	}

	q := strings.ToLower(f.Search)
	for _, field := range []string{r.Hash, r.Token, r.Details.Team, r.Details.EventID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Store persists transaction history.
type Store interface {
	// Record stores a new transaction.
	Record(ctx context.Context, rec *Record) error

	// UpdateStatus moves the transaction with hash to status.
	UpdateStatus(ctx context.Context, hash string, status types.TxStatus) error

	// List returns matching records, newest first.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Close releases resources.
	Close() error
}
