package allowance

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanify/hype-flow/internal/testutil"
)

func TestStore_CurrentUnknownIsZero(t *testing.T) {
	store := NewStore()
	assert.True(t, store.Current(testKey()).IsZero())

	_, ok := store.Get(testKey())
	assert.False(t, ok)
}

func TestStore_SubscribeReceivesUpdates(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	store.Set(Snapshot{Key: testKey(), Amount: testutil.Dec("5"), UpdatedAt: time.Now()})

	select {
	case snap := <-ch:
		assert.True(t, snap.Amount.Equal(testutil.Dec("5")))
	case <-time.After(time.Second):
		t.Fatal("expected update")
	}
}

func TestStore_SlowSubscriberKeepsNewest(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	for i := int64(1); i <= 100; i++ {
		store.Set(Snapshot{Key: testKey(), Amount: decimal.NewFromInt(i)})
	}

	newest := decimal.NewFromInt(100)
	last := decimal.Zero
	timeout := time.After(time.Second)
	for !last.Equal(newest) {
		select {
		case snap := <-ch:
			require.True(t, snap.Amount.GreaterThan(last), "updates arrive in order")
			last = snap.Amount
		case <-timeout:
			t.Fatalf("newest update not delivered, last %s", last)
		}
	}
}

func TestStore_BurstOnOtherKeysKeepsEveryKey(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	defer cancel()

	watched := testKey()
	store.Set(Snapshot{Key: watched, Amount: decimal.NewFromInt(7)})
	for i := int64(1); i <= 50; i++ {
		other := Key{Owner: watched.Owner, Spender: watched.Spender, Token: common.BigToAddress(big.NewInt(i))}
		store.Set(Snapshot{Key: other, Amount: decimal.NewFromInt(i)})
	}

	got := make(map[Key]decimal.Decimal)
	timeout := time.After(time.Second)
	for len(got) < 51 {
		select {
		case snap := <-ch:
			got[snap.Key] = snap.Amount
		case <-timeout:
			t.Fatalf("received %d of 51 keys", len(got))
		}
	}

	require.Contains(t, got, watched)
	assert.True(t, got[watched].Equal(decimal.NewFromInt(7)))
}

func TestStore_CancelClosesChannel(t *testing.T) {
	store := NewStore()
	ch, cancel := store.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// no panic when setting after cancel
	store.Set(Snapshot{Key: testKey(), Amount: decimal.NewFromInt(1)})
}
