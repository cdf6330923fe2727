package allowance

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Key scopes an allowance to one owner, spender and token.
type Key struct {
	Owner   common.Address
	Spender common.Address
	Token   common.Address
}

// Snapshot is the latest successfully read allowance for a key.
type Snapshot struct {
	Key       Key
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// Store holds the shared allowance snapshots and fans updates out to
// subscribers. Only the tracker writes to it.
type Store struct {
	mu     sync.RWMutex
	values map[Key]Snapshot
	subs   map[uint64]*subscriber
	nextID uint64
}

// subscriber coalesces undelivered snapshots per key: a slow reader skips
// intermediate values of a key but never loses the newest one of any key.
type subscriber struct {
	out  chan Snapshot
	wake chan struct{}
	done chan struct{}

	mu      sync.Mutex
	pending map[Key]Snapshot
	order   []Key
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{
		values: make(map[Key]Snapshot),
		subs:   make(map[uint64]*subscriber),
	}
}

// Set records a snapshot and notifies subscribers.
func (s *Store) Set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[snap.Key] = snap

	for _, sub := range s.subs {
		sub.offer(snap)
	}
}

// Get returns the snapshot for key, if one was ever recorded.
func (s *Store) Get(key Key) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.values[key]
	return snap, ok
}

// Current returns the amount for key, zero if unknown.
func (s *Store) Current(key Key) decimal.Decimal {
	snap, ok := s.Get(key)
	if !ok {
		return decimal.Zero
	}
	return snap.Amount
}

// Subscribe returns a channel of snapshot updates and a cancel func. The
// channel is closed after cancel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	sub := &subscriber{
		out:     make(chan Snapshot),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[Key]Snapshot),
	}
	s.subs[id] = sub
	go sub.run()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(sub.done)
		})
	}

	return sub.out, cancel
}

func (sub *subscriber) offer(snap Snapshot) {
	sub.mu.Lock()
	if _, ok := sub.pending[snap.Key]; !ok {
		sub.order = append(sub.order, snap.Key)
	}
	sub.pending[snap.Key] = snap
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) next() (Snapshot, bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if len(sub.order) == 0 {
		return Snapshot{}, false
	}
	key := sub.order[0]
	sub.order = sub.order[1:]
	snap := sub.pending[key]
	delete(sub.pending, key)
	return snap, true
}

// run delivers pending snapshots in first-update order until cancelled.
func (sub *subscriber) run() {
	defer close(sub.out)

	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		for {
			snap, ok := sub.next()
			if !ok {
				break
			}
			select {
			case sub.out <- snap:
			case <-sub.done:
				return
			}
		}
	}
}
