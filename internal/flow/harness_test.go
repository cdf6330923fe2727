package flow

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/action"
	"github.com/fanify/hype-flow/internal/allowance"
	"github.com/fanify/hype-flow/internal/approval"
	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/internal/testutil"
	"github.com/fanify/hype-flow/pkg/types"
)

// fakeChain holds allowances per token and applies approvals after lag
// further reads.
type fakeChain struct {
	mu         sync.Mutex
	allowances map[common.Address]*big.Int
	pending    map[common.Address]*big.Int
	lag        int
	approveErr error
	approved   []*big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		allowances: make(map[common.Address]*big.Int),
		pending:    make(map[common.Address]*big.Int),
	}
}

func (f *fakeChain) setAllowance(token common.Address, whole int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowances[token] = testutil.Units(whole)
}

func (f *fakeChain) setLag(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lag = n
}

func (f *fakeChain) Allowance(_ context.Context, token, _, _ common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.pending[token]; ok {
		if f.lag > 0 {
			f.lag--
		} else {
			f.allowances[token] = p
			delete(f.pending, token)
		}
	}

	if v, ok := f.allowances[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) Approve(_ context.Context, token, _ common.Address, amount *big.Int) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.approved = append(f.approved, amount)
	if f.approveErr != nil {
		return common.Hash{}, f.approveErr
	}
	f.pending[token] = amount
	return common.HexToHash("0xa9"), nil
}

func (f *fakeChain) approvals() []*big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*big.Int(nil), f.approved...)
}

type stakeCall struct {
	account common.Address
	amount  decimal.Decimal
	token   string
	bonus   decimal.Decimal
}

type fakeSubmitter struct {
	mu     sync.Mutex
	res    types.TransactionResult
	block  chan struct{}
	bets   []action.BetRequest
	stakes []stakeCall
}

func (f *fakeSubmitter) result() types.TransactionResult {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res
}

func (f *fakeSubmitter) PlaceBet(_ context.Context, req action.BetRequest) types.TransactionResult {
	f.mu.Lock()
	f.bets = append(f.bets, req)
	f.mu.Unlock()
	return f.result()
}

func (f *fakeSubmitter) Stake(
	_ context.Context,
	account common.Address,
	amount decimal.Decimal,
	token string,
	bonus decimal.Decimal,
) types.TransactionResult {
	f.mu.Lock()
	f.stakes = append(f.stakes, stakeCall{account: account, amount: amount, token: token, bonus: bonus})
	f.mu.Unlock()
	return f.result()
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bets) + len(f.stakes)
}

type fakeOdds struct {
	odds *eventdata.Odds
}

func (f *fakeOdds) Odds(_ context.Context, eventID string) *eventdata.Odds {
	if f.odds == nil || f.odds.EventID != eventID {
		return nil
	}
	return f.odds
}

type fakeGuard struct {
	enabled bool
}

func (f *fakeGuard) IsEnabled() bool {
	return f.enabled
}

type harness struct {
	chain       *fakeChain
	tracker     *allowance.Tracker
	coordinator *approval.Coordinator
	submitter   *fakeSubmitter
	machine     *Machine
}

type harnessOption func(*Config)

func withGuard(g Guard) harnessOption {
	return func(cfg *Config) { cfg.Guard = g }
}

func withApprover(a Approver) harnessOption {
	return func(cfg *Config) { cfg.Approver = a }
}

func testEvent(id string) types.Event {
	return types.Event{ID: id, SideA: "PSG", SideB: "Barcelona"}
}

func newHarness(t *testing.T, kind Kind, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		chain:     newFakeChain(),
		submitter: &fakeSubmitter{res: types.Succeeded(types.TxTypeBet, common.HexToHash("0x5b"))},
	}

	tracker, err := allowance.New(&allowance.Config{
		Reader:       h.chain,
		Decimals:     18,
		PollInterval: time.Hour,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	h.tracker = tracker

	coordinator, err := approval.New(&approval.Config{
		Writer:       h.chain,
		Allowance:    tracker,
		Decimals:     18,
		InitialDelay: time.Millisecond,
		RetryDelay:   time.Millisecond,
		MaxRetries:   2,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	h.coordinator = coordinator

	cfg := &Config{
		Kind:      kind,
		Allowance: tracker,
		Approver:  coordinator,
		Submitter: h.submitter,
		Logger:    zap.NewNop(),
	}

	if kind == KindBet {
		cfg.Spender = testutil.BettingAddress
		cfg.Options = BetOptions(testutil.HypeTokenAddress)
		cfg.Odds = &fakeOdds{odds: &eventdata.Odds{
			EventID: testutil.EventE1,
			SideA:   testutil.Dec("2.5"),
			SideB:   testutil.Dec("1.5"),
		}}
	} else {
		cfg.Spender = testutil.HypeTokenAddress
		cfg.Options = StakeOptions(StakeRates{
			Chz:           decimal.NewFromInt(1000),
			FanToken:      decimal.NewFromInt(1800),
			FanTokenBonus: testutil.Dec("0.5"),
		}, []FanToken{{Symbol: "psg", Address: testutil.FanTokenAddress}})
	}

	for _, opt := range opts {
		opt(cfg)
	}

	m, err := New(cfg)
	require.NoError(t, err)
	h.machine = m

	t.Cleanup(func() {
		m.Close()
		coordinator.Close()
	})

	m.BindEvent(testEvent(testutil.EventE1))
	m.BindAccount(testutil.UserAddress)
	return h
}

// run starts the machine's allowance subscription for the test's lifetime.
func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.machine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// toAmount drives the machine from select to amount with input.
func (h *harness) toAmount(t *testing.T, option, input string) {
	t.Helper()
	require.NoError(t, h.machine.Select(option))
	require.NoError(t, h.machine.SetAmount(input))
}

func waitFor(t *testing.T, m *Machine, cond func(View) bool) View {
	t.Helper()
	require.Eventually(t, func() bool { return cond(m.View()) }, 2*time.Second, time.Millisecond)
	return m.View()
}
