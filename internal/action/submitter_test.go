package action

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/internal/testutil"
	"github.com/fanify/hype-flow/pkg/types"
)

type betCall struct {
	eventID [32]byte
	teamA   bool
	amount  *big.Int
}

type fakeWriter struct {
	err      error
	bets     []betCall
	stakes   []*big.Int
	unstakes []*big.Int
}

func (f *fakeWriter) PlaceBet(_ context.Context, eventID [32]byte, teamA bool, amount *big.Int) (common.Hash, error) {
	f.bets = append(f.bets, betCall{eventID: eventID, teamA: teamA, amount: amount})
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0xbe7"), nil
}

func (f *fakeWriter) Stake(_ context.Context, value *big.Int) (common.Hash, error) {
	f.stakes = append(f.stakes, value)
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0x57a"), nil
}

func (f *fakeWriter) Unstake(_ context.Context, amount *big.Int) (common.Hash, error) {
	f.unstakes = append(f.unstakes, amount)
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0x0a57"), nil
}

type fakeBalances struct {
	native *big.Int
	token  *big.Int
	err    error
	tokens []common.Address
}

func (f *fakeBalances) NativeBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return f.native, f.err
}

func (f *fakeBalances) TokenBalance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	f.tokens = append(f.tokens, token)
	return f.token, f.err
}

func newTestSubmitter(t *testing.T, w Writer, b BalanceReader) (*Submitter, history.Store) {
	t.Helper()

	store := history.NewMemoryStore(zap.NewNop())
	recorder, err := history.NewRecorder(&history.RecorderConfig{Store: store, Logger: zap.NewNop()})
	require.NoError(t, err)

	cfg := &Config{
		Writer:    w,
		HypeToken: testutil.HypeTokenAddress,
		Betting:   testutil.BettingAddress,
		Recorder:  recorder,
		Decimals:  18,
		Logger:    zap.NewNop(),
	}
	if b != nil {
		cfg.Balances = b
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s, store
}

func testEvent() types.Event {
	return types.Event{ID: testutil.EventE1, SideA: "PSG", SideB: "Barcelona"}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Logger: zap.NewNop()})
	assert.EqualError(t, err, "writer cannot be nil")

	_, err = New(&Config{Writer: &fakeWriter{}})
	assert.EqualError(t, err, "logger cannot be nil")
}

func TestPlaceBet_Success(t *testing.T) {
	w := &fakeWriter{}
	s, store := newTestSubmitter(t, w, nil)

	res := s.PlaceBet(context.Background(), BetRequest{
		Account: testutil.UserAddress,
		Event:   testEvent(),
		Side:    types.SideB,
		Amount:  testutil.Dec("50"),
		Odds:    testutil.Dec("2.5"),
	})

	require.True(t, res.Success)
	assert.Equal(t, common.HexToHash("0xbe7"), res.TxHash)

	require.Len(t, w.bets, 1)
	wantID, err := types.ParseEventID(testutil.EventE1)
	require.NoError(t, err)
	assert.Equal(t, wantID, w.bets[0].eventID)
	assert.False(t, w.bets[0].teamA)
	assert.Equal(t, testutil.Units(50), w.bets[0].amount)

	recs, err := store.List(context.Background(), history.Filter{Type: types.TxTypeBet})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Barcelona", recs[0].Details.Team)
	assert.Equal(t, "B", recs[0].Details.Side)
	assert.Equal(t, "2.5", recs[0].Details.Odds)
	assert.Equal(t, types.TxStatusPending, recs[0].Status)
}

func TestPlaceBet_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  BetRequest
	}{
		{
			name: "no-account",
			req:  BetRequest{Event: testEvent(), Side: types.SideA, Amount: testutil.Dec("1")},
		},
		{
			name: "zero-amount",
			req:  BetRequest{Account: testutil.UserAddress, Event: testEvent(), Side: types.SideA, Amount: decimal.Zero},
		},
		{
			name: "no-side",
			req:  BetRequest{Account: testutil.UserAddress, Event: testEvent(), Amount: testutil.Dec("1")},
		},
		{
			name: "bad-event-id",
			req: BetRequest{
				Account: testutil.UserAddress,
				Event:   types.Event{ID: "match-1"},
				Side:    types.SideA,
				Amount:  testutil.Dec("1"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			s, _ := newTestSubmitter(t, w, nil)

			res := s.PlaceBet(context.Background(), tt.req)
			assert.False(t, res.Success)
			assert.Equal(t, types.ErrorKindValidation, res.Kind)
			assert.NotEmpty(t, res.Message)
			assert.Empty(t, w.bets)
		})
	}
}

func TestSubmit_FailureMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		submit      func(s *Submitter) types.TransactionResult
		wantKind    types.ErrorKind
		wantMessage string
	}{
		{
			name: "bet-user-rejected",
			err:  errors.New("User rejected the request."),
			submit: func(s *Submitter) types.TransactionResult {
				return s.PlaceBet(context.Background(), BetRequest{
					Account: testutil.UserAddress, Event: testEvent(), Side: types.SideA, Amount: testutil.Dec("5"),
				})
			},
			wantKind:    types.ErrorKindUserRejected,
			wantMessage: "Transaction rejected by user.",
		},
		{
			name: "bet-generic",
			err:  errors.New("execution reverted: betting closed"),
			submit: func(s *Submitter) types.TransactionResult {
				return s.PlaceBet(context.Background(), BetRequest{
					Account: testutil.UserAddress, Event: testEvent(), Side: types.SideA, Amount: testutil.Dec("5"),
				})
			},
			wantKind:    types.ErrorKindGeneric,
			wantMessage: betFallback,
		},
		{
			name: "stake-insufficient-funds",
			err:  errors.New("insufficient funds for gas * price + value"),
			submit: func(s *Submitter) types.TransactionResult {
				return s.Stake(context.Background(), testutil.UserAddress, testutil.Dec("1"), "CHZ", decimal.Zero)
			},
			wantKind:    types.ErrorKindInsufficientFunds,
			wantMessage: "Insufficient funds for this transaction.",
		},
		{
			name: "unstake-network",
			err:  errors.New("dial tcp: connection refused"),
			submit: func(s *Submitter) types.TransactionResult {
				return s.Unstake(context.Background(), testutil.UserAddress, testutil.Dec("1"))
			},
			wantKind:    types.ErrorKindNetwork,
			wantMessage: "Network error. Please check your connection.",
		},
		{
			name: "unstake-generic",
			err:  errors.New("boom"),
			submit: func(s *Submitter) types.TransactionResult {
				return s.Unstake(context.Background(), testutil.UserAddress, testutil.Dec("1"))
			},
			wantKind:    types.ErrorKindGeneric,
			wantMessage: unstakeFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{err: tt.err}
			s, store := newTestSubmitter(t, w, nil)

			res := tt.submit(s)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, tt.wantMessage, res.Message)
			assert.ErrorIs(t, res.Err, tt.err)

			// One attempt only.
			assert.Equal(t, 1, len(w.bets)+len(w.stakes)+len(w.unstakes))

			recs, err := store.List(context.Background(), history.Filter{})
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestStake_BalanceCheck(t *testing.T) {
	tests := []struct {
		name      string
		balances  *fakeBalances
		wantOK    bool
		wantWrite bool
	}{
		{
			name:      "enough",
			balances:  &fakeBalances{native: testutil.Units(2)},
			wantOK:    true,
			wantWrite: true,
		},
		{
			name:      "short",
			balances:  &fakeBalances{native: big.NewInt(1)},
			wantOK:    false,
			wantWrite: false,
		},
		{
			name:      "read-failure-skips-check",
			balances:  &fakeBalances{err: errors.New("rpc down")},
			wantOK:    true,
			wantWrite: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			s, _ := newTestSubmitter(t, w, tt.balances)

			res := s.Stake(context.Background(), testutil.UserAddress, testutil.Dec("1"), "CHZ", decimal.Zero)
			assert.Equal(t, tt.wantOK, res.Success)
			assert.Equal(t, tt.wantWrite, len(w.stakes) == 1)
			if !tt.wantOK {
				assert.Equal(t, types.ErrorKindValidation, res.Kind)
				assert.Equal(t, insufficientBalance, res.Message)
			}
		})
	}
}

func TestStake_SendsValue(t *testing.T) {
	w := &fakeWriter{}
	s, store := newTestSubmitter(t, w, nil)

	res := s.Stake(context.Background(), testutil.UserAddress, testutil.Dec("1.5"), "PSG", testutil.Dec("0.5"))
	require.True(t, res.Success)

	require.Len(t, w.stakes, 1)
	want := new(big.Int).Div(testutil.Units(3), big.NewInt(2))
	assert.Equal(t, want, w.stakes[0])

	recs, err := store.List(context.Background(), history.Filter{Type: types.TxTypeStake})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "PSG", recs[0].Token)
	assert.Equal(t, "0.5", recs[0].Details.Bonus)
}

func TestUnstake_ChecksHypeBalance(t *testing.T) {
	w := &fakeWriter{}
	b := &fakeBalances{token: testutil.Units(10)}
	s, _ := newTestSubmitter(t, w, b)

	res := s.Unstake(context.Background(), testutil.UserAddress, testutil.Dec("20"))
	assert.False(t, res.Success)
	assert.Equal(t, insufficientBalance, res.Message)
	assert.Empty(t, w.unstakes)
	require.Len(t, b.tokens, 1)
	assert.Equal(t, testutil.HypeTokenAddress, b.tokens[0])

	res = s.Unstake(context.Background(), testutil.UserAddress, testutil.Dec("10"))
	require.True(t, res.Success)
	require.Len(t, w.unstakes, 1)
	assert.Equal(t, testutil.Units(10), w.unstakes[0])
}
