package eventdata

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/testutil"
	"github.com/fanify/hype-flow/pkg/chain"
	"github.com/fanify/hype-flow/pkg/types"
)

type fakeChain struct {
	mu sync.Mutex

	oddsA, oddsB *big.Int
	hypeA, hypeB *big.Int
	match        *chain.MatchData
	err          error
	calls        int
}

func (f *fakeChain) Odds(_ context.Context, _ [32]byte) (*big.Int, *big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.oddsA, f.oddsB, f.err
}

func (f *fakeChain) Hype(_ context.Context, _ [32]byte) (*big.Int, *big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.hypeA, f.hypeB, f.err
}

func (f *fakeChain) Match(_ context.Context, _ [32]byte) (*chain.MatchData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.match, nil
}

func (f *fakeChain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newFakeChain() *fakeChain {
	odds18, _ := new(big.Int).SetString("1800000000000000000", 10)
	odds21, _ := new(big.Int).SetString("2100000000000000000", 10)
	return &fakeChain{
		oddsA: odds18,
		oddsB: odds21,
		hypeA: big.NewInt(6250),
		hypeB: big.NewInt(3750),
		match: &chain.MatchData{GoalsA: big.NewInt(2), GoalsB: big.NewInt(0), Status: 1},
	}
}

func TestOddsReader_Read(t *testing.T) {
	fc := newFakeChain()
	reader, err := NewOddsReader(fc, 18, zap.NewNop())
	require.NoError(t, err)

	odds := reader.Read(context.Background(), testutil.EventE1)
	require.NotNil(t, odds)
	assert.True(t, odds.SideA.Equal(testutil.Dec("1.8")))
	assert.True(t, odds.SideB.Equal(testutil.Dec("2.1")))

	m, ok := odds.Multiplier(types.SideB)
	assert.True(t, ok)
	assert.True(t, m.Equal(testutil.Dec("2.1")))

	_, ok = odds.Multiplier(types.SideNone)
	assert.False(t, ok)
}

func TestReaders_AbsentOnFailure(t *testing.T) {
	fc := newFakeChain()
	fc.err = errors.New("execution reverted")

	odds, _ := NewOddsReader(fc, 18, zap.NewNop())
	hype, _ := NewHypeReader(fc, zap.NewNop())
	match, _ := NewMatchInfoReader(fc, zap.NewNop())

	assert.Nil(t, odds.Read(context.Background(), testutil.EventE1))
	assert.Nil(t, hype.Read(context.Background(), testutil.EventE1))
	assert.Nil(t, match.Read(context.Background(), testutil.EventE1))
}

func TestReaders_MissingEventIDSkipsNetwork(t *testing.T) {
	fc := newFakeChain()
	odds, _ := NewOddsReader(fc, 18, zap.NewNop())
	hype, _ := NewHypeReader(fc, zap.NewNop())

	assert.Nil(t, odds.Read(context.Background(), ""))
	assert.Nil(t, hype.Read(context.Background(), "not-an-id"))
	assert.Equal(t, 0, fc.callCount())
}

func TestHypeReader_Percentages(t *testing.T) {
	reader, _ := NewHypeReader(newFakeChain(), zap.NewNop())

	hype := reader.Read(context.Background(), testutil.EventE1)
	require.NotNil(t, hype)
	assert.True(t, hype.SideA.Equal(testutil.Dec("62.5")))
	assert.True(t, hype.SideB.Equal(testutil.Dec("37.5")))
}

func TestMatchInfoReader_Read(t *testing.T) {
	fc := newFakeChain()
	reader, _ := NewMatchInfoReader(fc, zap.NewNop())

	info := reader.Read(context.Background(), testutil.EventE1)
	require.NotNil(t, info)
	assert.Equal(t, uint64(2), info.GoalsA)
	assert.Equal(t, uint64(0), info.GoalsB)
	assert.True(t, info.Started())

	fc.match = &chain.MatchData{GoalsA: big.NewInt(0), GoalsB: big.NewInt(0), Status: MatchStatusNotStarted}
	info = reader.Read(context.Background(), testutil.EventE1)
	require.NotNil(t, info)
	assert.False(t, info.Started())

	var none *MatchInfo
	assert.False(t, none.Started())
}

// Reads carry a fresh ReadAt; everything else repeats while the chain
// state does not change.
func TestReaders_RepeatedReadsAgree(t *testing.T) {
	fc := newFakeChain()
	oddsReader, _ := NewOddsReader(fc, 18, zap.NewNop())
	hypeReader, _ := NewHypeReader(fc, zap.NewNop())
	matchReader, _ := NewMatchInfoReader(fc, zap.NewNop())
	ctx := context.Background()

	odds1 := oddsReader.Read(ctx, testutil.EventE1)
	odds2 := oddsReader.Read(ctx, testutil.EventE1)
	require.NotNil(t, odds1)
	require.NotNil(t, odds2)
	assert.Equal(t, odds1.EventID, odds2.EventID)
	assert.True(t, odds1.SideA.Equal(odds2.SideA))
	assert.True(t, odds1.SideB.Equal(odds2.SideB))

	hype1 := hypeReader.Read(ctx, testutil.EventE1)
	hype2 := hypeReader.Read(ctx, testutil.EventE1)
	require.NotNil(t, hype1)
	require.NotNil(t, hype2)
	assert.True(t, hype1.SideA.Equal(hype2.SideA))
	assert.True(t, hype1.SideB.Equal(hype2.SideB))

	match1 := matchReader.Read(ctx, testutil.EventE1)
	match2 := matchReader.Read(ctx, testutil.EventE1)
	require.NotNil(t, match1)
	require.NotNil(t, match2)
	match2.ReadAt = match1.ReadAt
	assert.Equal(t, *match1, *match2)
}

func TestNewReaders_Validation(t *testing.T) {
	_, err := NewOddsReader(nil, 18, zap.NewNop())
	assert.Error(t, err)
	_, err = NewHypeReader(newFakeChain(), nil)
	assert.Error(t, err)
	_, err = NewMatchInfoReader(nil, nil)
	assert.Error(t, err)
}
