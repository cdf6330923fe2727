package eventdata

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/chain"
	"github.com/fanify/hype-flow/pkg/types"
)

// hypeScale converts raw oracle hype values to percentages.
const hypeScale = 100

// MatchStatusNotStarted is the oracle status of a match that has not kicked off.
const MatchStatusNotStarted uint8 = 0

// ChainReader is the subset of the chain client the readers use.
type ChainReader interface {
	Odds(ctx context.Context, eventID [32]byte) (*big.Int, *big.Int, error)
	Hype(ctx context.Context, eventID [32]byte) (*big.Int, *big.Int, error)
	Match(ctx context.Context, eventID [32]byte) (*chain.MatchData, error)
}

// Odds are payout multipliers per side.
type Odds struct {
	EventID string          `json:"eventId"`
	SideA   decimal.Decimal `json:"sideA"`
	SideB   decimal.Decimal `json:"sideB"`
	ReadAt  time.Time       `json:"readAt"`
}

// Multiplier returns the odds for side.
func (o *Odds) Multiplier(side types.Side) (decimal.Decimal, bool) {
	if o == nil {
		return decimal.Zero, false
	}
	switch side {
	case types.SideA:
		return o.SideA, true
	case types.SideB:
		return o.SideB, true
	default:
		return decimal.Zero, false
	}
}

// Hype holds fan-sentiment percentages per side.
type Hype struct {
	EventID string          `json:"eventId"`
	SideA   decimal.Decimal `json:"sideA"`
	SideB   decimal.Decimal `json:"sideB"`
	ReadAt  time.Time       `json:"readAt"`
}

// MatchInfo holds live status and score.
type MatchInfo struct {
	EventID string    `json:"eventId"`
	Status  uint8     `json:"status"`
	GoalsA  uint64    `json:"goalsA"`
	GoalsB  uint64    `json:"goalsB"`
	ReadAt  time.Time `json:"readAt"`
}

// Started reports whether the match has kicked off.
func (m *MatchInfo) Started() bool {
	return m != nil && m.Status != MatchStatusNotStarted
}

// OddsReader reads odds. Failures resolve to nil; there are no retries.
type OddsReader struct {
	chain    ChainReader
	decimals int32
	logger   *zap.Logger
}

// HypeReader reads hype percentages.
type HypeReader struct {
	chain  ChainReader
	logger *zap.Logger
}

// MatchInfoReader reads match status and score.
type MatchInfoReader struct {
	chain  ChainReader
	logger *zap.Logger
}

// NewOddsReader creates an odds reader.
func NewOddsReader(reader ChainReader, decimals int32, logger *zap.Logger) (*OddsReader, error) {
	if reader == nil || logger == nil {
		return nil, errors.New("reader and logger are required")
	}
	return &OddsReader{chain: reader, decimals: decimals, logger: logger}, nil
}

// NewHypeReader creates a hype reader.
func NewHypeReader(reader ChainReader, logger *zap.Logger) (*HypeReader, error) {
	if reader == nil || logger == nil {
		return nil, errors.New("reader and logger are required")
	}
	return &HypeReader{chain: reader, logger: logger}, nil
}

// NewMatchInfoReader creates a match info reader.
func NewMatchInfoReader(reader ChainReader, logger *zap.Logger) (*MatchInfoReader, error) {
	if reader == nil || logger == nil {
		return nil, errors.New("reader and logger are required")
	}
	return &MatchInfoReader{chain: reader, logger: logger}, nil
}

// Read returns the odds for eventID, or nil if unavailable.
func (r *OddsReader) Read(ctx context.Context, eventID string) *Odds {
	id, ok := parseID(eventID, r.logger)
	if !ok {
		return nil
	}

	a, b, err := r.chain.Odds(ctx, id)
	if err != nil {
		readFailed(r.logger, "odds", eventID, err)
		return nil
	}

	ReadsTotal.WithLabelValues("odds", "success").Inc()
	return &Odds{
		EventID: eventID,
		SideA:   types.FromUnits(a, r.decimals),
		SideB:   types.FromUnits(b, r.decimals),
		ReadAt:  time.Now(),
	}
}

// Read returns the hype percentages for eventID, or nil if unavailable.
func (r *HypeReader) Read(ctx context.Context, eventID string) *Hype {
	id, ok := parseID(eventID, r.logger)
	if !ok {
		return nil
	}

	a, b, err := r.chain.Hype(ctx, id)
	if err != nil {
		readFailed(r.logger, "hype", eventID, err)
		return nil
	}

	ReadsTotal.WithLabelValues("hype", "success").Inc()
	return &Hype{
		EventID: eventID,
		SideA:   toPercent(a),
		SideB:   toPercent(b),
		ReadAt:  time.Now(),
	}
}

// Read returns the match info for eventID, or nil if unavailable.
func (r *MatchInfoReader) Read(ctx context.Context, eventID string) *MatchInfo {
	id, ok := parseID(eventID, r.logger)
	if !ok {
		return nil
	}

	data, err := r.chain.Match(ctx, id)
	if err != nil {
		readFailed(r.logger, "match", eventID, err)
		return nil
	}

	ReadsTotal.WithLabelValues("match", "success").Inc()
	return &MatchInfo{
		EventID: eventID,
		Status:  data.Status,
		GoalsA:  uint64OrZero(data.GoalsA),
		GoalsB:  uint64OrZero(data.GoalsB),
		ReadAt:  time.Now(),
	}
}

func parseID(eventID string, logger *zap.Logger) ([32]byte, bool) {
	if eventID == "" {
		return [32]byte{}, false
	}
	id, err := types.ParseEventID(eventID)
	if err != nil {
		logger.Debug("event-id-invalid", zap.String("event-id", eventID), zap.Error(err))
		return [32]byte{}, false
	}
	return id, true
}

func readFailed(logger *zap.Logger, kind string, eventID string, err error) {
	ReadsTotal.WithLabelValues(kind, "error").Inc()
	logger.Debug("event-read-failed",
		zap.String("kind", kind),
		zap.String("event-id", eventID),
		zap.Error(err))
}

func toPercent(raw *big.Int) decimal.Decimal {
	if raw == nil || raw.Sign() < 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0).Div(decimal.NewFromInt(hypeScale))
}

func uint64OrZero(v *big.Int) uint64 {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}
