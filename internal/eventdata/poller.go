package eventdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/cache"
)

// PollerConfig holds poller configuration.
type PollerConfig struct {
	Odds     *OddsReader
	Hype     *HypeReader
	Match    *MatchInfoReader
	Cache    cache.Cache
	Interval time.Duration
	Logger   *zap.Logger
	// OnMatch is called after every successful match read.
	OnMatch func(*MatchInfo)
}

// Poller re-reads odds, hype and match info for every watched event and
// keeps the latest snapshots in the cache.
type Poller struct {
	odds     *OddsReader
	hype     *HypeReader
	match    *MatchInfoReader
	cache    cache.Cache
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger
	onMatch  func(*MatchInfo)

	mu     sync.Mutex
	events map[string]int // watchers per event id
	kick   chan struct{}
}

// NewPoller creates a new event data poller.
func NewPoller(cfg *PollerConfig) (p *Poller, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Odds == nil || cfg.Hype == nil || cfg.Match == nil {
		return nil, errors.New("odds, hype and match readers are required")
	}

	if cfg.Cache == nil {
		return nil, errors.New("cache cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	p = &Poller{
		odds:     cfg.Odds,
		hype:     cfg.Hype,
		match:    cfg.Match,
		cache:    cfg.Cache,
		interval: cfg.Interval,
		ttl:      3 * cfg.Interval,
		logger:   cfg.Logger,
		onMatch:  cfg.OnMatch,
		events:   make(map[string]int),
		kick:     make(chan struct{}, 1),
	}

	return p, nil
}

// Watch adds an event to the poll set and triggers an immediate read.
// Every Watch must be paired with an Unwatch; an event stays polled while
// any watcher remains.
func (p *Poller) Watch(eventID string) {
	if eventID == "" {
		return
	}

	p.mu.Lock()
	p.events[eventID]++
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Unwatch releases one Watch of eventID. The event leaves the poll set
// with its last watcher.
func (p *Poller) Unwatch(eventID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.events[eventID] <= 1 {
		delete(p.events, eventID)
		return
	}
	p.events[eventID]--
}

// Run polls until ctx is cancelled (blocking).
func (p *Poller) Run(ctx context.Context) (err error) {
	p.logger.Info("event-poller-starting", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event-poller-stopping")
			return ctx.Err()
		case <-ticker.C:
			p.pollAll(ctx)
		case <-p.kick:
			p.pollAll(ctx)
		}
	}
}

// Odds returns the cached odds for eventID, reading through on a miss.
func (p *Poller) Odds(ctx context.Context, eventID string) *Odds {
	if v, ok := p.cache.Get(cache.KindOdds, eventID); ok {
		if odds, ok := v.(*Odds); ok {
			return odds
		}
	}
	odds := p.odds.Read(ctx, eventID)
	if odds != nil {
		p.cache.Set(cache.KindOdds, eventID, odds, p.ttl)
	}
	return odds
}

// Hype returns the cached hype for eventID, reading through on a miss.
func (p *Poller) Hype(ctx context.Context, eventID string) *Hype {
	if v, ok := p.cache.Get(cache.KindHype, eventID); ok {
		if hype, ok := v.(*Hype); ok {
			return hype
		}
	}
	hype := p.hype.Read(ctx, eventID)
	if hype != nil {
		p.cache.Set(cache.KindHype, eventID, hype, p.ttl)
	}
	return hype
}

// Match returns the cached match info for eventID, reading through on a miss.
func (p *Poller) Match(ctx context.Context, eventID string) *MatchInfo {
	if v, ok := p.cache.Get(cache.KindMatch, eventID); ok {
		if info, ok := v.(*MatchInfo); ok {
			return info
		}
	}
	info := p.match.Read(ctx, eventID)
	if info != nil {
		p.cache.Set(cache.KindMatch, eventID, info, p.ttl)
	}
	return info
}

func (p *Poller) pollAll(ctx context.Context) {
	p.mu.Lock()
	events := make([]string, 0, len(p.events))
	for id := range p.events {
		events = append(events, id)
	}
	p.mu.Unlock()

	if len(events) == 0 {
		return
	}

	start := time.Now()
	defer func() {
		PollDuration.Observe(time.Since(start).Seconds())
	}()

	for _, id := range events {
		p.pollEvent(ctx, id)
	}
}

// pollEvent refreshes all three snapshots. A failed read leaves the
// previous snapshot to expire on its own.
func (p *Poller) pollEvent(ctx context.Context, eventID string) {
	if odds := p.odds.Read(ctx, eventID); odds != nil {
		p.cache.Set(cache.KindOdds, eventID, odds, p.ttl)
	}

	if hype := p.hype.Read(ctx, eventID); hype != nil {
		p.cache.Set(cache.KindHype, eventID, hype, p.ttl)
	}

	info := p.match.Read(ctx, eventID)
	if info == nil {
		return
	}
	p.cache.Set(cache.KindMatch, eventID, info, p.ttl)

	if info.Started() {
		MatchStarted.Set(1)
	} else {
		MatchStarted.Set(0)
	}

	if p.onMatch != nil {
		p.onMatch(info)
	}
}
