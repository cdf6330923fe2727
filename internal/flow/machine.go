package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/action"
	"github.com/fanify/hype-flow/internal/allowance"
	"github.com/fanify/hype-flow/internal/approval"
	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/pkg/types"
)

var zeroAddress common.Address

// AllowanceSource reads and watches allowances.
type AllowanceSource interface {
	Get(ctx context.Context, key allowance.Key) decimal.Decimal
	Current(key allowance.Key) decimal.Decimal
	Subscribe() (<-chan allowance.Snapshot, func())
	Watch(key allowance.Key)
	Unwatch(key allowance.Key)
	Kick()
}

// Approver submits approvals.
type Approver interface {
	Approve(ctx context.Context, req approval.Request) (types.TransactionResult, <-chan approval.Verification)
}

// Submitter submits the final action.
type Submitter interface {
	PlaceBet(ctx context.Context, req action.BetRequest) types.TransactionResult
	Stake(ctx context.Context, account common.Address, amount decimal.Decimal, token string, bonus decimal.Decimal) types.TransactionResult
}

// OddsSource returns the latest odds for an event, or nil.
type OddsSource interface {
	Odds(ctx context.Context, eventID string) *eventdata.Odds
}

// Guard reports whether writes are allowed.
type Guard interface {
	IsEnabled() bool
}

// Config holds machine configuration.
type Config struct {
	Kind      Kind
	Spender   common.Address
	Options   []Option
	Allowance AllowanceSource
	Approver  Approver
	Submitter Submitter
	Odds      OddsSource // optional, bet quotes only
	Guard     Guard      // optional
	Logger    *zap.Logger
}

// Machine sequences select, amount, approve and confirm for one
// (account, event) pair. Chain calls run outside the lock; their results
// are dropped if the flow was reset meanwhile.
type Machine struct {
	kind      Kind
	spender   common.Address
	options   []Option
	allowance AllowanceSource
	approver  Approver
	submitter Submitter
	oddsSrc   OddsSource
	guard     Guard
	logger    *zap.Logger

	mu             sync.Mutex
	epoch          uint64
	account        common.Address
	event          types.Event
	gameStarted    bool
	step           Step
	selection      string
	amountInput    string
	amount         decimal.Decimal
	approveAmount  decimal.Decimal
	allowanceValue decimal.Decimal
	odds           *eventdata.Odds
	loadingApprove bool
	loadingAction  bool
	errMsg         string
	success        string
	notice         string
	lastTxHash     string
	watched        *allowance.Key

	subs   map[int]chan View
	nextID int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new flow machine in the select step.
func New(cfg *Config) (m *Machine, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Kind != KindBet && cfg.Kind != KindStake {
		return nil, fmt.Errorf("unknown flow kind %q", cfg.Kind)
	}

	if len(cfg.Options) == 0 {
		return nil, errors.New("at least one option is required")
	}

	if cfg.Allowance == nil || cfg.Approver == nil || cfg.Submitter == nil {
		return nil, errors.New("allowance, approver and submitter are required")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	m = &Machine{
		kind:      cfg.Kind,
		spender:   cfg.Spender,
		options:   cfg.Options,
		allowance: cfg.Allowance,
		approver:  cfg.Approver,
		submitter: cfg.Submitter,
		oddsSrc:   cfg.Odds,
		guard:     cfg.Guard,
		logger:    cfg.Logger.With(zap.String("flow", string(cfg.Kind))),
		step:      StepSelect,
		subs:      make(map[int]chan View),
		ctx:       ctx,
		cancel:    cancel,
	}

	return m, nil
}

// Kind returns the flow kind.
func (m *Machine) Kind() Kind {
	return m.kind
}

// View returns a snapshot of the flow state.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Subscribe streams views after every change, starting with the current
// one. Slow readers only see the newest view.
func (m *Machine) Subscribe() (<-chan View, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan View, 1)
	ch <- m.viewLocked()
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// BindEvent binds the flow to ev and returns the previously bound event id.
// A different event id resets the flow.
func (m *Machine) BindEvent(ev types.Event) (previous string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous = m.event.ID
	if ev.ID == previous {
		m.event = ev
		m.changedLocked()
		return previous
	}

	m.resetLocked("event")
	m.event = ev
	m.odds = nil
	m.gameStarted = false
	m.updateWatchLocked()
	m.logger.Info("flow-event-bound", zap.String("event-id", ev.ID))
	m.changedLocked()
	return previous
}

// BindAccount binds the connected wallet. A different account resets the flow.
func (m *Machine) BindAccount(account common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account == m.account {
		return
	}

	m.resetLocked("account")
	m.account = account
	m.allowanceValue = decimal.Zero
	m.updateWatchLocked()
	m.logger.Info("flow-account-bound", zap.String("account", account.Hex()))
	m.changedLocked()
}

// SetGameStarted sets the external closed-for-betting flag. It only gates
// bet flows.
func (m *Machine) SetGameStarted(started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if started == m.gameStarted {
		return
	}

	m.gameStarted = started
	if m.kind == KindBet && started {
		m.resetLocked("game-started")
		m.logger.Info("flow-betting-closed", zap.String("event-id", m.event.ID))
	}
	m.changedLocked()
}

// Select picks an option and moves to the amount step.
func (m *Machine) Select(optionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed() {
		return ErrBettingClosed
	}

	if m.step != StepSelect {
		return fmt.Errorf("%w: select in %s", ErrInvalidStep, m.step)
	}

	opt := m.option(optionID)
	if opt == nil {
		return fmt.Errorf("%w: %q", ErrUnknownOption, optionID)
	}

	m.selection = opt.ID
	m.clearMessagesLocked()
	m.updateWatchLocked()
	if key, ok := m.allowanceKeyLocked(); ok {
		m.allowanceValue = m.allowance.Current(key)
	}
	m.setStepLocked(StepAmount)
	m.changedLocked()
	return nil
}

// SetAmount stores the entered amount. Invalid input is kept so the UI can
// show it, but disables Continue.
func (m *Machine) SetAmount(input string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed() {
		return ErrBettingClosed
	}

	if m.step != StepAmount {
		return fmt.Errorf("%w: set amount in %s", ErrInvalidStep, m.step)
	}

	m.amountInput = input
	amount, err := types.ParseAmount(input)
	if err != nil {
		amount = decimal.Zero
	}
	m.amount = amount
	m.errMsg = ""
	m.changedLocked()
	return nil
}

// Continue leaves the amount step: to confirm when the allowance covers the
// amount, to approve otherwise.
func (m *Machine) Continue(ctx context.Context) error {
	m.mu.Lock()
	if m.closed() {
		m.mu.Unlock()
		return ErrBettingClosed
	}
	if m.step != StepAmount {
		step := m.step
		m.mu.Unlock()
		return fmt.Errorf("%w: continue in %s", ErrInvalidStep, step)
	}
	if !m.amount.IsPositive() {
		m.mu.Unlock()
		return ErrInvalidAmount
	}
	if m.account == zeroAddress {
		m.mu.Unlock()
		return ErrNoAccount
	}

	epoch := m.epoch
	amount := m.amount
	eventID := m.event.ID
	key, needsRead := m.allowanceKeyLocked()
	m.errMsg = ""
	m.mu.Unlock()

	current := decimal.Zero
	if needsRead {
		current = m.allowance.Get(ctx, key)
	}

	var odds *eventdata.Odds
	if m.kind == KindBet && m.oddsSrc != nil {
		odds = m.oddsSrc.Odds(ctx, eventID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch || m.step != StepAmount || !m.amount.Equal(amount) {
		m.discardLocked("continue")
		return nil
	}

	if odds != nil {
		m.odds = odds
	}

	if !needsRead {
		m.setStepLocked(StepConfirm)
		m.changedLocked()
		return nil
	}

	m.allowanceValue = current
	if current.GreaterThanOrEqual(amount) {
		m.setStepLocked(StepConfirm)
	} else {
		m.approveAmount = amount
		m.setStepLocked(StepApprove)
	}
	m.changedLocked()
	return nil
}

// Back moves one step back: amount to select, approve and confirm to amount.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed() {
		return ErrBettingClosed
	}

	if m.loadingApprove || m.loadingAction {
		return ErrBusy
	}

	switch m.step {
	case StepAmount:
		m.selection = ""
		m.amountInput = ""
		m.amount = decimal.Zero
		m.updateWatchLocked()
		m.setStepLocked(StepSelect)
	case StepApprove, StepConfirm:
		m.approveAmount = decimal.Zero
		m.setStepLocked(StepAmount)
	default:
		return fmt.Errorf("%w: back in %s", ErrInvalidStep, m.step)
	}

	m.clearMessagesLocked()
	m.changedLocked()
	return nil
}

// Approve requests an allowance of exactly the approve amount. The flow
// advances to confirm once the allowance becomes visible, either from the
// coordinator's verification or from the allowance subscription.
func (m *Machine) Approve(ctx context.Context) (types.TransactionResult, error) {
	m.mu.Lock()
	if err := m.checkWriteLocked(StepApprove, m.loadingApprove); err != nil {
		m.mu.Unlock()
		return types.TransactionResult{}, err
	}

	if res, blocked := m.guardLocked(types.TxTypeApprove); blocked {
		m.mu.Unlock()
		return res, nil
	}

	opt := m.selected()
	req := approval.Request{
		Account: m.account,
		Spender: m.spender,
		Token:   opt.Token,
		Amount:  m.approveAmount,
	}
	epoch := m.epoch
	m.loadingApprove = true
	m.clearMessagesLocked()
	m.changedLocked()
	m.mu.Unlock()

	res, verified := m.approver.Approve(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.discardLocked("approve")
		return res, nil
	}

	m.loadingApprove = false
	if !res.Success {
		m.errMsg = res.Message
		m.changedLocked()
		return res, nil
	}

	m.lastTxHash = res.TxHash.Hex()
	m.success = messageApprovalSent
	// Close cancels under m.mu, so no Add can follow its Wait.
	if verified != nil && m.ctx.Err() == nil {
		m.wg.Add(1)
		go m.awaitVerification(epoch, verified)
	}
	m.changedLocked()
	return res, nil
}

// Submit places the bet or stake. Success resets the flow; failure keeps
// the confirm step so the user can retry.
func (m *Machine) Submit(ctx context.Context) (types.TransactionResult, error) {
	m.mu.Lock()
	if err := m.checkWriteLocked(StepConfirm, m.loadingAction); err != nil {
		m.mu.Unlock()
		return types.TransactionResult{}, err
	}

	txType := types.TxTypeBet
	if m.kind == KindStake {
		txType = types.TxTypeStake
	}

	if res, blocked := m.guardLocked(txType); blocked {
		m.mu.Unlock()
		return res, nil
	}

	opt := *m.selected()
	account := m.account
	amount := m.amount
	event := m.event
	multiplier, _ := m.odds.Multiplier(opt.Side)
	epoch := m.epoch
	m.loadingAction = true
	m.clearMessagesLocked()
	m.changedLocked()
	m.mu.Unlock()

	var res types.TransactionResult
	if m.kind == KindBet {
		res = m.submitter.PlaceBet(ctx, action.BetRequest{
			Account: account,
			Event:   event,
			Side:    opt.Side,
			Amount:  amount,
			Odds:    multiplier,
		})
	} else {
		res = m.submitter.Stake(ctx, account, amount, opt.ID, opt.Bonus)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.discardLocked("submit")
		return res, nil
	}

	m.loadingAction = false
	if !res.Success {
		m.errMsg = res.Message
		m.changedLocked()
		return res, nil
	}

	m.resetLocked("submitted")
	m.updateWatchLocked()
	m.lastTxHash = res.TxHash.Hex()
	m.success = messageBetPlaced
	if m.kind == KindStake {
		m.success = messageStaked
	}
	m.allowance.Kick()
	m.changedLocked()
	return res, nil
}

// OnAllowance applies a snapshot from the shared store. In the approve
// step a sufficient allowance advances the flow to confirm.
func (m *Machine) OnAllowance(snap allowance.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.allowanceKeyLocked()
	if !ok || snap.Key != key {
		return
	}

	m.applyAllowanceLocked(snap.Amount)
	m.changedLocked()
}

// Run follows allowance changes until ctx is cancelled (blocking).
func (m *Machine) Run(ctx context.Context) (err error) {
	snaps, cancel := m.allowance.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			m.OnAllowance(snap)
		}
	}
}

// Close stops outstanding verification waits and releases the watched key.
func (m *Machine) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watched != nil {
		m.allowance.Unwatch(*m.watched)
		m.watched = nil
	}
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Machine) awaitVerification(epoch uint64, verified <-chan approval.Verification) {
	defer m.wg.Done()

	var v approval.Verification
	var ok bool
	select {
	case <-m.ctx.Done():
		return
	case v, ok = <-verified:
	}
	if !ok || v.Err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.discardLocked("verify")
		return
	}

	if v.Confirmed {
		m.applyAllowanceLocked(v.Allowance)
	} else if m.step == StepApprove {
		m.notice = NoticeApprovalPending
		m.success = ""
		m.logger.Warn("flow-approval-unconfirmed", zap.Int("attempts", v.Attempts))
	}
	m.changedLocked()
}

func (m *Machine) applyAllowanceLocked(amount decimal.Decimal) {
	m.allowanceValue = amount
	if m.step != StepApprove || amount.LessThan(m.amount) {
		return
	}

	m.notice = ""
	m.success = messageApproved
	m.approveAmount = decimal.Zero
	m.setStepLocked(StepConfirm)
}

func (m *Machine) checkWriteLocked(step Step, busy bool) error {
	if m.ctx.Err() != nil {
		return ErrClosed
	}
	if m.closed() {
		return ErrBettingClosed
	}
	if m.step != step {
		return fmt.Errorf("%w: expected %s, in %s", ErrInvalidStep, step, m.step)
	}
	if busy {
		return ErrBusy
	}
	if m.account == zeroAddress {
		return ErrNoAccount
	}
	return nil
}

func (m *Machine) guardLocked(txType types.TxType) (types.TransactionResult, bool) {
	if m.guard == nil || m.guard.IsEnabled() {
		return types.TransactionResult{}, false
	}

	res := types.Failed(txType, types.ErrorKindInsufficientFunds, messageGasGuard, ErrGasGuard)
	m.errMsg = res.Message
	m.changedLocked()
	return res, true
}

func (m *Machine) resetLocked(reason string) {
	m.epoch++
	m.setStepLocked(StepSelect)
	m.selection = ""
	m.amountInput = ""
	m.amount = decimal.Zero
	m.approveAmount = decimal.Zero
	m.loadingApprove = false
	m.loadingAction = false
	m.clearMessagesLocked()
	ResetsTotal.WithLabelValues(string(m.kind), reason).Inc()
}

func (m *Machine) clearMessagesLocked() {
	m.errMsg = ""
	m.success = ""
	m.notice = ""
}

func (m *Machine) setStepLocked(to Step) {
	if m.step == to {
		return
	}
	TransitionsTotal.WithLabelValues(string(m.kind), string(m.step), string(to)).Inc()
	m.logger.Debug("flow-step",
		zap.String("from", string(m.step)),
		zap.String("to", string(to)))
	m.step = to
}

func (m *Machine) discardLocked(op string) {
	DiscardedResultsTotal.WithLabelValues(string(m.kind), op).Inc()
	m.logger.Debug("flow-stale-result-discarded", zap.String("op", op))
}

// allowanceKeyLocked returns the key gating the current option. Bet flows
// always gate on HYPE, so they have a key before a side is picked.
func (m *Machine) allowanceKeyLocked() (allowance.Key, bool) {
	opt := m.selected()
	if opt == nil && m.kind == KindBet {
		opt = &m.options[0]
	}
	if opt == nil || opt.Native || m.account == zeroAddress {
		return allowance.Key{}, false
	}
	return allowance.Key{Owner: m.account, Spender: m.spender, Token: opt.Token}, true
}

func (m *Machine) updateWatchLocked() {
	key, ok := m.allowanceKeyLocked()
	if m.watched != nil && (!ok || *m.watched != key) {
		m.allowance.Unwatch(*m.watched)
		m.watched = nil
	}
	if ok && m.watched == nil {
		m.allowance.Watch(key)
		m.watched = &key
		m.allowanceValue = m.allowance.Current(key)
	}
}

func (m *Machine) changedLocked() {
	v := m.viewLocked()
	for _, ch := range m.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (m *Machine) closed() bool {
	return m.kind == KindBet && m.gameStarted
}

func (m *Machine) canContinue() bool {
	return !m.closed() && m.step == StepAmount && m.amount.IsPositive()
}

func (m *Machine) selected() *Option {
	if m.selection == "" {
		return nil
	}
	return m.option(m.selection)
}

func (m *Machine) option(id string) *Option {
	for i := range m.options {
		if strings.EqualFold(m.options[i].ID, id) {
			return &m.options[i]
		}
	}
	return nil
}
