package flow

import (
	"github.com/shopspring/decimal"
)

// View is the flow state exposed to the UI layer.
type View struct {
	Kind           Kind            `json:"kind"`
	Step           Step            `json:"step"`
	EventID        string          `json:"eventId,omitempty"`
	Account        string          `json:"account,omitempty"`
	Selection      string          `json:"selection,omitempty"`
	SelectionLabel string          `json:"selectionLabel,omitempty"`
	Amount         string          `json:"amount"`
	ApproveAmount  string          `json:"approveAmount,omitempty"`
	Allowance      decimal.Decimal `json:"allowance"`
	LoadingApprove bool            `json:"loadingApprove"`
	LoadingAction  bool            `json:"loadingAction"`
	Error          string          `json:"error,omitempty"`
	Success        string          `json:"success,omitempty"`
	Notice         string          `json:"notice,omitempty"`
	Closed         bool            `json:"closed"`
	CanContinue    bool            `json:"canContinue"`
	Quote          *Quote          `json:"quote,omitempty"`
	Options        []Option        `json:"options"`
	LastTxHash     string          `json:"lastTxHash,omitempty"`
}

// viewLocked builds the current view. m.mu must be held.
func (m *Machine) viewLocked() View {
	v := View{
		Kind:           m.kind,
		Step:           m.step,
		EventID:        m.event.ID,
		Amount:         m.amountInput,
		Allowance:      m.allowanceValue,
		LoadingApprove: m.loadingApprove,
		LoadingAction:  m.loadingAction,
		Error:          m.errMsg,
		Success:        m.success,
		Notice:         m.notice,
		Closed:         m.closed(),
		CanContinue:    m.canContinue(),
		Options:        m.labelledOptions(),
		LastTxHash:     m.lastTxHash,
	}

	if m.account != zeroAddress {
		v.Account = m.account.Hex()
	}

	if opt := m.selected(); opt != nil {
		v.Selection = opt.ID
		v.SelectionLabel = m.label(*opt)
	}

	if m.step == StepApprove {
		v.ApproveAmount = m.approveAmount.String()
	}

	if v.Closed {
		v.Notice = NoticeBettingClosed
		return v
	}

	v.Quote = m.quoteLocked()
	return v
}

func (m *Machine) quoteLocked() *Quote {
	opt := m.selected()
	if opt == nil || !m.amount.IsPositive() {
		return nil
	}

	if m.kind == KindStake {
		q := StakeQuote(m.amount, opt.BaseRate, opt.Bonus)
		return &q
	}

	multiplier, ok := m.odds.Multiplier(opt.Side)
	if !ok || !multiplier.IsPositive() {
		return nil
	}
	q := BetQuote(m.amount, multiplier)
	return &q
}

func (m *Machine) labelledOptions() []Option {
	out := make([]Option, len(m.options))
	for i, opt := range m.options {
		opt.Label = m.label(opt)
		out[i] = opt
	}
	return out
}

// label prefers the bound event's side names for bet options.
func (m *Machine) label(opt Option) string {
	if name := m.event.Name(opt.Side); name != "" {
		return name
	}
	return opt.Label
}
