package httpserver

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/types"
)

// FlowHandler drives the bet and stake flows.
type FlowHandler struct {
	flows  map[flow.Kind]FlowController
	events EventSource
	logger *zap.Logger
}

// NewFlowHandler creates a flow handler. events may be nil.
func NewFlowHandler(flows map[flow.Kind]FlowController, events EventSource, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		flows:  flows,
		events: events,
		logger: logger,
	}
}

type eventRequest struct {
	ID    string `json:"id"`
	SideA string `json:"sideA"`
	SideB string `json:"sideB"`
}

type accountRequest struct {
	Account string `json:"account"`
}

type selectRequest struct {
	Option string `json:"option"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type gameStartedRequest struct {
	Started bool `json:"started"`
}

// Routes mounts the flow endpoints under /api/flows/{kind}.
func (h *FlowHandler) Routes(r chi.Router) {
	r.Route("/api/flows/{kind}", func(r chi.Router) {
		r.Get("/", h.handleView)
		r.Post("/event", h.handleEvent)
		r.Post("/account", h.handleAccount)
		r.Post("/select", h.handleSelect)
		r.Post("/amount", h.handleAmount)
		r.Post("/continue", h.handleContinue)
		r.Post("/back", h.handleBack)
		r.Post("/approve", h.handleApprove)
		r.Post("/submit", h.handleSubmit)
		r.Post("/game-started", h.handleGameStarted)
	})
}

// machine resolves {kind}, writing 404 when no such flow exists.
func (h *FlowHandler) machine(w http.ResponseWriter, r *http.Request) (FlowController, bool) {
	kind, err := flow.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, err.Error(), http.StatusNotFound)
		return nil, false
	}

	m, ok := h.flows[kind]
	if !ok {
		writeError(w, h.logger, "flow not configured: "+string(kind), http.StatusNotFound)
		return nil, false
	}
	return m, true
}

func (h *FlowHandler) handleView(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, m.View())
}

func (h *FlowHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := types.ParseEventID(req.ID); err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	ev := types.Event{ID: strings.TrimSpace(req.ID), SideA: req.SideA, SideB: req.SideB}
	previous := m.BindEvent(ev)
	if h.events != nil && previous != ev.ID {
		h.events.Watch(ev.ID)
		if previous != "" {
			h.events.Unwatch(previous)
		}
	}

	h.logger.Debug("flow-event-request", zap.String("event-id", ev.ID))
	writeJSON(w, h.logger, http.StatusOK, m.View())
}

func (h *FlowHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req accountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	// An empty account disconnects the wallet.
	var account common.Address
	if req.Account != "" {
		if !common.IsHexAddress(req.Account) {
			writeError(w, h.logger, "invalid account address", http.StatusBadRequest)
			return
		}
		account = common.HexToAddress(req.Account)
	}

	m.BindAccount(account)
	writeJSON(w, h.logger, http.StatusOK, m.View())
}

func (h *FlowHandler) handleSelect(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	h.respond(w, m, m.Select(req.Option))
}

func (h *FlowHandler) handleAmount(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	h.respond(w, m, m.SetAmount(req.Amount))
}

func (h *FlowHandler) handleContinue(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.respond(w, m, m.Continue(r.Context()))
}

func (h *FlowHandler) handleBack(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}
	h.respond(w, m, m.Back())
}

func (h *FlowHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	res, err := m.Approve(r.Context())
	h.respondResult(w, m, res, err)
}

func (h *FlowHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	res, err := m.Submit(r.Context())
	h.respondResult(w, m, res, err)
}

func (h *FlowHandler) handleGameStarted(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machine(w, r)
	if !ok {
		return
	}

	var req gameStartedRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	m.SetGameStarted(req.Started)
	writeJSON(w, h.logger, http.StatusOK, m.View())
}

// respond writes the view, or the error with its mapped status.
func (h *FlowHandler) respond(w http.ResponseWriter, m FlowController, err error) {
	if err != nil {
		writeError(w, h.logger, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, m.View())
}

// respondResult writes a write outcome. Failed transactions are still 200:
// the failure is part of the flow state, not a transport error.
func (h *FlowHandler) respondResult(w http.ResponseWriter, m FlowController, res types.TransactionResult, err error) {
	if err != nil {
		writeError(w, h.logger, err.Error(), statusFor(err))
		return
	}

	resp := newResultResponse(res)
	view := m.View()
	resp.View = &view
	writeJSON(w, h.logger, http.StatusOK, resp)
}
