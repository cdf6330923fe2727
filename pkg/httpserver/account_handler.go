package httpserver

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/types"
)

// maxHistoryLimit caps the number of records one history request returns.
const maxHistoryLimit = 500

// HistoryResponse lists transactions, newest first.
type HistoryResponse struct {
	Transactions []*history.Record `json:"transactions"`
	Count        int               `json:"count"`
}

type unstakeRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// AccountHandler serves unstaking, history, balances and the gas guard
// status.
type AccountHandler struct {
	staking Unstaker
	history HistoryLister
	guard   GuardStatus
	wallet  WalletSource
	logger  *zap.Logger
}

// NewAccountHandler creates an account handler. Any dependency may be nil;
// its routes are then not mounted.
func NewAccountHandler(cfg *Config) *AccountHandler {
	return &AccountHandler{
		staking: cfg.Staking,
		history: cfg.History,
		guard:   cfg.GasGuard,
		wallet:  cfg.Wallet,
		logger:  cfg.Logger,
	}
}

// HandleUnstake handles POST /api/staking/unstake.
func (h *AccountHandler) HandleUnstake(w http.ResponseWriter, r *http.Request) {
	var req unstakeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if !common.IsHexAddress(req.Account) {
		writeError(w, h.logger, "invalid account address", http.StatusBadRequest)
		return
	}

	amount, err := types.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.staking.Unstake(r.Context(), common.HexToAddress(req.Account), amount)
	writeJSON(w, h.logger, http.StatusOK, newResultResponse(res))
}

// HandleHistory handles GET /api/history?type=&q=&limit=.
func (h *AccountHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := history.Filter{Search: query.Get("q")}

	if raw := query.Get("type"); raw != "" && raw != "all" {
		txType := types.TxType(raw)
		switch txType {
		case types.TxTypeApprove, types.TxTypeBet, types.TxTypeStake, types.TxTypeUnstake:
			filter.Type = txType
		default:
			writeError(w, h.logger, "unknown transaction type: "+raw, http.StatusBadRequest)
			return
		}
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, h.logger, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = min(limit, maxHistoryLimit)
	}

	records, err := h.history.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("history-list-failed", zap.Error(err))
		writeError(w, h.logger, "failed to list transactions", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []*history.Record{}
	}
	writeJSON(w, h.logger, http.StatusOK, HistoryResponse{Transactions: records, Count: len(records)})
}

// HandleGasGuard handles GET /api/gas-guard.
func (h *AccountHandler) HandleGasGuard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.guard.GetStatus())
}

// HandleWallet handles GET /api/wallet.
func (h *AccountHandler) HandleWallet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.wallet.Snapshot()
	if !ok {
		writeError(w, h.logger, "balances not loaded yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, snap)
}
