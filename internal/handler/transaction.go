package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/store"
)

type TransactionHandler struct {
	transactions *store.TransactionStore
	users        *store.UserStore
	logger       *slog.Logger
}

func NewTransactionHandler(transactions *store.TransactionStore, users *store.UserStore, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, users: users, logger: logger}
}

// ListByUser returns one member's full history, newest first.
func (h *TransactionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	txs, err := h.transactions.ListByUser(id)
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// List filters the whole ledger by the query parameters
// skip, limit, type, search, start_date, end_date, and user_id.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TransactionFilter{
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}

	if filter.Type != "" && filter.Type != model.TxEarn && filter.Type != model.TxRedeem && filter.Type != model.TxPenalty {
		writeError(w, http.StatusBadRequest, "type must be EARN, REDEEM, or PENALTY")
		return
	}

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = &id
	}
	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			writeError(w, http.StatusBadRequest, "invalid skip")
			return
		}
		filter.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		filter.StartDate = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		// End date is inclusive: filter up to the following midnight.
		end := t.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	txs, err := h.transactions.ListFiltered(filter)
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}
