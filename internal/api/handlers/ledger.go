package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/strichliste-backend/internal/api/httpx"
	"github.com/baharkarakas/strichliste-backend/internal/api/validate"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

type LedgerHandler struct {
	Ledger *services.LedgerService
	View   Presenter
}

func NewLedgerHandler(ls *services.LedgerService, view Presenter) *LedgerHandler {
	return &LedgerHandler{Ledger: ls, View: view}
}

type amountReq struct {
	Amount models.Money `json:"amount"`
}

type transferReq struct {
	ToUserID int64        `json:"to_user_id"`
	Amount   models.Money `json:"amount"`
}

type purchaseReq struct {
	ArticleID int64 `json:"article_id"`
	Quantity  int32 `json:"quantity"`
}

type bookFunc func(ctx context.Context, userID int64, amount models.Money) (services.Receipt, error)

func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, h.Ledger.Deposit)
}

func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, h.Ledger.Withdraw)
}

func (h *LedgerHandler) book(w http.ResponseWriter, r *http.Request, op bookFunc) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req amountReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	rc, err := op(r.Context(), id, req.Amount)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.View.receipt(rc))
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req transferReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := validate.Collect(validate.MinInt("to_user_id", req.ToUserID, 1)); errs != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	tr, err := h.Ledger.Transfer(r.Context(), id, req.ToUserID, req.Amount)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	f := h.View.Format
	httpx.WriteJSON(w, http.StatusCreated, transferView{
		Sent:                     h.View.transaction(tr.Sent),
		Received:                 h.View.transaction(tr.Received),
		SenderBalance:            tr.SenderBalance,
		SenderBalanceFormatted:   f.Format(tr.SenderBalance),
		ReceiverBalance:          tr.ReceiverBalance,
		ReceiverBalanceFormatted: f.Format(tr.ReceiverBalance),
	})
}

// Purchase books one article; quantity defaults to 1.
func (h *LedgerHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	req := purchaseReq{Quantity: 1}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if errs := validate.Collect(validate.MinInt("article_id", req.ArticleID, 1)); errs != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", errs.Error(), errs)
		return
	}
	rc, err := h.Ledger.Purchase(r.Context(), id, req.ArticleID, req.Quantity)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.View.receipt(rc))
}

func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, ferr := validate.OptionalInt("limit", r.URL.Query().Get("limit"), 0)
	if ferr != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid query parameter", validate.Errs{*ferr})
		return
	}
	txs, err := h.Ledger.GetUserTransactions(r.Context(), id, limit)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.transactions(txs))
}

func (h *LedgerHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tid, ferr := validate.ID("tid", chi.URLParam(r, "tid"))
	if ferr != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid path parameter", validate.Errs{*ferr})
		return
	}
	res, err := h.Ledger.Undo(r.Context(), id, tid)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, undoView{
		Reversals:        h.View.transactions(res.Reversals),
		Balance:          res.Balance,
		BalanceFormatted: h.View.Format.Format(res.Balance),
	})
}

func (h *LedgerHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	check, err := h.Ledger.RebuildBalance(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, check)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrInvalidMoney) || errors.Is(err, models.ErrAmountOverflow) {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}
