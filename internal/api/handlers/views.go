package handlers

import (
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

// Presenter adds display strings to the ledger's types. Amounts stay integer
// cents on the wire; the formatted fields are for clients that only render.
type Presenter struct {
	Format models.MoneyFormat
	Grace  services.GracePolicy
	Clock  services.Clock
}

type userView struct {
	models.User
	BalanceFormatted string `json:"balance_formatted"`
}

type transactionView struct {
	models.Transaction
	MoneyFormatted string     `json:"money_formatted"`
	Undoable       bool       `json:"undoable"`
	UndoDeadline   *time.Time `json:"undo_deadline,omitempty"`
}

type articleView struct {
	models.Article
	PriceFormatted string `json:"price_formatted"`
}

type receiptView struct {
	Transaction      transactionView `json:"transaction"`
	Balance          models.Money    `json:"balance"`
	BalanceFormatted string          `json:"balance_formatted"`
}

type transferView struct {
	Sent                     transactionView `json:"sent"`
	Received                 transactionView `json:"received"`
	SenderBalance            models.Money    `json:"sender_balance"`
	SenderBalanceFormatted   string          `json:"sender_balance_formatted"`
	ReceiverBalance          models.Money    `json:"receiver_balance"`
	ReceiverBalanceFormatted string          `json:"receiver_balance_formatted"`
}

type undoView struct {
	Reversals        []transactionView `json:"reversals"`
	Balance          models.Money      `json:"balance"`
	BalanceFormatted string            `json:"balance_formatted"`
}

func (p Presenter) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

func (p Presenter) user(u models.User) userView {
	return userView{User: u, BalanceFormatted: p.Format.Format(u.Balance)}
}

func (p Presenter) users(us []models.User) []userView {
	out := make([]userView, 0, len(us))
	for _, u := range us {
		out = append(out, p.user(u))
	}
	return out
}

// transaction marks an entry undoable while it is inside the grace period and
// neither undone nor itself a compensation.
func (p Presenter) transaction(t models.Transaction) transactionView {
	v := transactionView{Transaction: t, MoneyFormatted: p.Format.FormatSignedDiff(t.Money)}
	if t.Active() && p.Grace.Eligible(t.Timestamp, p.now()) {
		deadline := p.Grace.Deadline(t.Timestamp)
		v.Undoable, v.UndoDeadline = true, &deadline
	}
	return v
}

func (p Presenter) transactions(ts []models.Transaction) []transactionView {
	out := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, p.transaction(t))
	}
	return out
}

func (p Presenter) article(a models.Article) articleView {
	return articleView{Article: a, PriceFormatted: p.Format.Format(a.Price)}
}

func (p Presenter) receipt(r services.Receipt) receiptView {
	return receiptView{
		Transaction:      p.transaction(r.Transaction),
		Balance:          r.Balance,
		BalanceFormatted: p.Format.Format(r.Balance),
	}
}
