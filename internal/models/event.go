package models

import "time"

type LedgerEventKind string

const (
	EventDeposit  LedgerEventKind = "deposit"
	EventWithdraw LedgerEventKind = "withdraw"
	EventTransfer LedgerEventKind = "transfer"
	EventPurchase LedgerEventKind = "purchase"
	EventUndo     LedgerEventKind = "undo"
	EventRebuild  LedgerEventKind = "rebuild"
)

// LedgerEvent notifies presentation layers about a committed balance change.
type LedgerEvent struct {
	ID             string          `json:"id"`
	Kind           LedgerEventKind `json:"kind"`
	UserID         int64           `json:"user_id"`
	TransactionIDs []int64         `json:"transaction_ids,omitempty"`
	Balance        Money           `json:"balance"`
	At             time.Time       `json:"at"`
}
