package models

import "time"

type TransactionType string

const (
	TxnDeposit          TransactionType = "deposit"
	TxnWithdraw         TransactionType = "withdraw"
	TxnPurchase         TransactionType = "purchase"
	TxnTransferSent     TransactionType = "transfer_sent"
	TxnTransferReceived TransactionType = "transfer_received"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxnDeposit, TxnWithdraw, TxnPurchase, TxnTransferSent, TxnTransferReceived:
		return true
	}
	return false
}

func (t TransactionType) IsTransfer() bool {
	return t == TxnTransferSent || t == TxnTransferReceived
}

// Transaction is one immutable entry of a user's ledger. Only Undone ever changes
// after creation; a reversal is a new entry with ReversesID set.
type Transaction struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Type           TransactionType `json:"t_type"`
	Money          Money           `json:"money"`
	CounterpartyID *int64          `json:"counterparty_id,omitempty"` // user for transfers, article for purchases
	Quantity       int32           `json:"quantity,omitempty"`
	PairID         *int64          `json:"pair_id,omitempty"`
	ReversesID     *int64          `json:"reverses_id,omitempty"`
	Undone         bool            `json:"undone"`
	Timestamp      time.Time       `json:"timestamp"`
}

func (t Transaction) IsReversal() bool { return t.ReversesID != nil }

// Active reports whether the entry counts towards the balance on its own,
// i.e. it is neither undone nor the compensation of an undone entry.
func (t Transaction) Active() bool { return !t.Undone && t.ReversesID == nil }

// SumActive is the balance implied by a history: the sum over active entries.
func SumActive(txs []Transaction) (Money, error) {
	var sum Money
	for _, t := range txs {
		if !t.Active() {
			continue
		}
		var err error
		if sum, err = sum.Add(t.Money); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

// SumAll sums every entry including undone ones and their compensations, which cancel out.
func SumAll(txs []Transaction) (Money, error) {
	var sum Money
	for _, t := range txs {
		var err error
		if sum, err = sum.Add(t.Money); err != nil {
			return 0, err
		}
	}
	return sum, nil
}
