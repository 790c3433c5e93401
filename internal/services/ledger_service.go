package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/strichliste-backend/internal/events"
	"github.com/baharkarakas/strichliste-backend/internal/metrics"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	repo "github.com/baharkarakas/strichliste-backend/internal/repository"
	"github.com/baharkarakas/strichliste-backend/internal/worker"
)

const (
	opDeposit        = "deposit"
	opWithdraw       = "withdraw"
	opTransfer       = "transfer"
	opPurchase       = "purchase"
	opUndo           = "undo"
	opHistory        = "get_user_transactions"
	opVerifyBalance  = "verify_balance"
	opRebuildBalance = "rebuild_balance"

	DefaultHistoryLimit = 10
	publishTimeout      = 5 * time.Second
)

// LedgerService owns every balance mutation. Each operation reads, validates
// and writes inside one store transaction, holding the row locks of all users
// it touches, and appends to the history instead of rewriting it.
type LedgerService struct {
	run          runner
	clock        Clock
	grace        GracePolicy
	historyLimit int
	wp           *worker.Pool
	pub          events.Publisher
}

type LedgerOption func(*LedgerService)

func WithOperationTimeout(d time.Duration) LedgerOption {
	return func(s *LedgerService) { s.run.timeout = d }
}

func WithHistoryLimit(n int) LedgerOption {
	return func(s *LedgerService) { s.historyLimit = n }
}

// WithEvents publishes a LedgerEvent through pub, on the pool, after each commit.
func WithEvents(wp *worker.Pool, pub events.Publisher) LedgerOption {
	return func(s *LedgerService) { s.wp, s.pub = wp, pub }
}

func NewLedgerService(store repo.Store, clock Clock, grace GracePolicy, opts ...LedgerOption) *LedgerService {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &LedgerService{
		run:          runner{store: store},
		clock:        clock,
		grace:        grace,
		historyLimit: DefaultHistoryLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *LedgerService) Grace() GracePolicy { return s.grace }

type Receipt struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     models.Money       `json:"balance"`
}

type TransferReceipt struct {
	Sent            models.Transaction `json:"sent"`
	Received        models.Transaction `json:"received"`
	SenderBalance   models.Money       `json:"sender_balance"`
	ReceiverBalance models.Money       `json:"receiver_balance"`
}

type UndoReceipt struct {
	Reversals []models.Transaction `json:"reversals"`
	Balance   models.Money         `json:"balance"`
}

type BalanceCheck struct {
	UserID      int64        `json:"user_id"`
	Cached      models.Money `json:"cached"`
	FromHistory models.Money `json:"from_history"`
	Consistent  bool         `json:"consistent"`
}

// ----------------- Helpers -----------------

// lockUsers takes the row locks of ids in ascending order so that two
// operations over the same pair of users cannot deadlock.
func lockUsers(ctx context.Context, tx repo.Tx, ids ...int64) (map[int64]models.User, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make(map[int64]models.User, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		u, err := tx.Users().GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = u
	}
	return out, nil
}

// post appends one entry to a locked user's ledger and moves the cached balance by its amount.
func post(ctx context.Context, tx repo.Tx, u *models.User, t models.Transaction) (models.Transaction, error) {
	next, err := u.Balance.Add(t.Money)
	if err != nil {
		return models.Transaction{}, err
	}
	t.UserID = u.ID
	created, err := tx.Transactions().Create(ctx, t)
	if err != nil {
		return models.Transaction{}, err
	}
	if err := tx.Users().SetBalance(ctx, u.ID, next); err != nil {
		return models.Transaction{}, err
	}
	u.Balance = next
	return created, nil
}

func (s *LedgerService) notify(kind models.LedgerEventKind, userID int64, balance models.Money, txs ...models.Transaction) {
	if s.wp == nil || s.pub == nil {
		return
	}
	e := models.LedgerEvent{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  userID,
		Balance: balance,
		At:      s.clock.Now(),
	}
	for _, t := range txs {
		e.TransactionIDs = append(e.TransactionIDs, t.ID)
	}
	pub := s.pub
	ok := s.wp.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.Publish(ctx, e); err != nil {
			metrics.EventsPublished.WithLabelValues("error").Inc()
			slog.Warn("publish ledger event", "event_id", e.ID, "kind", e.Kind, "err", err)
			return
		}
		metrics.EventsPublished.WithLabelValues("ok").Inc()
	})
	if !ok {
		metrics.EventsPublished.WithLabelValues("dropped").Inc()
		slog.Warn("ledger event dropped, worker queue full", "event_id", e.ID, "kind", e.Kind)
	}
}

// ----------------- DEPOSIT / WITHDRAW -----------------

func (s *LedgerService) Deposit(ctx context.Context, userID int64, amount models.Money) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, reject(opDeposit, models.ErrInvalidAmount)
	}
	return s.book(ctx, opDeposit, models.EventDeposit, userID, models.Transaction{Type: models.TxnDeposit, Money: amount})
}

// Withdraw debits amount. Balances may go negative: the list is a running tab.
func (s *LedgerService) Withdraw(ctx context.Context, userID int64, amount models.Money) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, reject(opWithdraw, models.ErrInvalidAmount)
	}
	neg, err := amount.Neg()
	if err != nil {
		return Receipt{}, reject(opWithdraw, err)
	}
	return s.book(ctx, opWithdraw, models.EventWithdraw, userID, models.Transaction{Type: models.TxnWithdraw, Money: neg})
}

func (s *LedgerService) book(ctx context.Context, op string, kind models.LedgerEventKind, userID int64, t models.Transaction) (Receipt, error) {
	var out Receipt
	err := s.run.write(ctx, op, func(tx repo.Tx) error {
		users, err := lockUsers(ctx, tx, userID)
		if err != nil {
			return err
		}
		u := users[userID]
		t.Timestamp = s.clock.Now()
		created, err := post(ctx, tx, &u, t)
		if err != nil {
			return err
		}
		out = Receipt{Transaction: created, Balance: u.Balance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.notify(kind, userID, out.Balance, out.Transaction)
	return out, nil
}

// ----------------- TRANSFER -----------------

// Transfer writes a TransferSent entry for the sender and a TransferReceived
// entry for the receiver, paired with each other, or nothing at all.
func (s *LedgerService) Transfer(ctx context.Context, senderID, receiverID int64, amount models.Money) (TransferReceipt, error) {
	if !amount.IsPositive() {
		return TransferReceipt{}, reject(opTransfer, models.ErrInvalidAmount)
	}
	if senderID == receiverID {
		return TransferReceipt{}, reject(opTransfer, models.ErrSelfTransfer)
	}
	neg, err := amount.Neg()
	if err != nil {
		return TransferReceipt{}, reject(opTransfer, err)
	}

	var out TransferReceipt
	err = s.run.write(ctx, opTransfer, func(tx repo.Tx) error {
		users, err := lockUsers(ctx, tx, senderID, receiverID)
		if err != nil {
			return err
		}
		sender, receiver := users[senderID], users[receiverID]
		now := s.clock.Now()

		sent, err := post(ctx, tx, &sender, models.Transaction{
			Type: models.TxnTransferSent, Money: neg, CounterpartyID: &receiverID, Timestamp: now,
		})
		if err != nil {
			return err
		}
		received, err := post(ctx, tx, &receiver, models.Transaction{
			Type: models.TxnTransferReceived, Money: amount, CounterpartyID: &senderID, Timestamp: now,
		})
		if err != nil {
			return err
		}
		if err := tx.Transactions().LinkPair(ctx, sent.ID, received.ID); err != nil {
			return err
		}
		sent.PairID, received.PairID = &received.ID, &sent.ID

		out = TransferReceipt{
			Sent:            sent,
			Received:        received,
			SenderBalance:   sender.Balance,
			ReceiverBalance: receiver.Balance,
		}
		return nil
	})
	if err != nil {
		return TransferReceipt{}, err
	}
	s.notify(models.EventTransfer, senderID, out.SenderBalance, out.Sent)
	s.notify(models.EventTransfer, receiverID, out.ReceiverBalance, out.Received)
	return out, nil
}

// ----------------- PURCHASE -----------------

// Purchase charges quantity times the article's current price, read in the same transaction.
func (s *LedgerService) Purchase(ctx context.Context, userID, articleID int64, quantity int32) (Receipt, error) {
	if quantity < 1 {
		return Receipt{}, reject(opPurchase, models.ErrInvalidQuantity)
	}

	var out Receipt
	err := s.run.write(ctx, opPurchase, func(tx repo.Tx) error {
		article, err := tx.Articles().GetByID(ctx, articleID)
		if err != nil {
			return err
		}
		total, err := article.Price.Mul(int64(quantity))
		if err != nil {
			return err
		}
		neg, err := total.Neg()
		if err != nil {
			return err
		}
		users, err := lockUsers(ctx, tx, userID)
		if err != nil {
			return err
		}
		u := users[userID]
		created, err := post(ctx, tx, &u, models.Transaction{
			Type:           models.TxnPurchase,
			Money:          neg,
			CounterpartyID: &article.ID,
			Quantity:       quantity,
			Timestamp:      s.clock.Now(),
		})
		if err != nil {
			return err
		}
		out = Receipt{Transaction: created, Balance: u.Balance}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	s.notify(models.EventPurchase, userID, out.Balance, out.Transaction)
	return out, nil
}

// ----------------- UNDO -----------------

// Undo reverses a transaction owned by userID while it is inside the grace
// period. The original is flagged undone and a compensating entry with the
// negated amount and the same type is appended. Both legs of a transfer are
// reversed together; the sender leg's timestamp decides eligibility.
func (s *LedgerService) Undo(ctx context.Context, userID, transactionID int64) (UndoReceipt, error) {
	var (
		out     UndoReceipt
		touched map[int64]models.User
	)
	err := s.run.write(ctx, opUndo, func(tx repo.Tx) error {
		orig, err := tx.Transactions().GetByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if orig.UserID != userID {
			return models.ErrTransactionNotFound
		}

		ids := []int64{orig.UserID}
		if orig.Type.IsTransfer() && orig.CounterpartyID != nil {
			ids = append(ids, *orig.CounterpartyID)
		}
		users, err := lockUsers(ctx, tx, ids...)
		if err != nil {
			return err
		}

		// re-read under the user locks; the first read only told us whom to lock
		orig, err = tx.Transactions().GetForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if orig.IsReversal() {
			return models.ErrNotReversible
		}
		if orig.Undone {
			return models.ErrAlreadyUndone
		}

		legs := []models.Transaction{orig}
		issued := orig.Timestamp
		if orig.Type.IsTransfer() {
			if orig.PairID == nil {
				return models.ErrTransactionNotFound
			}
			pair, err := tx.Transactions().GetForUpdate(ctx, *orig.PairID)
			if err != nil {
				return err
			}
			if _, locked := users[pair.UserID]; !locked {
				return models.ErrTransactionNotFound
			}
			if pair.Undone {
				return models.ErrAlreadyUndone
			}
			legs = append(legs, pair)
			for _, l := range legs {
				if l.Type == models.TxnTransferSent {
					issued = l.Timestamp
				}
			}
		}

		now := s.clock.Now()
		if !s.grace.Eligible(issued, now) {
			return models.ErrGracePeriodExpired
		}

		reversals := make([]models.Transaction, 0, len(legs))
		for _, l := range legs {
			neg, err := l.Money.Neg()
			if err != nil {
				return err
			}
			if err := tx.Transactions().MarkUndone(ctx, l.ID); err != nil {
				return err
			}
			u := users[l.UserID]
			rev, err := post(ctx, tx, &u, models.Transaction{
				Type:           l.Type,
				Money:          neg,
				CounterpartyID: l.CounterpartyID,
				Quantity:       l.Quantity,
				ReversesID:     &l.ID,
				Timestamp:      now,
			})
			if err != nil {
				return err
			}
			users[l.UserID] = u
			reversals = append(reversals, rev)
		}
		if len(reversals) == 2 {
			if err := tx.Transactions().LinkPair(ctx, reversals[0].ID, reversals[1].ID); err != nil {
				return err
			}
			reversals[0].PairID, reversals[1].PairID = &reversals[1].ID, &reversals[0].ID
		}

		revIDs := make([]int64, 0, len(reversals))
		for _, r := range reversals {
			revIDs = append(revIDs, r.ID)
		}
		if err := tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "transaction",
			EntityID:   &orig.ID,
			Action:     "undo",
			Details:    map[string]any{"user_id": userID, "reversal_ids": revIDs},
		}); err != nil {
			return err
		}

		out = UndoReceipt{Reversals: reversals, Balance: users[userID].Balance}
		touched = users
		return nil
	})
	if err != nil {
		return UndoReceipt{}, err
	}
	for _, r := range out.Reversals {
		s.notify(models.EventUndo, r.UserID, touched[r.UserID].Balance, r)
	}
	return out, nil
}

// ----------------- Queries -----------------

// GetUserTransactions returns the newest limit entries of a user's history.
// A non-positive limit falls back to the configured default.
func (s *LedgerService) GetUserTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	var out []models.Transaction
	err := s.run.read(ctx, opHistory, func(tx repo.Tx) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		out, err = tx.Transactions().ListByUser(ctx, userID, limit)
		return err
	})
	return out, err
}

// VerifyBalance compares the cached balance with the one implied by the history.
func (s *LedgerService) VerifyBalance(ctx context.Context, userID int64) (BalanceCheck, error) {
	var out BalanceCheck
	err := s.run.read(ctx, opVerifyBalance, func(tx repo.Tx) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		history, err := tx.Transactions().ListByUser(ctx, userID, 0)
		if err != nil {
			return err
		}
		sum, err := models.SumActive(history)
		if err != nil {
			return err
		}
		out = BalanceCheck{UserID: userID, Cached: u.Balance, FromHistory: sum, Consistent: sum == u.Balance}
		return nil
	})
	return out, err
}

// RebuildBalance restores the cached balance from the transaction history.
func (s *LedgerService) RebuildBalance(ctx context.Context, userID int64) (BalanceCheck, error) {
	var out BalanceCheck
	err := s.run.write(ctx, opRebuildBalance, func(tx repo.Tx) error {
		users, err := lockUsers(ctx, tx, userID)
		if err != nil {
			return err
		}
		u := users[userID]
		history, err := tx.Transactions().ListByUser(ctx, userID, 0)
		if err != nil {
			return err
		}
		sum, err := models.SumActive(history)
		if err != nil {
			return err
		}
		out = BalanceCheck{UserID: userID, Cached: u.Balance, FromHistory: sum, Consistent: sum == u.Balance}
		if out.Consistent {
			return nil
		}
		if err := tx.Users().SetBalance(ctx, userID, sum); err != nil {
			return err
		}
		return tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "user",
			EntityID:   &userID,
			Action:     "rebuild_balance",
			Details:    map[string]any{"cached": int64(u.Balance), "from_history": int64(sum)},
		})
	})
	if err != nil {
		return BalanceCheck{}, err
	}
	if !out.Consistent {
		slog.Warn("cached balance repaired", "user_id", userID, "cached", out.Cached, "from_history", out.FromHistory)
		s.notify(models.EventRebuild, userID, out.FromHistory)
	}
	return out, nil
}
