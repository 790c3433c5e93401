package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type transactionsRepo struct{ q dbtx }

const txnCols = `id, user_id, t_type, money, counterparty_id, quantity, pair_id, reverses_id, undone, timestamp`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, (*string)(&t.Type), (*int64)(&t.Money), &t.CounterpartyID,
		&t.Quantity, &t.PairID, &t.ReversesID, &t.Undone, &t.Timestamp)
	return t, err
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	out, err := scanTxn(r.q.QueryRow(ctx, `
INSERT INTO transactions (user_id, t_type, money, counterparty_id, quantity, pair_id, reverses_id, undone, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING `+txnCols,
		t.UserID, string(t.Type), int64(t.Money), t.CounterpartyID, t.Quantity, t.PairID, t.ReversesID, t.Undone, t.Timestamp,
	))
	if err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return models.Transaction{}, models.ErrUserNotFound
		case codeUniqueViolation: // reverses_id is unique
			return models.Transaction{}, models.ErrAlreadyUndone
		}
		return models.Transaction{}, wrap("create transaction", err)
	}
	return out, nil
}

func (r *transactionsRepo) GetByID(ctx context.Context, id int64) (models.Transaction, error) {
	t, err := scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
	if err != nil {
		return models.Transaction{}, notFound("get transaction", err, models.ErrTransactionNotFound)
	}
	return t, nil
}

func (r *transactionsRepo) GetForUpdate(ctx context.Context, id int64) (models.Transaction, error) {
	t, err := scanTxn(r.q.QueryRow(ctx, `SELECT `+txnCols+` FROM transactions WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return models.Transaction{}, notFound("lock transaction", err, models.ErrTransactionNotFound)
	}
	return t, nil
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	var lim *int64 // LIMIT NULL returns every row
	if limit > 0 {
		l := int64(limit)
		lim = &l
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+txnCols+`
		   FROM transactions
		  WHERE user_id=$1
		  ORDER BY timestamp DESC, id DESC
		  LIMIT $2`,
		userID, lim,
	)
	if err != nil {
		return nil, wrap("list transactions", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, wrap("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list transactions", err)
	}
	return out, nil
}

func (r *transactionsRepo) LinkPair(ctx context.Context, a, b int64) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE transactions
		    SET pair_id = CASE WHEN id=$1 THEN $2::bigint ELSE $1::bigint END
		  WHERE id IN ($1, $2) AND pair_id IS NULL`,
		a, b,
	)
	if err != nil {
		return wrap("link pair", err)
	}
	if tag.RowsAffected() != 2 {
		return models.ErrTransactionNotFound
	}
	return nil
}

func (r *transactionsRepo) MarkUndone(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE transactions SET undone=true WHERE id=$1 AND NOT undone`, id)
	if err != nil {
		return wrap("mark undone", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyUndone
	}
	return nil
}
