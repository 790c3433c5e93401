package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type usersRepo struct{ q dbtx }

const userCols = `id, nickname, card_number, balance, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Nickname, &u.CardNumber, (*int64)(&u.Balance), &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, nickname string, cardNumber *string) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx,
		`INSERT INTO users(nickname, card_number) VALUES($1, $2) RETURNING `+userCols,
		nickname, cardNumber,
	))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return models.User{}, models.ErrCardNumberInUse
		}
		return models.User{}, wrap("create user", err)
	}
	return u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		return models.User{}, notFound("get user", err, models.ErrUserNotFound)
	}
	return u, nil
}

func (r *usersRepo) GetForUpdate(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return models.User{}, notFound("lock user", err, models.ErrUserNotFound)
	}
	return u, nil
}

func (r *usersRepo) GetByCardNumber(ctx context.Context, cardNumber string) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE card_number=$1`, cardNumber))
	if err != nil {
		return models.User{}, notFound("get user by card", err, models.ErrUserNotFound)
	}
	return u, nil
}

func (r *usersRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY nickname, id`)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list users", err)
	}
	return out, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id int64, nickname string, cardNumber *string) (models.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx,
		`UPDATE users SET nickname=$2, card_number=$3, updated_at=now() WHERE id=$1 RETURNING `+userCols,
		id, nickname, cardNumber,
	))
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return models.User{}, models.ErrCardNumberInUse
		}
		return models.User{}, notFound("update user", err, models.ErrUserNotFound)
	}
	return u, nil
}

func (r *usersRepo) SetBalance(ctx context.Context, id int64, balance models.Money) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET balance=$2, updated_at=now() WHERE id=$1`, id, int64(balance))
	if err != nil {
		return wrap("set balance", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
