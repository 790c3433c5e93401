package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type articlesRepo struct{ q dbtx }

const articleCols = `id, name, price, created_at, updated_at`

func scanArticle(row pgx.Row) (models.Article, error) {
	var a models.Article
	err := row.Scan(&a.ID, &a.Name, (*int64)(&a.Price), &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *articlesRepo) Create(ctx context.Context, name string, price models.Money) (models.Article, error) {
	a, err := scanArticle(r.q.QueryRow(ctx,
		`INSERT INTO articles(name, price) VALUES($1, $2) RETURNING `+articleCols, name, int64(price)))
	if err != nil {
		return models.Article{}, wrap("create article", err)
	}
	return a, nil
}

func (r *articlesRepo) GetByID(ctx context.Context, id int64) (models.Article, error) {
	a, err := scanArticle(r.q.QueryRow(ctx, `SELECT `+articleCols+` FROM articles WHERE id=$1`, id))
	if err != nil {
		return models.Article{}, notFound("get article", err, models.ErrArticleNotFound)
	}
	return a, nil
}

func (r *articlesRepo) List(ctx context.Context) ([]models.Article, error) {
	rows, err := r.q.Query(ctx, `SELECT `+articleCols+` FROM articles ORDER BY name, id`)
	if err != nil {
		return nil, wrap("list articles", err)
	}
	defer rows.Close()

	out := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, wrap("scan article", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *articlesRepo) Update(ctx context.Context, a models.Article) (models.Article, error) {
	out, err := scanArticle(r.q.QueryRow(ctx,
		`UPDATE articles SET name=$2, price=$3, updated_at=now() WHERE id=$1 RETURNING `+articleCols,
		a.ID, a.Name, int64(a.Price),
	))
	if err != nil {
		return models.Article{}, notFound("update article", err, models.ErrArticleNotFound)
	}
	return out, nil
}
