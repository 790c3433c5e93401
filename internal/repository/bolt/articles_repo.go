package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "github.com/boltdb/bolt"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type articlesRepo struct{ tx *bolt.Tx }

func (r *articlesRepo) Create(_ context.Context, name string, price models.Money) (models.Article, error) {
	b := r.tx.Bucket(bucketArticles)
	id, err := nextID(b)
	if err != nil {
		return models.Article{}, err
	}
	ts := now()
	a := models.Article{ID: id, Name: name, Price: price, CreatedAt: ts, UpdatedAt: ts}
	if err := putJSON(b, itob(id), a); err != nil {
		return models.Article{}, fmt.Errorf("put article: %w", err)
	}
	return a, nil
}

func (r *articlesRepo) GetByID(_ context.Context, id int64) (models.Article, error) {
	var a models.Article
	ok, err := getJSON(r.tx.Bucket(bucketArticles), itob(id), &a)
	if err != nil {
		return models.Article{}, fmt.Errorf("decode article %d: %w", id, err)
	}
	if !ok {
		return models.Article{}, models.ErrArticleNotFound
	}
	return a, nil
}

func (r *articlesRepo) List(_ context.Context) ([]models.Article, error) {
	out := []models.Article{}
	err := r.tx.Bucket(bucketArticles).ForEach(func(_, v []byte) error {
		var a models.Article
		if err := json.Unmarshal(v, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *articlesRepo) Update(ctx context.Context, a models.Article) (models.Article, error) {
	cur, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return models.Article{}, err
	}
	cur.Name = a.Name
	cur.Price = a.Price
	cur.UpdatedAt = now()
	if err := putJSON(r.tx.Bucket(bucketArticles), itob(cur.ID), cur); err != nil {
		return models.Article{}, fmt.Errorf("put article: %w", err)
	}
	return cur, nil
}
