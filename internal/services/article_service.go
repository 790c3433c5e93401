package services

import (
	"context"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	repo "github.com/baharkarakas/strichliste-backend/internal/repository"
)

type ArticleService struct {
	run runner
}

func NewArticleService(store repo.Store, opTimeout time.Duration) *ArticleService {
	return &ArticleService{run: runner{store: store, timeout: opTimeout}}
}

func (s *ArticleService) Create(ctx context.Context, name string, price models.Money) (models.Article, error) {
	a := models.Article{Name: name, Price: price}
	if err := a.Validate(); err != nil {
		return models.Article{}, reject("create_article", err)
	}
	var out models.Article
	err := s.run.write(ctx, "create_article", func(tx repo.Tx) error {
		var err error
		out, err = tx.Articles().Create(ctx, a.Name, a.Price)
		return err
	})
	return out, err
}

// Update changes name and price. Past purchases keep the amount they were booked with.
func (s *ArticleService) Update(ctx context.Context, id int64, name string, price models.Money) (models.Article, error) {
	a := models.Article{ID: id, Name: name, Price: price}
	if err := a.Validate(); err != nil {
		return models.Article{}, reject("update_article", err)
	}
	var out models.Article
	err := s.run.write(ctx, "update_article", func(tx repo.Tx) error {
		var err error
		out, err = tx.Articles().Update(ctx, a)
		return err
	})
	return out, err
}

func (s *ArticleService) Get(ctx context.Context, id int64) (models.Article, error) {
	var out models.Article
	err := s.run.read(ctx, "get_article", func(tx repo.Tx) error {
		var err error
		out, err = tx.Articles().GetByID(ctx, id)
		return err
	})
	return out, err
}

func (s *ArticleService) List(ctx context.Context) ([]models.Article, error) {
	var out []models.Article
	err := s.run.read(ctx, "list_articles", func(tx repo.Tx) error {
		var err error
		out, err = tx.Articles().List(ctx)
		return err
	})
	return out, err
}
