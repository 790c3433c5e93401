package models

import (
	"strings"
	"time"
)

type Article struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     Money     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Article) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" || a.Price < 0 {
		return ErrInvalidArticle
	}
	return nil
}
