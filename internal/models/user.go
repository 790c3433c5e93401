package models

import (
	"strings"
	"time"
)

type User struct {
	ID         int64     `json:"id"`
	Nickname   string    `json:"nickname"`
	CardNumber *string   `json:"card_number,omitempty"`
	Balance    Money     `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NormalizeNickname trims the nickname and rejects empty ones.
func NormalizeNickname(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidNickname
	}
	return s, nil
}

// NormalizeCardNumber maps an empty card number to absent.
func NormalizeCardNumber(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
