package services

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	repo "github.com/baharkarakas/strichliste-backend/internal/repository"
)

const (
	opCreateUser = "create_user"
	opUpdateUser = "update_user"
	opGetUser    = "get_user"
	opListUsers  = "get_all_users"
	opGetByCard  = "get_by_card_number"
)

// UserService manages users and resolves scanned card numbers. It never
// touches balances.
type UserService struct {
	run runner
}

func NewUserService(store repo.Store, opTimeout time.Duration) *UserService {
	return &UserService{run: runner{store: store, timeout: opTimeout}}
}

// ensureCardFree fails if cardNumber belongs to a user other than self.
// It runs inside the writing transaction; the store's unique index catches
// anything that slips past a concurrent check.
func ensureCardFree(ctx context.Context, tx repo.Tx, cardNumber *string, self int64) error {
	if cardNumber == nil {
		return nil
	}
	holder, err := tx.Users().GetByCardNumber(ctx, *cardNumber)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		return nil
	case err != nil:
		return err
	case holder.ID != self:
		return models.ErrCardNumberInUse
	}
	return nil
}

func (s *UserService) Create(ctx context.Context, nickname, cardNumber string) (models.User, error) {
	nick, err := models.NormalizeNickname(nickname)
	if err != nil {
		return models.User{}, reject(opCreateUser, err)
	}
	card := models.NormalizeCardNumber(cardNumber)

	var out models.User
	err = s.run.write(ctx, opCreateUser, func(tx repo.Tx) error {
		if err := ensureCardFree(ctx, tx, card, 0); err != nil {
			return err
		}
		var err error
		out, err = tx.Users().Create(ctx, nick, card)
		return err
	})
	return out, err
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	var out models.User
	err := s.run.read(ctx, opGetUser, func(tx repo.Tx) error {
		var err error
		out, err = tx.Users().GetByID(ctx, id)
		return err
	})
	return out, err
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := s.run.read(ctx, opListUsers, func(tx repo.Tx) error {
		var err error
		out, err = tx.Users().List(ctx)
		return err
	})
	return out, err
}

// GetByCardNumber resolves a scanned code. An empty code, or one nobody
// holds, yields nil without an error; the empty code never reaches the store.
func (s *UserService) GetByCardNumber(ctx context.Context, code string) (*models.User, error) {
	card := models.NormalizeCardNumber(code)
	if card == nil {
		return nil, nil
	}
	var out *models.User
	err := s.run.read(ctx, opGetByCard, func(tx repo.Tx) error {
		u, err := tx.Users().GetByCardNumber(ctx, *card)
		if errors.Is(err, models.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &u
		return nil
	})
	return out, err
}

// Update changes nickname and card number together. An empty card number
// clears it; keeping one's own card number is not a conflict.
func (s *UserService) Update(ctx context.Context, id int64, nickname, cardNumber string) (models.User, error) {
	nick, err := models.NormalizeNickname(nickname)
	if err != nil {
		return models.User{}, reject(opUpdateUser, err)
	}
	card := models.NormalizeCardNumber(cardNumber)

	var out models.User
	err = s.run.write(ctx, opUpdateUser, func(tx repo.Tx) error {
		cur, err := tx.Users().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureCardFree(ctx, tx, card, id); err != nil {
			return err
		}
		if out, err = tx.Users().UpdateProfile(ctx, id, nick, card); err != nil {
			return err
		}
		if sameCard(cur.CardNumber, card) && cur.Nickname == nick {
			return nil
		}
		return tx.AuditLogs().Create(ctx, models.AuditLog{
			EntityType: "user",
			EntityID:   &id,
			Action:     "update_profile",
			Details: map[string]any{
				"nickname":            nick,
				"card_number_changed": !sameCard(cur.CardNumber, card),
			},
		})
	})
	return out, err
}

// SetCardNumber assigns or, with an empty code, clears a user's card number.
func (s *UserService) SetCardNumber(ctx context.Context, id int64, code string) (models.User, error) {
	card := models.NormalizeCardNumber(code)
	var out models.User
	err := s.run.write(ctx, opUpdateUser, func(tx repo.Tx) error {
		cur, err := tx.Users().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureCardFree(ctx, tx, card, id); err != nil {
			return err
		}
		out, err = tx.Users().UpdateProfile(ctx, id, cur.Nickname, card)
		return err
	})
	return out, err
}

func sameCard(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
