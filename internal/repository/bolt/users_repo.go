package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "github.com/boltdb/bolt"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

type usersRepo struct{ tx *bolt.Tx }

func (r *usersRepo) get(id int64) (models.User, error) {
	var u models.User
	ok, err := getJSON(r.tx.Bucket(bucketUsers), itob(id), &u)
	if err != nil {
		return models.User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}
	return u, nil
}

func (r *usersRepo) put(u models.User) error {
	if err := putJSON(r.tx.Bucket(bucketUsers), itob(u.ID), u); err != nil {
		return fmt.Errorf("put user %d: %w", u.ID, err)
	}
	return nil
}

// claimCard points cardNumber at userID, failing if another user holds it.
func (r *usersRepo) claimCard(cardNumber string, userID int64) error {
	cards := r.tx.Bucket(bucketCards)
	if v := cards.Get([]byte(cardNumber)); v != nil && btoi(v) != userID {
		return models.ErrCardNumberInUse
	}
	return cards.Put([]byte(cardNumber), itob(userID))
}

func (r *usersRepo) Create(_ context.Context, nickname string, cardNumber *string) (models.User, error) {
	id, err := nextID(r.tx.Bucket(bucketUsers))
	if err != nil {
		return models.User{}, err
	}
	if cardNumber != nil {
		if err := r.claimCard(*cardNumber, id); err != nil {
			return models.User{}, err
		}
	}
	ts := now()
	u := models.User{ID: id, Nickname: nickname, CardNumber: cardNumber, CreatedAt: ts, UpdatedAt: ts}
	return u, r.put(u)
}

func (r *usersRepo) GetByID(_ context.Context, id int64) (models.User, error) { return r.get(id) }

func (r *usersRepo) GetForUpdate(_ context.Context, id int64) (models.User, error) { return r.get(id) }

func (r *usersRepo) GetByCardNumber(_ context.Context, cardNumber string) (models.User, error) {
	v := r.tx.Bucket(bucketCards).Get([]byte(cardNumber))
	if v == nil {
		return models.User{}, models.ErrUserNotFound
	}
	return r.get(btoi(v))
}

func (r *usersRepo) List(_ context.Context) ([]models.User, error) {
	out := []models.User{}
	err := r.tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
		var u models.User
		if err := json.Unmarshal(v, &u); err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Nickname != out[j].Nickname {
			return out[i].Nickname < out[j].Nickname
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *usersRepo) UpdateProfile(_ context.Context, id int64, nickname string, cardNumber *string) (models.User, error) {
	u, err := r.get(id)
	if err != nil {
		return models.User{}, err
	}
	if cardNumber != nil {
		if err := r.claimCard(*cardNumber, id); err != nil {
			return models.User{}, err
		}
	}
	if u.CardNumber != nil && (cardNumber == nil || *cardNumber != *u.CardNumber) {
		if err := r.tx.Bucket(bucketCards).Delete([]byte(*u.CardNumber)); err != nil {
			return models.User{}, err
		}
	}
	u.Nickname = nickname
	u.CardNumber = cardNumber
	u.UpdatedAt = now()
	return u, r.put(u)
}

func (r *usersRepo) SetBalance(_ context.Context, id int64, balance models.Money) error {
	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.Balance = balance
	u.UpdatedAt = now()
	return r.put(u)
}
