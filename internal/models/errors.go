package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrAmountOverflow      = errors.New("amount overflow")
	ErrInvalidMoney        = errors.New("invalid money value")
	ErrInvalidQuantity     = errors.New("quantity must be >= 1")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidNickname     = errors.New("nickname must not be empty")
	ErrArticleNotFound     = errors.New("article not found")
	ErrInvalidArticle      = errors.New("invalid article")
	ErrCardNumberInUse     = errors.New("card number already in use")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyUndone       = errors.New("transaction already undone")
	ErrNotReversible       = errors.New("transaction cannot be undone")
	ErrGracePeriodExpired  = errors.New("grace period expired")
	ErrStorageFailure      = errors.New("storage failure")
)

// StorageError wraps a failure of the underlying store. The operation has been
// rolled back entirely and must be retried from the start.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStorageFailure, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

var domainErrors = []error{
	ErrInvalidAmount, ErrAmountOverflow, ErrInvalidMoney, ErrInvalidQuantity, ErrSelfTransfer,
	ErrUserNotFound, ErrInvalidNickname, ErrArticleNotFound, ErrInvalidArticle, ErrCardNumberInUse,
	ErrTransactionNotFound, ErrAlreadyUndone, ErrNotReversible, ErrGracePeriodExpired,
}

// IsDomain reports whether err belongs to the ledger error taxonomy (anything but a storage failure).
func IsDomain(err error) bool {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// AsStorage passes domain errors and existing StorageErrors through and wraps everything else.
func AsStorage(op string, err error) error {
	if err == nil || IsDomain(err) || errors.Is(err, ErrStorageFailure) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

const (
	CodeInvalidAmount       = "invalid_amount"
	CodeAmountOverflow      = "amount_overflow"
	CodeInvalidMoney        = "invalid_money"
	CodeInvalidQuantity     = "invalid_quantity"
	CodeSelfTransfer        = "self_transfer"
	CodeUserNotFound        = "user_not_found"
	CodeInvalidNickname     = "invalid_nickname"
	CodeArticleNotFound     = "article_not_found"
	CodeInvalidArticle      = "invalid_article"
	CodeCardNumberInUse     = "card_number_in_use"
	CodeTransactionNotFound = "transaction_not_found"
	CodeAlreadyUndone       = "already_undone"
	CodeNotReversible       = "not_reversible"
	CodeGracePeriodExpired  = "grace_period_expired"
	CodeStorageFailure      = "storage_failure"
)

var codes = map[error]string{
	ErrInvalidAmount:       CodeInvalidAmount,
	ErrAmountOverflow:      CodeAmountOverflow,
	ErrInvalidMoney:        CodeInvalidMoney,
	ErrInvalidQuantity:     CodeInvalidQuantity,
	ErrSelfTransfer:        CodeSelfTransfer,
	ErrUserNotFound:        CodeUserNotFound,
	ErrInvalidNickname:     CodeInvalidNickname,
	ErrArticleNotFound:     CodeArticleNotFound,
	ErrInvalidArticle:      CodeInvalidArticle,
	ErrCardNumberInUse:     CodeCardNumberInUse,
	ErrTransactionNotFound: CodeTransactionNotFound,
	ErrAlreadyUndone:       CodeAlreadyUndone,
	ErrNotReversible:       CodeNotReversible,
	ErrGracePeriodExpired:  CodeGracePeriodExpired,
}

// Code returns the stable machine-readable kind of err. Anything outside the
// taxonomy is reported as a storage failure.
func Code(err error) string {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return codes[d]
		}
	}
	return CodeStorageFailure
}
