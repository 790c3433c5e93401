package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/repository"
)

func TestWrapConflictCodes(t *testing.T) {
	for _, code := range []string{codeSerializationFail, codeDeadlockDetected, codeLockNotAvailable} {
		err := wrap("op", &pgconn.PgError{Code: code})
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("code %s: expected ErrConflict, got %v", code, err)
		}
	}
	err := wrap("op", &pgconn.PgError{Code: codeUniqueViolation})
	if errors.Is(err, repository.ErrConflict) {
		t.Fatalf("unique violation must not be a conflict: %v", err)
	}
}

func TestNotFound(t *testing.T) {
	if err := notFound("get", pgx.ErrNoRows, models.ErrUserNotFound); err != models.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := notFound("get", fmt.Errorf("wrapped: %w", pgx.ErrNoRows), models.ErrArticleNotFound); err != models.ErrArticleNotFound {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
	boom := errors.New("boom")
	if err := notFound("get", boom, models.ErrUserNotFound); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
