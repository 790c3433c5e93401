package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/baharkarakas/strichliste-backend/internal/models"
)

const maxBodyBytes = 1 << 20

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

var statusByCode = map[string]int{
	models.CodeInvalidAmount:       http.StatusBadRequest,
	models.CodeInvalidMoney:        http.StatusBadRequest,
	models.CodeInvalidQuantity:     http.StatusBadRequest,
	models.CodeSelfTransfer:        http.StatusBadRequest,
	models.CodeInvalidNickname:     http.StatusBadRequest,
	models.CodeInvalidArticle:      http.StatusBadRequest,
	models.CodeAmountOverflow:      http.StatusUnprocessableEntity,
	models.CodeUserNotFound:        http.StatusNotFound,
	models.CodeArticleNotFound:     http.StatusNotFound,
	models.CodeTransactionNotFound: http.StatusNotFound,
	models.CodeCardNumberInUse:     http.StatusConflict,
	models.CodeAlreadyUndone:       http.StatusConflict,
	models.CodeNotReversible:       http.StatusConflict,
	models.CodeGracePeriodExpired:  http.StatusConflict,
	models.CodeStorageFailure:      http.StatusServiceUnavailable,
}

// WriteDomainError maps a ledger error to its status and stable code. Storage
// failures never expose the underlying cause to the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	code := models.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	if code == models.CodeStorageFailure {
		msg = "storage failure, please retry"
	}
	WriteError(w, status, code, msg, nil)
}

// DecodeJSON reads a single JSON object from the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, models.ErrInvalidMoney) || errors.Is(err, models.ErrAmountOverflow) {
			return err
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
