package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/strichliste-backend/internal/api/httpx"
	"github.com/baharkarakas/strichliste-backend/internal/api/validate"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

type UserHandler struct {
	Users *services.UserService
	View  Presenter
}

func NewUserHandler(us *services.UserService, view Presenter) *UserHandler {
	return &UserHandler{Users: us, View: view}
}

type userReq struct {
	Nickname   string `json:"nickname"`
	CardNumber string `json:"card_number"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.users(users))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return
	}
	u, err := h.Users.Create(r.Context(), req.Nickname, req.CardNumber)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.View.user(u))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.user(u))
}

// Update replaces nickname and card number in one step, as the settings page does.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req userReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		return
	}
	u, err := h.Users.Update(r.Context(), id, req.Nickname, req.CardNumber)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.user(u))
}

func (h *UserHandler) ByCard(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByCardNumber(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	if u == nil {
		httpx.WriteDomainError(w, models.ErrUserNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.user(*u))
}

func (h *UserHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":           u.ID,
		"balance":           u.Balance,
		"balance_formatted": h.View.Format.Format(u.Balance),
	})
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, ferr := validate.ID(param, chi.URLParam(r, param))
	if ferr != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid path parameter", validate.Errs{*ferr})
		return 0, false
	}
	return id, true
}
