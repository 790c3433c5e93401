package handlers

import (
	"net/http"

	"github.com/baharkarakas/strichliste-backend/internal/api/httpx"
	"github.com/baharkarakas/strichliste-backend/internal/models"
	"github.com/baharkarakas/strichliste-backend/internal/services"
)

type ArticleHandler struct {
	Articles *services.ArticleService
	View     Presenter
}

func NewArticleHandler(as *services.ArticleService, view Presenter) *ArticleHandler {
	return &ArticleHandler{Articles: as, View: view}
}

type articleReq struct {
	Name  string       `json:"name"`
	Price models.Money `json:"price"`
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Articles.List(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	out := make([]articleView, 0, len(items))
	for _, a := range items {
		out = append(out, h.View.article(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req articleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	a, err := h.Articles.Create(r.Context(), req.Name, req.Price)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.View.article(a))
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.Articles.Get(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.article(a))
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req articleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	a, err := h.Articles.Update(r.Context(), id, req.Name, req.Price)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.View.article(a))
}
