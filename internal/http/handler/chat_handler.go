package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/http/middleware"
	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type postNoteRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	notes, err := h.chat.Recent(r.Context(), limit)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load notes", nil)
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"notes": notes})
}

func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	role, ok := middleware.ResolveActor(w, r, req.Role)
	if !ok {
		return
	}
	note, err := h.chat.Post(r.Context(), role, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyNote):
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "note text is empty", nil)
		case errors.Is(err, service.ErrNoteTooLong):
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "note text is too long", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "could not store note", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, note)
}
