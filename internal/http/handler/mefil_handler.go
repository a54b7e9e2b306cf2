package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/poetry-royal/mefil/internal/domain"
	"github.com/poetry-royal/mefil/internal/http/middleware"
	"github.com/poetry-royal/mefil/internal/http/response"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/repository"
	"github.com/poetry-royal/mefil/internal/service"
)

type MefilHandler struct {
	mefil *service.MefilService
}

func NewMefilHandler(mefil *service.MefilService) *MefilHandler {
	return &MefilHandler{mefil: mefil}
}

// actionRequest is the optional body of every mutating endpoint. A client may
// name its role explicitly; it must match the session.
type actionRequest struct {
	Role string `json:"role"`
}

type statusRequest struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}

func (h *MefilHandler) State(w http.ResponseWriter, r *http.Request) {
	view, err := h.mefil.State(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *MefilHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	status, err := domain.ParsePresenceStatus(req.Status)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unknown status", map[string]string{"status": req.Status})
		return
	}
	role, ok := middleware.ResolveActor(w, r, req.Role)
	if !ok {
		return
	}
	view, err := h.mefil.SetStatus(r.Context(), role, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *MefilHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.StartTimer)
}

func (h *MefilHandler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.PauseTimer)
}

func (h *MefilHandler) ResetTimer(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.ResetTimer)
}

func (h *MefilHandler) CompleteAttack(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.CompleteAttack)
}

func (h *MefilHandler) Attack(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.ManualAttack)
}

func (h *MefilHandler) Distracted(w http.ResponseWriter, r *http.Request) {
	h.roleAction(w, r, h.mefil.Distract)
}

func (h *MefilHandler) ResetQuest(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	if session != nil {
		observability.Audit(r, "quest.reset", "role", session.Role.String())
	}
	h.roleAction(w, r, h.mefil.ResetQuest)
}

func (h *MefilHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	events, err := h.mefil.RecentEvents(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.BattleEvent{}
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"events": events})
}

func (h *MefilHandler) roleAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, role domain.Role) (*service.SessionView, error)) {
	req, ok := decodeActionRequest(w, r)
	if !ok {
		return
	}
	role, ok := middleware.ResolveActor(w, r, req.Role)
	if !ok {
		return
	}
	view, err := action(r.Context(), role)
	if err != nil {
		writeServiceErrorWithState(w, r, err, view)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

// decodeActionRequest tolerates an empty body; the session already names the
// actor.
func decodeActionRequest(w http.ResponseWriter, r *http.Request) (actionRequest, bool) {
	var req actionRequest
	if r.Body == nil {
		return req, true
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return req, false
	}
	return req, true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceErrorWithState(w, r, err, nil)
}

func writeServiceErrorWithState(w http.ResponseWriter, r *http.Request, err error, view *service.SessionView) {
	var details any
	if view != nil {
		details = map[string]any{"state": view}
	}
	switch {
	case errors.Is(err, service.ErrTimerNotComplete):
		response.Error(w, r, http.StatusBadRequest, "TIMER_NOT_COMPLETE", "pomodoro session is not complete", details)
	case errors.Is(err, service.ErrQuestNotActive):
		response.Error(w, r, http.StatusBadRequest, "QUEST_NOT_ACTIVE", "quest is not active", details)
	case errors.Is(err, repository.ErrVersionConflict):
		response.Error(w, r, http.StatusConflict, "PERSISTENCE_ERROR", "state changed concurrently, retry", nil)
	case errors.Is(err, repository.ErrStoreUnavailable):
		response.Error(w, r, http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "state store unavailable", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected error", nil)
	}
}
