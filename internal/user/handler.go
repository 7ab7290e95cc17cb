package user

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/opsboard/internal"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/internal/visibility"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, actor *coreuser.Principal, view visibility.View, query string) ([]*User, error)
	Get(ctx context.Context, actor *coreuser.Principal, id string) (*User, error)
	Create(ctx context.Context, actor *coreuser.Principal, dto *CreateUserDTO) (*User, error)
	Update(ctx context.Context, actor *coreuser.Principal, id string, dto *UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, actor *coreuser.Principal, id string) error
	SetPlanningScore(ctx context.Context, actor *coreuser.Principal, id string, dto *PlanningScoreDTO) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

type meResponse struct {
	*User
	Permissions []string `json:"permissions"`
	Rank        int      `json:"rank"`
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetByID(r.Context(), actor.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByID failed", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, meResponse{User: u, Permissions: actor.Permissions, Rank: actor.Rank})
}

// ListUsers handles GET /users?view=&q=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	view, err := visibility.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationFieldError("view", err.Error(), internal.ErrCodeValidationFailed))
		return
	}

	users, err := h.Service.List(r.Context(), actor, view, r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users, View: string(view)})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	u, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.Create(r.Context(), actor, &dto)
	if err != nil {
		h.Logger.Warn("CreateUser: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto UpdateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.Update(r.Context(), actor, chi.URLParam(r, "id"), &dto)
	if err != nil {
		h.Logger.Warn("UpdateUser: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.Logger.Warn("DeleteUser: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPlanningScore(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto PlanningScoreDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.SetPlanningScore(r.Context(), actor, chi.URLParam(r, "id"), &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
