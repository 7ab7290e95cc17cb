package role

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]*Role, error)
	Permissions() []string
	Create(ctx context.Context, actor *coreuser.Principal, dto *CreateRoleDTO) (*Role, error)
	Update(ctx context.Context, actor *coreuser.Principal, id string, dto *UpdateRoleDTO) (*Role, error)
	Delete(ctx context.Context, actor *coreuser.Principal, id string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := RolesResponse{Roles: make([]RoleResponse, 0, len(roles))}
	for _, rl := range roles {
		resp.Roles = append(resp.Roles, rl.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: h.Service.Permissions()})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	rl, err := h.Service.Create(r.Context(), actor, &dto)
	if err != nil {
		h.Logger.Warn("CreateRole: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rl.ToResponse())
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto UpdateRoleDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	rl, err := h.Service.Update(r.Context(), actor, chi.URLParam(r, "id"), &dto)
	if err != nil {
		h.Logger.Warn("UpdateRole: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rl.ToResponse())
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.Logger.Warn("DeleteRole: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
