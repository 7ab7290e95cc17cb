package notification

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, actor *coreuser.Principal, unreadOnly bool) (*NotificationsResponse, error)
	MarkRead(ctx context.Context, actor *coreuser.Principal, id string) (*Notification, error)
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

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	resp, err := h.Service.List(r.Context(), actor, unreadOnly)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	n, err := h.Service.MarkRead(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, n)
}
