package dashboard

import (
	"context"
	"net/http"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/transport"
)

type ServiceAPI interface {
	Summary(ctx context.Context, actor *coreuser.Principal, r Range) (Summary, error)
	Leaderboard(ctx context.Context, actor *coreuser.Principal, r Range) ([]LeaderboardEntry, error)
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

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(r.Context(), actor, rng)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}
	rng, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.Leaderboard(r.Context(), actor, rng)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries})
}

func (h *Handler) parseRange(w http.ResponseWriter, r *http.Request) (Range, bool) {
	from, err := h.ParseDateParam(r, "from")
	if err != nil {
		h.HandleServiceError(w, err)
		return Range{}, false
	}
	to, err := h.ParseDateParam(r, "to")
	if err != nil {
		h.HandleServiceError(w, err)
		return Range{}, false
	}
	return Range{From: from, To: to}, true
}
