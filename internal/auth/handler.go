package auth

import (
	"net/http"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/pkg/logger"
)

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

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Info("token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Logout expects an authenticated request; the body is optional.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto LogoutDTO
	if r.ContentLength != 0 && !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.Logout(r.Context(), actor.ID, dto.RefreshToken); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuthMiddleware resolves the bearer token into a principal on the request
// context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Debug("token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		principal, err := h.Service.PrincipalFor(r.Context(), claims.UserID)
		if err != nil {
			h.Logger.Warn("failed to resolve principal", "user_id", claims.UserID, "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.ID, "role", principal.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
