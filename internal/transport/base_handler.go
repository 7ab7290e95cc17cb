package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/opsboard/internal"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteAppError(w, &internal.AppError{
		Type:       errorTypeFor(status),
		Code:       internal.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))),
		Message:    message,
		StatusCode: status,
	})
}

// WriteAppError renders err as {"error": {...}} with its own status code.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err *internal.AppError) {
	status, body := err.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", status, "code", err.Code, "error", err)
	} else {
		h.Logger.Debug("http error", "status", status, "code", err.Code, "message", err.Message)
	}
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps any service error to a response. Unknown errors
// become a 500 without leaking their text.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		h.WriteAppError(w, appErr)
		return
	}
	h.WriteAppError(w, internal.NewInternalError("internal server error", err))
}

// DecodeJSON decodes the request body into dst, answering 400 on failure.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		h.WriteAppError(w, internal.NewValidationError("request body is required", internal.ErrCodeValidationFailed))
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		msg := "invalid request body"
		if errors.As(err, &syntaxErr) {
			msg = "malformed JSON in request body"
		}
		h.WriteAppError(w, internal.NewValidationError(msg, internal.ErrCodeValidationFailed))
		return false
	}
	return true
}

// Principal returns the authenticated caller or writes a 401.
func (h *BaseHandler) Principal(w http.ResponseWriter, r *http.Request) (*coreuser.Principal, bool) {
	p, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
		return nil, false
	}
	return p, true
}

// ParseDateParam reads an optional RFC3339 or YYYY-MM-DD query parameter.
func (h *BaseHandler) ParseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, internal.NewValidationFieldError(name, name+" must be RFC3339 or YYYY-MM-DD", internal.ErrCodeValidationFailed)
	}
	return t, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

func errorTypeFor(status int) internal.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return internal.ErrorTypeValidation
	case http.StatusUnauthorized:
		return internal.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return internal.ErrorTypeForbidden
	case http.StatusNotFound:
		return internal.ErrorTypeNotFound
	case http.StatusConflict:
		return internal.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return internal.ErrorTypeRateLimited
	default:
		return internal.ErrorTypeInternal
	}
}
