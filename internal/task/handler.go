package task

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/opsboard/internal"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/transport"
)

type ServiceAPI interface {
	Now() time.Time
	Create(ctx context.Context, actor *coreuser.Principal, dto *CreateTaskDTO) (*Task, error)
	Get(ctx context.Context, actor *coreuser.Principal, id string) (*Task, error)
	List(ctx context.Context, actor *coreuser.Principal, f ListFilter) ([]*Task, error)
	Start(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error)
	Submit(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error)
	Approve(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error)
	Reject(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error)
	Move(ctx context.Context, actor *coreuser.Principal, id string, dto *MoveDTO) (*Task, Command, error)
}

type transitionFunc func(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error)

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

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto CreateTaskDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	t, err := h.Service.Create(r.Context(), actor, &dto)
	if err != nil {
		h.Logger.Warn("CreateTask: service error", "error", err, "user_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t.ToResponse(h.Service.Now()))
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	t, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t.ToResponse(h.Service.Now()))
}

// ListTasks handles GET /tasks?status=&assignee_id=&from=&to=
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var f ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := ParseStatusField("status", raw, internal.ErrCodeValidationFailed)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		f.Status = st
	}
	f.AssigneeID = r.URL.Query().Get("assignee_id")

	var err error
	if f.DueFrom, err = h.ParseDateParam(r, "from"); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if f.DueTo, err = h.ParseDateParam(r, "to"); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tasks, err := h.Service.List(r.Context(), actor, f)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	now := h.Service.Now()
	resp := TasksResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, t.ToResponse(now))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, CommandStart, h.Service.Start)
}

func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, CommandSubmit, h.Service.Submit)
}

func (h *Handler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, CommandApprove, h.Service.Approve)
}

func (h *Handler) RejectTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, CommandReject, h.Service.Reject)
}

// MoveTask handles PATCH /tasks/{id}/status, the Kanban drop.
func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto MoveDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	t, cmd, err := h.Service.Move(r.Context(), actor, chi.URLParam(r, "id"), &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeTransition(w, t, cmd, actor.ID)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, cmd Command, fn transitionFunc) {
	actor, ok := h.Principal(w, r)
	if !ok {
		return
	}

	var dto TransitionDTO
	if r.ContentLength != 0 {
		if !h.DecodeJSON(w, r, &dto) {
			return
		}
	}

	t, err := fn(r.Context(), actor, chi.URLParam(r, "id"), &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeTransition(w, t, cmd, actor.ID)
}

func (h *Handler) writeTransition(w http.ResponseWriter, t *Task, cmd Command, actorID string) {
	h.WriteJSON(w, http.StatusOK, TransitionResponse{
		Task: t.ToResponse(h.Service.Now()),
		Outcome: Outcome{
			Kind:    OutcomeKind(cmd),
			TaskID:  t.ID,
			ActorID: actorID,
		},
	})
}
