package task_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/opsboard/internal"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/internal/visibility"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Task Handler Integration", func() {
	var (
		db     *gorm.DB
		router chi.Router
		actor  *coreuser.Principal
		users  map[string]*coreuser.Principal
	)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&taskDatamodel.Task{})).To(Succeed())

		sup := principal("S", rbac.RoleSupervisor)
		member := principal("A", rbac.RoleTeamMember)
		member.SupervisorID = ptr("S")
		users = map[string]*coreuser.Principal{"S": sup, "A": member}
		dir := &mockDirectory{users: []coreuser.User{sup.User, member.User}}

		service := task.NewService(taskPostgres.NewTaskRepository(db), dir,
			visibility.NewResolver(visibility.ModeDirect, 0), nil, slogger)
		handler := task.NewHandler(transport.NewBaseHandler(slogger), service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithPrincipal(r.Context(), actor)))
			})
		})
		router.Get("/tasks", handler.ListTasks)
		router.Post("/tasks", handler.CreateTask)
		router.Get("/tasks/{id}", handler.GetTask)
		router.Patch("/tasks/{id}/start", handler.StartTask)
		router.Patch("/tasks/{id}/submit", handler.SubmitTask)
		router.Patch("/tasks/{id}/approve", handler.ApproveTask)
		router.Patch("/tasks/{id}/reject", handler.RejectTask)
		router.Patch("/tasks/{id}/status", handler.MoveTask)
	})

	createTask := func() string {
		actor = users["S"]
		w := do(http.MethodPost, "/tasks", map[string]interface{}{
			"title":       "Check generator fuel",
			"assignee_id": "A",
			"due_date":    time.Now().Add(72 * time.Hour).Format(time.RFC3339),
			"priority":    "High",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created struct {
			ID           string `json:"id"`
			Status       string `json:"status"`
			StoredStatus string `json:"stored_status"`
			Version      int64  `json:"version"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		Expect(created.Status).To(Equal("To Do"))
		Expect(created.StoredStatus).To(Equal("To Do"))
		Expect(created.Version).To(Equal(int64(1)))
		return created.ID
	}

	It("runs a task through the whole approval flow", func() {
		id := createTask()

		actor = users["A"]
		Expect(do(http.MethodPatch, "/tasks/"+id+"/start", nil).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPatch, "/tasks/"+id+"/submit", map[string]string{}).Code).To(Equal(http.StatusOK))

		w := do(http.MethodPatch, "/tasks/"+id+"/approve", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeSelfApprovalForbidden)))

		actor = users["S"]
		w = do(http.MethodPatch, "/tasks/"+id+"/approve", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Task struct {
				Status string `json:"status"`
			} `json:"task"`
			Outcome task.Outcome `json:"outcome"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Task.Status).To(Equal("Completed"))
		Expect(resp.Outcome.Kind).To(Equal("Approved"))
		Expect(resp.Outcome.ActorID).To(Equal("S"))

		w = do(http.MethodPatch, "/tasks/"+id+"/approve", nil)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeAlreadyInState)))
	})

	It("requires a comment to reject", func() {
		id := createTask()
		actor = users["A"]
		Expect(do(http.MethodPatch, "/tasks/"+id+"/status", map[string]string{"status": "In Progress"}).Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPatch, "/tasks/"+id+"/status", map[string]string{"status": "Pending Approval"}).Code).To(Equal(http.StatusOK))

		actor = users["S"]
		w := do(http.MethodPatch, "/tasks/"+id+"/reject", map[string]string{})
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(http.MethodPatch, "/tasks/"+id+"/reject", map[string]string{"comment": "photos are blurry"})
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("returns 409 for a stale version", func() {
		id := createTask()
		actor = users["A"]
		w := do(http.MethodPatch, "/tasks/"+id+"/start", map[string]int64{"version": 7})
		Expect(w.Code).To(Equal(http.StatusConflict))

		var body errorBody
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeVersionConflict)))
	})

	It("returns 404 for unknown tasks", func() {
		actor = users["S"]
		Expect(do(http.MethodGet, "/tasks/nope", nil).Code).To(Equal(http.StatusNotFound))
	})

	It("returns 400 for a missing title", func() {
		actor = users["S"]
		w := do(http.MethodPost, "/tasks", map[string]interface{}{
			"due_date": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("lists with a status filter and rejects unknown statuses", func() {
		createTask()
		w := do(http.MethodGet, "/tasks?status=To%20Do", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var list task.TasksResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list.Tasks).To(HaveLen(1))

		w = do(http.MethodGet, "/tasks?status=Lost", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Details struct {
					Errors []internal.ValidationError `json:"errors"`
				} `json:"details"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(string(internal.ErrCodeValidationFailed)))
		Expect(body.Error.Details.Errors).To(HaveLen(1))
		Expect(body.Error.Details.Errors[0].Field).To(Equal("status"))
		Expect(body.Error.Details.Errors[0].Message).To(ContainSubstring("Pending Approval"))
	})
})
