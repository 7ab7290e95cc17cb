package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/auth"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/dashboard"
	"github.com/frahmantamala/opsboard/internal/notification"
	"github.com/frahmantamala/opsboard/internal/role"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
	"github.com/frahmantamala/opsboard/internal/transport"
	"github.com/frahmantamala/opsboard/internal/user"
	"github.com/frahmantamala/opsboard/internal/visibility"
)

// tokenAuth treats the bearer token as the user id.
type tokenAuth struct {
	principals map[string]*coreuser.Principal
}

func (a *tokenAuth) Authenticate(ctx context.Context, dto auth.LoginDTO) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, internal.ErrInvalidCredentials
}

func (a *tokenAuth) RefreshTokens(ctx context.Context, refreshToken string) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, internal.ErrInvalidToken
}

func (a *tokenAuth) Logout(ctx context.Context, actorID, refreshToken string) error {
	return nil
}

func (a *tokenAuth) ValidateAccessToken(token string) (*auth.Claims, error) {
	if _, ok := a.principals[token]; !ok {
		return nil, internal.ErrInvalidToken
	}
	return &auth.Claims{UserID: token, Type: auth.TokenTypeAccess}, nil
}

func (a *tokenAuth) PrincipalFor(ctx context.Context, userID string) (*coreuser.Principal, error) {
	return a.principals[userID], nil
}

type staticDirectory struct {
	users []coreuser.User
}

func (d *staticDirectory) All(ctx context.Context) ([]coreuser.User, error) {
	return d.users, nil
}

func principalOf(id, roleName string, supervisor *string) *coreuser.Principal {
	spec, _ := rbac.SystemRole(roleName)
	return &coreuser.Principal{
		User:        coreuser.User{ID: id, Name: id, Role: roleName, SupervisorID: supervisor},
		Rank:        spec.Rank,
		Permissions: rbac.Strings(spec.Permissions),
	}
}

var _ = Describe("RegisterAllRoutes", func() {
	var (
		db     *gorm.DB
		router chi.Router
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&taskDatamodel.Task{})).To(Succeed())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		sup := "S"
		principals := map[string]*coreuser.Principal{
			"S": principalOf("S", rbac.RoleSupervisor, nil),
			"A": principalOf("A", rbac.RoleTeamMember, &sup),
			"C": principalOf("C", rbac.RoleTeamMember, nil),
		}
		dir := &staticDirectory{}
		for _, id := range []string{"S", "A", "C"} {
			dir.users = append(dir.users, principals[id].User)
		}

		authz, err := role.NewSystemAuthorizer(slogger)
		Expect(err).NotTo(HaveOccurred())

		base := transport.NewBaseHandler(slogger)
		taskService := task.NewService(taskPostgres.NewTaskRepository(db), dir,
			visibility.NewResolver(visibility.ModeDirect, 0), nil, slogger)

		router = chi.NewRouter()
		Expect(RegisterAllRoutes(router, Handlers{
			Auth:         auth.NewHandler(base, &tokenAuth{principals: principals}),
			User:         user.NewHandler(base, nil),
			Role:         role.NewHandler(base, nil),
			Task:         task.NewHandler(base, taskService),
			Dashboard:    dashboard.NewHandler(base, nil),
			Notification: notification.NewHandler(base, nil),
		}, Options{
			DB:         sqlDB,
			Logger:     slogger,
			Authorizer: authz,
			LoginRate:  "10-M",
		})).To(Succeed())
	})

	pendingTask := func() string {
		assignee, creator := "A", "S"
		row := &taskDatamodel.Task{
			ID:         "t-1",
			Title:      "Check generator fuel",
			AssigneeID: &assignee,
			CreatorID:  &creator,
			DueDate:    time.Now().Add(48 * time.Hour),
			Priority:   string(task.PriorityHigh),
			Status:     string(task.StatusPendingApproval),
			Version:    1,
		}
		Expect(db.Create(row).Error).To(Succeed())
		return row.ID
	}

	patch := func(path, token, body string) (int, string) {
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		return w.Code, resp.Error.Code
	}

	It("reports self approval by the assignee on both approve routes", func() {
		id := pendingTask()

		code, errCode := patch("/api/v1/tasks/"+id+"/approve", "A", "{}")
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(errCode).To(Equal(string(internal.ErrCodeSelfApprovalForbidden)))

		code, errCode = patch("/api/v1/tasks/"+id+"/status", "A", `{"status":"Completed"}`)
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(errCode).To(Equal(string(internal.ErrCodeSelfApprovalForbidden)))
	})

	It("reports self rejection by the assignee", func() {
		id := pendingTask()
		code, errCode := patch("/api/v1/tasks/"+id+"/reject", "A", `{"comment":"nope"}`)
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(errCode).To(Equal(string(internal.ErrCodeSelfApprovalForbidden)))
	})

	It("forbids an outsider and lets the creator approve", func() {
		id := pendingTask()

		code, errCode := patch("/api/v1/tasks/"+id+"/approve", "C", "{}")
		Expect(code).To(Equal(http.StatusForbidden))
		Expect(errCode).To(Equal(string(internal.ErrCodeForbidden)))

		code, _ = patch("/api/v1/tasks/"+id+"/approve", "S", "{}")
		Expect(code).To(Equal(http.StatusOK))
	})

	It("rejects requests without a token", func() {
		id := pendingTask()
		code, _ := patch("/api/v1/tasks/"+id+"/approve", "", "{}")
		Expect(code).To(Equal(http.StatusUnauthorized))
	})
})
