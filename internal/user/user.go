package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	SupervisorID  *string   `json:"supervisor_id,omitempty"`
	ProjectID     *string   `json:"project_id,omitempty"`
	PlanningScore int       `json:"planning_score"`
	PasswordHash  string    `json:"-"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) ToCore() coreuser.User {
	return coreuser.User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		SupervisorID:  u.SupervisorID,
		ProjectID:     u.ProjectID,
		PlanningScore: u.PlanningScore,
		PasswordHash:  u.PasswordHash,
		Version:       u.Version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func FromCore(u coreuser.User) *User {
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		SupervisorID:  u.SupervisorID,
		ProjectID:     u.ProjectID,
		PlanningScore: u.PlanningScore,
		PasswordHash:  u.PasswordHash,
		Version:       u.Version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		SupervisorID:  u.SupervisorID,
		ProjectID:     u.ProjectID,
		PlanningScore: u.PlanningScore,
		Version:       u.Version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		SupervisorID:  u.SupervisorID,
		ProjectID:     u.ProjectID,
		PlanningScore: u.PlanningScore,
		Version:       u.Version,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toCoreSlice(rows []*userDatamodel.User) []coreuser.User {
	out := make([]coreuser.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r).ToCore())
	}
	return out
}
