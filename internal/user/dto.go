package user

import (
	"strings"

	"github.com/frahmantamala/opsboard/internal/core/common/validation"
)

type CreateUserDTO struct {
	Name         string  `json:"name" validate:"required,min=1,max=120"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8,max=72"`
	Role         string  `json:"role" validate:"required"`
	SupervisorID *string `json:"supervisor_id,omitempty" validate:"omitempty,min=1"`
	ProjectID    *string `json:"project_id,omitempty"`
}

func (d *CreateUserDTO) Validate() error {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Name = strings.TrimSpace(d.Name)
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO changes only the fields that are set. An empty
// supervisor_id clears the supervisor.
type UpdateUserDTO struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Role         *string `json:"role,omitempty" validate:"omitempty,min=1"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
	ProjectID    *string `json:"project_id,omitempty"`
	Version      *int64  `json:"version,omitempty"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*d.Email))
		d.Email = &e
	}
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

type PlanningScoreDTO struct {
	Score   int    `json:"score"`
	Version *int64 `json:"version,omitempty"`
}

func (d *PlanningScoreDTO) Validate() error {
	if err := validation.ValidatePlanningScore(d.Score); err != nil {
		return err
	}
	return nil
}

type UsersResponse struct {
	Users []*User `json:"users"`
	View  string  `json:"view"`
}
