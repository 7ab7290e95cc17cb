package role

import (
	"github.com/frahmantamala/opsboard/internal/core/common/validation"
)

type CreateRoleDTO struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Rank        int      `json:"rank" validate:"required,gte=1"`
	Permissions []string `json:"permissions" validate:"dive,permission"`
}

func (d *CreateRoleDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Rank        *int     `json:"rank,omitempty" validate:"omitempty,gte=1"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
}

func (d *UpdateRoleDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Rank        int      `json:"rank"`
	IsEditable  bool     `json:"is_editable"`
	Permissions []string `json:"permissions"`
}

type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}

type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}
