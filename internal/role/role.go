package role

import (
	"sort"
	"time"

	roleDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/role"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
)

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rank        int       `json:"rank"`
	IsEditable  bool      `json:"is_editable"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Role) HasPermission(p string) bool {
	for _, perm := range r.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

func (r *Role) ToResponse() RoleResponse {
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Rank:        r.Rank,
		IsEditable:  r.IsEditable,
		Permissions: r.Permissions,
	}
}

func NewSystemRole(id string, spec rbac.RoleSpec) *Role {
	now := time.Now()
	return &Role{
		ID:          id,
		Name:        spec.Name,
		Rank:        spec.Rank,
		IsEditable:  false,
		Permissions: rbac.Strings(spec.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	perms := make([]roleDatamodel.RolePermission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, roleDatamodel.RolePermission{RoleID: r.ID, Permission: p})
	}
	return &roleDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Rank:        r.Rank,
		IsEditable:  r.IsEditable,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.Permission)
	}
	sort.Strings(perms)
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Rank:        r.Rank,
		IsEditable:  r.IsEditable,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func dedupe(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
