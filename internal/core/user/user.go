package user

import "time"

// User is the domain view of an account shared by visibility, tasks and auth.
type User struct {
	ID            string
	Email         string
	Name          string
	Role          string
	SupervisorID  *string
	ProjectID     *string
	PlanningScore int
	PasswordHash  string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) ReportsTo(id string) bool {
	return u.SupervisorID != nil && *u.SupervisorID == id
}

// Principal is the authenticated user plus the resolved permission set of
// their role.
type Principal struct {
	User
	Rank        int
	Permissions []string
}

func (p *Principal) Can(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}
