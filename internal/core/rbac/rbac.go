// Package rbac holds the fixed role and permission tables shared by every
// module that makes an authorization decision.
package rbac

import "sort"

const (
	RoleAdmin      = "Admin"
	RoleManager    = "Manager"
	RoleSupervisor = "Supervisor"
	RoleTeamMember = "Team Member"
)

const (
	RankAdmin      = 100
	RankManager    = 80
	RankSupervisor = 50
	RankTeamMember = 10
)

type Permission string

const (
	PermDashboardView    Permission = "dashboard.view"
	PermTasksCreate      Permission = "tasks.create"
	PermTasksApprove     Permission = "tasks.approve"
	PermTasksViewAll     Permission = "tasks.view_all"
	PermUsersView        Permission = "users.view"
	PermUsersManage      Permission = "users.manage"
	PermRolesManage      Permission = "roles.manage"
	PermPerformanceView  Permission = "performance.view"
	PermPlanningScore    Permission = "planning.score"
	PermAchievementsView Permission = "achievements.view"
	PermReportsView      Permission = "reports.view"
	PermInventoryManage  Permission = "inventory.manage"
	PermIncidentsManage  Permission = "incidents.manage"
	PermManpowerManage   Permission = "manpower.manage"
	PermVehiclesManage   Permission = "vehicles.manage"
)

var AllPermissions = []Permission{
	PermDashboardView,
	PermTasksCreate,
	PermTasksApprove,
	PermTasksViewAll,
	PermUsersView,
	PermUsersManage,
	PermRolesManage,
	PermPerformanceView,
	PermPlanningScore,
	PermAchievementsView,
	PermReportsView,
	PermInventoryManage,
	PermIncidentsManage,
	PermManpowerManage,
	PermVehiclesManage,
}

var permissionSet = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(AllPermissions))
	for _, p := range AllPermissions {
		m[p] = struct{}{}
	}
	return m
}()

func ValidPermission(p string) bool {
	_, ok := permissionSet[Permission(p)]
	return ok
}

// RoleSpec describes a built-in role as it is seeded.
type RoleSpec struct {
	Name        string
	Rank        int
	Permissions []Permission
}

var SystemRoles = []RoleSpec{
	{
		Name:        RoleAdmin,
		Rank:        RankAdmin,
		Permissions: AllPermissions,
	},
	{
		Name: RoleManager,
		Rank: RankManager,
		Permissions: []Permission{
			PermDashboardView, PermTasksCreate, PermTasksApprove, PermTasksViewAll,
			PermUsersView, PermUsersManage, PermPerformanceView, PermPlanningScore,
			PermAchievementsView, PermReportsView, PermInventoryManage,
			PermIncidentsManage, PermManpowerManage, PermVehiclesManage,
		},
	},
	{
		Name: RoleSupervisor,
		Rank: RankSupervisor,
		Permissions: []Permission{
			PermDashboardView, PermTasksCreate, PermTasksApprove, PermUsersView,
			PermPerformanceView, PermPlanningScore, PermAchievementsView,
			PermIncidentsManage, PermManpowerManage,
		},
	},
	{
		Name: RoleTeamMember,
		Rank: RankTeamMember,
		Permissions: []Permission{
			PermDashboardView, PermPerformanceView, PermAchievementsView,
		},
	},
}

func SystemRole(name string) (RoleSpec, bool) {
	for _, r := range SystemRoles {
		if r.Name == name {
			return r, true
		}
	}
	return RoleSpec{}, false
}

func IsSystemRole(name string) bool {
	_, ok := SystemRole(name)
	return ok
}

// Elevated reports whether the role sees the whole organization.
func Elevated(role string) bool {
	return role == RoleAdmin || role == RoleManager
}

// Strings returns the permissions sorted, as stored and rendered.
func Strings(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
