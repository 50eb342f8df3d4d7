package models

import "sort"

// Role names recognised by the permission table.
const (
	RoleAdmin      = "admin"
	RoleDirection  = "direcao"
	RoleProfessor  = "professor"
	RoleSecretary  = "secretaria"
	RoleUser       = "user"
	DefaultNewRole = RoleUser
)

// Permission resources.
const (
	ResourceUsers       = "users"
	ResourceCourses     = "courses"
	ResourceSubjects    = "subjects"
	ResourceEvaluations = "evaluations"
	ResourceReports     = "reports"
	ResourceSystem      = "system"
)

// Permission actions.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionExport   = "export"
	ActionSettings = "settings"
)

// Role is a named bundle of permissions.
type Role struct {
	ID          string   `db:"id" json:"id"`
	Name        string   `db:"name" json:"name"`
	Permissions []string `db:"-" json:"permissions"`
}

// Permission is a `<resource>.<action>` capability.
type Permission struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Perm builds a permission string.
func Perm(resource, action string) string {
	return resource + "." + action
}

var crud = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// RolePermissions is the fixed role to permission table.
var RolePermissions = map[string][]string{
	RoleAdmin: allPermissions(),
	RoleDirection: join(
		[]string{Perm(ResourceUsers, ActionRead)},
		expand(ResourceCourses, ActionCreate, ActionRead, ActionUpdate),
		expand(ResourceSubjects, crud...),
		expand(ResourceEvaluations, crud...),
		expand(ResourceReports, ActionRead, ActionExport),
	),
	RoleSecretary: join(
		[]string{Perm(ResourceUsers, ActionRead)},
		expand(ResourceCourses, ActionRead),
		expand(ResourceSubjects, ActionRead),
		expand(ResourceEvaluations, crud...),
		expand(ResourceReports, ActionRead, ActionExport),
	),
	RoleProfessor: join(
		expand(ResourceCourses, ActionRead),
		expand(ResourceSubjects, ActionRead),
		expand(ResourceEvaluations, crud...),
		expand(ResourceReports, ActionRead),
	),
	RoleUser: join(
		expand(ResourceCourses, ActionRead),
		expand(ResourceSubjects, ActionRead),
		expand(ResourceEvaluations, ActionCreate, ActionRead, ActionUpdate, ActionDelete),
	),
}

// AllPermissions lists every known permission string, sorted.
func AllPermissions() []string {
	return allPermissions()
}

// RoleNames lists every known role, sorted.
func RoleNames() []string {
	names := make([]string, 0, len(RolePermissions))
	for name := range RolePermissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasPermission reports whether any of roles grants permission.
func HasPermission(roles []string, permission string) bool {
	for _, role := range roles {
		for _, p := range RolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

func allPermissions() []string {
	resources := []string{ResourceUsers, ResourceCourses, ResourceSubjects, ResourceEvaluations, ResourceReports, ResourceSystem}
	actions := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport, ActionSettings}
	out := make([]string, 0, len(resources)*len(actions))
	for _, r := range resources {
		out = append(out, expand(r, actions...)...)
	}
	sort.Strings(out)
	return out
}

func expand(resource string, actions ...string) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, Perm(resource, a))
	}
	return out
}

func join(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
