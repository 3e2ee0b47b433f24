package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Identity
// ═══════════════════════════════════════════════════════════════════════════

// Role of an authenticated user.
type Role string

const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleAdministrator Role = "administrator"
	// RoleDeveloper may run destructive maintenance such as attendance rollback.
	RoleDeveloper Role = "developer"
)

// ParseRole normalizes a role name. Unknown roles return false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleAdministrator, RoleDeveloper:
		return r, true
	case "admin":
		return RoleAdministrator, true
	default:
		return "", false
	}
}

// Identity is the caller as resolved by the authentication layer.
// StudentID and TeacherID point at the caller's profile rows, when present.
type Identity struct {
	UserID    int64
	Role      Role
	Name      string
	StudentID *int64
	TeacherID *int64
}

// IsAdministrator reports whether the caller acts as an administrator.
func (i Identity) IsAdministrator() bool {
	return i.Role == RoleAdministrator || i.Role == RoleDeveloper
}

// HasRole reports whether the caller holds one of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the page size clamped to [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	return Pagination{Page: page, PageSize: Pagination{PageSize: pageSize}.Limit()}
}

// ═══════════════════════════════════════════════════════════════════════════
// Small helpers
// ═══════════════════════════════════════════════════════════════════════════

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Deref returns *p or the zero value.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
