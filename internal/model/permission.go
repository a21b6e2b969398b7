// Package model defines domain entities for the application.
package model

// Perm is a bitmask of independent permission flags carried by every user.
type Perm int

// Permission flags. A mask of 0 grants nothing; flags combine with OR.
const (
	// PermUser grants basic authenticated access to the caller's own resources.
	PermUser Perm = 1 << 0
	// PermAdmin grants cross-tenant management access.
	PermAdmin Perm = 1 << 1
	// PermSuper is a reserved high bit used only by out-of-band provisioning
	// tooling. It implies both user and admin access.
	PermSuper Perm = 1 << 7
)

// Role is the access level a route or operation requires.
type Role int

const (
	// RoleNone requires only a verified identity.
	RoleNone Role = iota
	// RoleUser requires the user flag. Routes addressing a specific user
	// additionally accept the addressed user themself (see middleware).
	RoleUser
	// RoleAdmin requires the admin flag.
	RoleAdmin
)

// Has reports whether the mask contains the given flag.
func (p Perm) Has(flag Perm) bool {
	return p&flag != 0
}

// Allows reports whether a caller holding mask p satisfies the required role.
// Admin is a superset of user; the super flag is a superset of both.
// Pure and deterministic: no I/O, no state.
func (p Perm) Allows(required Role) bool {
	if p.Has(PermSuper) {
		return true
	}
	switch required {
	case RoleNone:
		return true
	case RoleUser:
		return p.Has(PermUser) || p.Has(PermAdmin)
	case RoleAdmin:
		return p.Has(PermAdmin)
	default:
		return false
	}
}

// Role returns the highest role the mask satisfies.
func (p Perm) Role() Role {
	switch {
	case p.Allows(RoleAdmin):
		return RoleAdmin
	case p.Allows(RoleUser):
		return RoleUser
	default:
		return RoleNone
	}
}

// String returns a short name for the role, used in logs and error messages.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}
