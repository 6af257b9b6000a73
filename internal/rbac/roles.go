package rbac

// Role names carried in access tokens. Keep these stable; they are part of the auth contract.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleMember     = "member"
	RoleViewer     = "viewer"
	RoleSuperAdmin = "super_admin"
)

// Managers may change tenant data (imports, rollup recomputation, agent provisioning).
var Managers = []string{RoleOwner, RoleAdmin}

// Readers may use every read-only surface.
var Readers = []string{RoleOwner, RoleAdmin, RoleMember, RoleViewer}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
