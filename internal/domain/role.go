package domain

// Role is the privilege level an actor holds on a workspace. Roles are
// ordered by convention (Manager > Contributor > Viewer) but authorization
// never compares them ordinally; the policy engine matches permission
// patterns per role instead.
type Role string

const (
	RoleManager     Role = "Manager"
	RoleContributor Role = "Contributor"
	RoleViewer      Role = "Viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleContributor, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
