// Package guard decides what a route should do for the current session:
// render, show a loading state, or redirect. It never performs the
// redirect itself.
package guard

import (
	"github.com/teranos/hirepanel/session"
)

// LoginPath is where unauthenticated users are sent
const LoginPath = "/login"

var dashboards = map[session.Role]string{
	session.RoleCandidate:  "/candidate/dashboard",
	session.RoleRecruiter:  "/recruiter/dashboard",
	session.RoleStaff:      "/internal-team/dashboard",
	session.RoleSuperadmin: "/superadmin/dashboard",
}

// DashboardFor returns the fixed dashboard path for role. Unknown roles get
// the candidate dashboard.
func DashboardFor(role session.Role) string {
	if path, ok := dashboards[role]; ok {
		return path
	}
	return dashboards[session.RoleCandidate]
}

// Decision is the outcome of a guard
type Decision struct {
	Render   bool
	Loading  bool
	Redirect string
	// ReturnTo is the path to come back to after login
	ReturnTo string
}

// Redirected reports whether the decision is a redirect
func (d Decision) Redirected() bool {
	return d.Redirect != ""
}

// Protected guards a route that needs a session, optionally of a specific
// role. An empty requiredRole accepts any logged-in user.
func Protected(state session.State, path string, requiredRole session.Role) Decision {
	switch {
	case state.Checking:
		return Decision{Loading: true}
	case !state.LoggedIn:
		return Decision{Redirect: LoginPath, ReturnTo: path}
	case requiredRole != "" && state.Role != requiredRole:
		return Decision{Redirect: DashboardFor(state.Role)}
	}
	return Decision{Render: true}
}

// PublicOnly guards login and registration screens
func PublicOnly(state session.State) Decision {
	switch {
	case state.Checking:
		return Decision{Loading: true}
	case state.LoggedIn:
		return Decision{Redirect: DashboardFor(state.Role)}
	}
	return Decision{Render: true}
}
