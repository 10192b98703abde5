// Package auth maps a presented credential to a role and gates HTTP routes
// on it.
//
// There are no users or sessions. The server is configured with two shared
// secrets, one for admins and one for agents, and every request carries at
// most one credential string. Gate.Resolve is a pure function of that
// credential and the two secrets.
package auth

// Role is the authorization level derived from a credential.
// Roles are ordered: RoleAdmin can do everything RoleAgent can.
type Role int

const (
	RoleNone Role = iota
	RoleAgent
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleAgent:
		return "agent"
	default:
		return "none"
	}
}

// Gate holds the configured secrets.
type Gate struct {
	admin Secret
	agent Secret
}

// NewGate builds a gate from the raw secret strings (plain or bcrypt).
// An empty secret disables that role.
func NewGate(adminSecret, agentSecret string) *Gate {
	return &Gate{
		admin: ParseSecret(adminSecret),
		agent: ParseSecret(agentSecret),
	}
}

// Resolve returns the role for credential. The admin secret is checked first,
// so if both secrets were set to the same value the caller is an admin.
func (g *Gate) Resolve(credential string) Role {
	if credential == "" {
		return RoleNone
	}
	if g.admin.Matches(credential) {
		return RoleAdmin
	}
	if g.agent.Matches(credential) {
		return RoleAgent
	}
	return RoleNone
}

// Configured reports which roles can be reached at all.
func (g *Gate) Configured() (admin, agent bool) {
	return g.admin.Configured(), g.agent.Configured()
}
