package auth

import (
	"slices"
	"strings"
)

// Role is a staff role tag carried in bearer tokens.
type Role string

const (
	RoleAgent         Role = "agent"
	RoleAuthenticator Role = "authenticator"
	RoleAdmin         Role = "admin"
)

// KnownRoles lists every role the service understands.
var KnownRoles = []Role{RoleAgent, RoleAuthenticator, RoleAdmin}

// Roles is a deduplicated set of roles held by one actor. The zero value is
// the anonymous actor.
type Roles []Role

// ParseRoles lower-cases, trims and deduplicates raw role names. Unknown
// names are kept so that tokens minted for other services still round-trip;
// they simply never satisfy a policy check.
func ParseRoles(raw []string) Roles {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[Role]struct{}, len(raw))
	var out Roles
	for _, r := range raw {
		role := Role(strings.TrimSpace(strings.ToLower(r)))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// Has reports whether the set contains role.
func (rs Roles) Has(role Role) bool {
	return slices.Contains(rs, role)
}

// HasAny reports whether the set intersects roles.
func (rs Roles) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

func (rs Roles) IsAdmin() bool         { return rs.Has(RoleAdmin) }
func (rs Roles) IsAgent() bool         { return rs.Has(RoleAgent) }
func (rs Roles) IsAuthenticator() bool { return rs.Has(RoleAuthenticator) }

// IsStaff reports whether the actor holds any known role.
func (rs Roles) IsStaff() bool {
	return rs.HasAny(KnownRoles...)
}

// Strings returns the role names, e.g. for token claims.
func (rs Roles) Strings() []string {
	if len(rs) == 0 {
		return nil
	}
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
