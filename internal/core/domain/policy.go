package domain

// PolicyKind distinguishes the access policy variants a route may declare.
type PolicyKind int

const (
	// PolicyPublic routes skip session resolution entirely.
	PolicyPublic PolicyKind = iota
	// PolicyAuthenticated routes require a session but perform no role lookup.
	PolicyAuthenticated
	// PolicyRequireRoles routes restrict access to a role set with the
	// verification gate explicitly waived.
	PolicyRequireRoles
	// PolicyRequireVerifiedRoles routes restrict access to a role set and
	// additionally require the subject to be verified when its role demands it.
	PolicyRequireVerifiedRoles
)

// AccessPolicy is the declarative per-route authorization metadata consumed by
// the pipeline. Routes declare exactly one policy; there is no implicit
// default that skips a gate.
type AccessPolicy struct {
	Kind  PolicyKind
	Roles []Role
}

// Public declares a route reachable without a session.
func Public() AccessPolicy {
	return AccessPolicy{Kind: PolicyPublic}
}

// Authenticated declares a route that requires a session but no role check.
func Authenticated() AccessPolicy {
	return AccessPolicy{Kind: PolicyAuthenticated}
}

// RequireRoles declares a role-gated route with the verification gate waived.
// The waiver is deliberate and per-route: e.g. an unverified issuer must be
// able to reach the create-organization endpoint exactly once, before
// verification can even be granted.
func RequireRoles(roles ...Role) AccessPolicy {
	return AccessPolicy{Kind: PolicyRequireRoles, Roles: roles}
}

// RequireVerifiedRoles declares a role-gated route that also enforces the
// verification gate for roles that require it.
func RequireVerifiedRoles(roles ...Role) AccessPolicy {
	return AccessPolicy{Kind: PolicyRequireVerifiedRoles, Roles: roles}
}

// NeedsRoleLookup reports whether evaluating the policy requires resolving
// subject info. Authenticated-only routes never touch the role cache.
func (p AccessPolicy) NeedsRoleLookup() bool {
	return p.Kind == PolicyRequireRoles || p.Kind == PolicyRequireVerifiedRoles
}

// EnforcesVerification reports whether the verification gate is active.
func (p AccessPolicy) EnforcesVerification() bool {
	return p.Kind == PolicyRequireVerifiedRoles
}

// AllowsRole reports whether the role is inside the policy's allowed set.
func (p AccessPolicy) AllowsRole(role Role) bool {
	for _, allowed := range p.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Evaluate applies the policy to resolved subject info and produces a
// decision. The caller handles session resolution and subject lookup; by the
// time Evaluate runs, info is non-nil.
func (p AccessPolicy) Evaluate(info *SubjectInfo) AccessDecision {
	if !p.NeedsRoleLookup() {
		return AccessDecision{Allowed: true, Subject: info}
	}

	if !p.AllowsRole(info.Role) {
		return AccessDecision{Allowed: false, Reason: DenialRoleNotPermitted}
	}

	if p.EnforcesVerification() && info.Role.RequiresVerification() && !info.Verified {
		return AccessDecision{Allowed: false, Reason: DenialNotVerified}
	}

	return AccessDecision{Allowed: true, Subject: info}
}
