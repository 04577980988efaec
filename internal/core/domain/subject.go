package domain

import "errors"

// Role enumerates the roles a platform subject may hold.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleIssuer    Role = "issuer"
	RoleRecipient Role = "recipient"
)

// Valid reports whether the role is one of the known platform roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleIssuer, RoleRecipient:
		return true
	}
	return false
}

// RequiresVerification reports whether subjects holding the role must be
// verified before they can exercise privileged operations. Recipients are
// implicitly verified; issuers and admins go through an approval step.
func (r Role) RequiresVerification() bool {
	return r == RoleIssuer || r == RoleAdmin
}

// SubjectInfo captures the authorization facts for a single subject: the role
// it holds, whether it has passed verification, and the organization (tenant)
// it belongs to. OrgID is empty for admins and unaffiliated recipients.
type SubjectInfo struct {
	SubjectID string
	Role      Role
	Verified  bool
	OrgID     string
}

// Denial reasons surfaced to the transport layer. These are product-visible
// distinctions: the UI renders "log in", "wrong portal", and "await
// verification" differently.
var (
	// ErrNoSession indicates the request carried no resolvable session.
	ErrNoSession = errors.New("no session")
	// ErrSubjectNotFound indicates the session names a subject that no longer exists.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrRoleNotPermitted indicates the subject's role is outside the route's allowed set.
	ErrRoleNotPermitted = errors.New("role not permitted")
	// ErrNotVerified indicates the subject holds an allowed role but has not been verified.
	ErrNotVerified = errors.New("subject not verified")
)

// DenialReason is the machine-readable reason attached to a denied decision.
type DenialReason string

const (
	DenialNone             DenialReason = ""
	DenialNoSession        DenialReason = "no_session"
	DenialSubjectNotFound  DenialReason = "subject_not_found"
	DenialRoleNotPermitted DenialReason = "role_not_permitted"
	DenialNotVerified      DenialReason = "not_verified"
)

// AccessDecision is the outcome of evaluating a subject against a route's
// access policy. Subject is populated only when Allowed is true so downstream
// handlers never re-query what the pipeline already resolved.
type AccessDecision struct {
	Allowed bool
	Reason  DenialReason
	Subject *SubjectInfo
}

// Err maps the denial reason back to its sentinel error.
func (d AccessDecision) Err() error {
	switch d.Reason {
	case DenialNoSession:
		return ErrNoSession
	case DenialSubjectNotFound:
		return ErrSubjectNotFound
	case DenialRoleNotPermitted:
		return ErrRoleNotPermitted
	case DenialNotVerified:
		return ErrNotVerified
	}
	return nil
}
