package domain

import "testing"

func TestAccessPolicyEvaluate(t *testing.T) {
	issuer := &SubjectInfo{SubjectID: "s1", Role: RoleIssuer, Verified: false, OrgID: "org-1"}
	verifiedIssuer := &SubjectInfo{SubjectID: "s2", Role: RoleIssuer, Verified: true, OrgID: "org-1"}
	recipient := &SubjectInfo{SubjectID: "s3", Role: RoleRecipient}

	cases := []struct {
		name       string
		policy     AccessPolicy
		subject    *SubjectInfo
		allowed    bool
		wantReason DenialReason
	}{
		{"authenticated passes anyone", Authenticated(), issuer, true, DenialNone},
		{"role gate rejects wrong role", RequireVerifiedRoles(RoleAdmin), issuer, false, DenialRoleNotPermitted},
		{"verification gate rejects unverified issuer", RequireVerifiedRoles(RoleIssuer), issuer, false, DenialNotVerified},
		{"verification gate passes verified issuer", RequireVerifiedRoles(RoleIssuer), verifiedIssuer, true, DenialNone},
		{"waived gate passes unverified issuer", RequireRoles(RoleIssuer), issuer, true, DenialNone},
		{"recipient never hits verification gate", RequireVerifiedRoles(RoleRecipient), recipient, true, DenialNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := tc.policy.Evaluate(tc.subject)
			if decision.Allowed != tc.allowed {
				t.Fatalf("allowed = %v, want %v", decision.Allowed, tc.allowed)
			}
			if decision.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", decision.Reason, tc.wantReason)
			}
			if tc.allowed && decision.Subject != tc.subject {
				t.Fatalf("allowed decision must carry the resolved subject")
			}
		})
	}
}

func TestNeedsRoleLookup(t *testing.T) {
	if Authenticated().NeedsRoleLookup() {
		t.Fatal("authenticated-only policy must not trigger role lookup")
	}
	if Public().NeedsRoleLookup() {
		t.Fatal("public policy must not trigger role lookup")
	}
	if !RequireRoles(RoleIssuer).NeedsRoleLookup() {
		t.Fatal("role-gated policy requires lookup")
	}
}

func TestRoleRequiresVerification(t *testing.T) {
	if RoleRecipient.RequiresVerification() {
		t.Fatal("recipients are implicitly verified")
	}
	if !RoleIssuer.RequiresVerification() || !RoleAdmin.RequiresVerification() {
		t.Fatal("issuers and admins require verification")
	}
}
