package domain

import "time"

// VerificationChangedEvent represents the payload for credential.subject.verification.changed messages.
type VerificationChangedEvent struct {
	EventID   string
	SubjectID string
	Verified  bool
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// RoleChangedEvent represents the payload for credential.subject.role.changed messages.
type RoleChangedEvent struct {
	EventID   string
	SubjectID string
	Role      Role
	ChangedAt time.Time
	ChangedBy string
	Metadata  map[string]any
}

// AdminBootstrappedEvent represents the payload for credential.platform.admin.bootstrapped messages.
type AdminBootstrappedEvent struct {
	EventID    string
	SubjectID  string
	PromotedAt time.Time
	Metadata   map[string]any
}
