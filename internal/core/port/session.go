package port

import "context"

// SessionVerifier consumes the externally issued session credential. The core
// only asks two things of a session: does it verify, and which subject does it
// name. Token issuance, rotation, and revocation live in the identity
// provider, outside this service.
type SessionVerifier interface {
	SubjectFromToken(ctx context.Context, token string) (string, error)
}
