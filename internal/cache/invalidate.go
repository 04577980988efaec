package cache

import (
	"context"

	"go.uber.org/zap"
)

// Scope names the set of entries an invalidation targets: either one
// subject's per-id tag or a whole class-wide tag.
type Scope struct {
	tag string
}

// ForSubject scopes an invalidation to every entry about one subject.
func ForSubject(subjectID string) Scope {
	return Scope{tag: SubjectTag(subjectID)}
}

// ForClass scopes an invalidation to a class-wide tag such as TagSubjectInfo
// or TagAdminExists.
func ForClass(tag string) Scope {
	return Scope{tag: tag}
}

// Tag returns the tag the scope resolves to.
func (s Scope) Tag() string {
	return s.tag
}

// Dispatcher fans invalidation requests out to the entry store. The two entry
// points are deliberately distinct functions rather than one mode flag:
// InvalidateNow is only safe from code paths that run to completion before
// the triggering response is final, while InvalidateEventually is the one to
// call from any asynchronous or fire-and-forget write path, where blocking a
// response on a cold downstream read is unacceptable.
//
// Dispatch is best-effort: a failure leaves the affected entries riding out
// their tier until natural hard expiry and is never fatal to the calling
// mutation.
type Dispatcher struct {
	store  *Store
	logger *zap.Logger
}

// NewDispatcher wires the dispatcher to its entry store.
func NewDispatcher(store *Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, logger: logger}
}

// InvalidateNow synchronously recomputes every entry in scope before
// returning. Call sites are request-scoped mutation flows whose response must
// observe the new value (e.g. first-admin bootstrap).
func (d *Dispatcher) InvalidateNow(ctx context.Context, scope Scope) {
	if d.store == nil {
		return
	}
	if err := d.store.InvalidateTag(ctx, scope.tag, Immediate); err != nil {
		d.logger.Warn("immediate cache invalidation failed; entries ride out their tier",
			zap.String("tag", scope.tag),
			zap.Error(err),
		)
	}
}

// InvalidateEventually marks every entry in scope stale. The next read serves
// the old value and triggers the background refresh path.
func (d *Dispatcher) InvalidateEventually(ctx context.Context, scope Scope) {
	if d.store == nil {
		return
	}
	if err := d.store.InvalidateTag(ctx, scope.tag, Background); err != nil {
		d.logger.Warn("background cache invalidation failed; entries ride out their tier",
			zap.String("tag", scope.tag),
			zap.Error(err),
		)
	}
}
