package testutil

import (
	"net/http"
	"time"

	"libris/pkg/domain"
	"libris/pkg/requestcontext"
)

// WithStaff adds a staff actor and roles to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithStaff(req *http.Request, actorID domain.UserID, roles ...domain.Role) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithRoles(ctx, roles...)
	return req.WithContext(ctx)
}

// WithFrozenTime pins the request-scoped clock, the way the request-time
// middleware would at the start of a request.
func WithFrozenTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
