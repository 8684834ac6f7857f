package testutil

import (
	"net/http"

	"givebridge/internal/platform/middleware"
	id "givebridge/pkg/domain"
)

// WithCaller attaches an authenticated caller to the request context, the way
// the auth middleware would for a valid bearer token.
func WithCaller(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	caller := middleware.Caller{
		UserID:    userID,
		Role:      role,
		SessionID: id.NewSessionID(),
	}
	return req.WithContext(middleware.WithCaller(req.Context(), caller))
}
