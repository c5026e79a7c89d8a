// Package firebase initialises the Firebase app and verifies Firebase ID
// tokens on incoming requests.
//
// Authenticate reads the token from the Authorization header and, when a
// cookie manager is configured, falls back to the session cookie. The
// verified uid and email are stored in the request context:
//
//	r.With(firebase.Authenticate(authClient, firebase.WithCookie(sessions)))
//	uid := firebase.UserID(r.Context())
package firebase
