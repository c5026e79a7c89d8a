// Package gate decides whether a request may reach a page or API route.
//
// Route is the coarse gate in front of every page: it only checks that the
// session cookie is present and redirects to the login page otherwise.
// RequireAccess is the subscription gate: it resolves the caller's access
// and, when denied, redirects to the plans page, renders the blocked
// screen or answers 402 in JSON, depending on the mode.
package gate
