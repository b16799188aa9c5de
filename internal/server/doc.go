// Package server provides HTTP routing, middleware, and the login callback
// handler for the CLI's browser-based sign-in flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Login Callback Handler
//
// [TokenHandler] receives the redirect at the end of a browser sign-in.
// The hosted login page redirects to localhost with the session tokens in
// the query string; the handler validates the state parameter (CSRF
// protection), builds the session token, and sends the result through a
// channel. It only processes one callback to prevent replay.
//
// # Current Usage
//
// When the user runs `auth login --browser`, a temporary HTTP server starts
// on localhost, the default browser opens the hosted login page, and the
// server shuts down after the callback delivers the session.
package server
