// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value R that the configured
// binders fill from the path, query and JSON body, and returns a Response
// (JSON, JSONError, Empty, Redirect or Templ). Errors from binding and
// rendering, and errors returned as JSONError, go through an ErrorHandler;
// NewJSONErrorHandler logs them and writes {"error": "...", "code": "..."}.
package handler
