package records

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/profepj/profepj/handler"
	"github.com/profepj/profepj/pkg/binder"
)

// wrap binds path parameters only.
func wrap[R any](s *Service, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}

// wrapJSON binds path parameters and the JSON body.
func wrapJSON[R any](s *Service, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.Path(chi.URLParam), binder.JSON()),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}

// wrapQuery binds query parameters.
func wrapQuery[R any](s *Service, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.Query()),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}
