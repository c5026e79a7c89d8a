package handler

import (
	"log/slog"
	"net/http"

	"github.com/profepj/profepj/pkg/logger"
)

// NewJSONErrorHandler logs the error (warn for 4xx, error for 5xx) and
// renders the JSON error body. Configure it once in main and pass it to
// every service.
func NewJSONErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		resp := JSONError(err)
		status := StatusOf(err)

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Event("render_error"),
			)
		}
	}
}

// WriteError renders err as JSON outside of a typed handler, e.g. from
// middleware.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	_ = JSONError(err).Render(w, r)
}
