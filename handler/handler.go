package handler

import (
	"errors"
	"net/http"

	"github.com/profepj/profepj/pkg/binder"
)

// HandlerFunc is a typed handler: R is bound from the request before the
// call and the returned Response renders the result.
//
//	h := handler.HandlerFunc[handler.Context, CreatePotRequest](
//		func(ctx handler.Context, req CreatePotRequest) handler.Response {
//			pot, err := svc.CreatePot(ctx, firebase.UserID(ctx), req.Pot())
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(pot, handler.WithJSONStatus(http.StatusCreated))
//		},
//	)
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to an http.ResponseWriter. A render error goes to
// the configured ErrorHandler.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses HTTP requests into typed values.
type Bind func(r *http.Request, v any) error

// ErrorHandler handles errors from binding, rendering and JSONError
// responses.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc. The first decorator in a list is the
// outermost wrapper.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

// WrapOption configures the Wrap function.
type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders        []Bind
	errorHandler   ErrorHandler[C]
	contextFactory func(http.ResponseWriter, *http.Request) C
	decorators     []Decorator[C, R]
}

// WithBinder replaces the binders with b.
func WithBinder[C Context, R any](b Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if b != nil {
			c.binders = []Bind{b}
		}
	}
}

// WithBinders appends binders, applied in order. Each binder handles only
// its own struct tags:
//
//	handler.WithBinders[handler.Context, CompleteLessonRequest](
//		binder.Path(chi.URLParam),
//		binder.JSON(),
//	)
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.binders = append(c.binders, binders...)
	}
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if f != nil {
			c.contextFactory = f
		}
	}
}

// WithDecorators appends decorators; the first is the outermost.
func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// defaultErrorHandler renders the JSON error body without logging.
func defaultErrorHandler[C Context](ctx C, err error) {
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc. Binding errors
// map to 400 (415 for a wrong content type) through the error handler.
//
//	r.Post("/create-checkout", handler.Wrap(h.createCheckout,
//		handler.WithBinders[handler.Context, checkoutRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, checkoutRequest](errHandler),
//	))
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		errorHandler: defaultErrorHandler[C],
	}

	cfg.contextFactory = func(w http.ResponseWriter, r *http.Request) C {
		if c, ok := any(NewContext(w, r)).(C); ok {
			return c
		}
		panic("handler: custom context type requires WithContextFactory")
	}

	for _, opt := range opts {
		opt(cfg)
	}

	finalHandler := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		finalHandler = cfg.decorators[i](finalHandler)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := cfg.contextFactory(w, r)

		var req R

		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				if errors.Is(err, binder.ErrBinderNotApplicable) {
					continue
				}
				cfg.errorHandler(ctx, bindingError(err))
				return
			}
		}

		response := finalHandler(ctx, req)
		if response == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if errResp, ok := response.(errorResponse); ok {
			cfg.errorHandler(ctx, errResp.err)
			return
		}
		if err := response.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}

// bindingError tags binder failures with a client status.
func bindingError(err error) error {
	if errors.Is(err, binder.ErrUnsupportedMediaType) || errors.Is(err, binder.ErrMissingContentType) {
		return errors.Join(ErrUnsupportedMediaType.WithMessage(err.Error()), err)
	}
	return errors.Join(ErrBadRequest.WithMessage(err.Error()), err)
}
