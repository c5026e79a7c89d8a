package binder

import (
	"fmt"
	"net/http"
)

// Path binds fields tagged `path:"name"` using the router's extractor,
// e.g. binder.Path(chi.URLParam).
func Path(extractor func(r *http.Request, key string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrInvalidPath)
		}

		fields, err := taggedFields(v, "path", ErrInvalidPath)
		if err != nil {
			return err
		}

		values := make(map[string][]string, len(fields))
		for _, name := range fields {
			if value := extractor(r, name); value != "" {
				values[name] = []string{value}
			}
		}
		return bindToStruct(v, "path", values, ErrInvalidPath)
	}
}
