package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/profepj/profepj/pkg/validator"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status  int
	body    any
	headers http.Header
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	for k, vs := range j.headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONHeader adds a response header.
func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Add(key, value)
	}
}

// JSON writes v as the response body, unwrapped, with status 200.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: v}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError writes {"error": message, "code": key}. HTTPError and
// validator.ValidationErrors pick the status; anything else is a 500 with a
// generic message. Returned from a handler wrapped by Wrap, the error goes
// to the configured ErrorHandler, which logs and renders it.
func JSONError(err error) Response {
	if err == nil {
		err = ErrInternalServerError
	}
	return errorResponse{err: err}
}

type errorResponse struct {
	err error
}

func (e errorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	status, body := errorToBody(e.err)
	return jsonResponse{status: status, body: body}.Render(w, r)
}

func errorToBody(err error) (int, ErrorBody) {
	var valErr validator.ValidationErrors
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, ErrorBody{
			Error:   valErr.Error(),
			Code:    "validation_error",
			Details: valErr.Fields(),
		}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Message
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, ErrorBody{Error: msg, Code: httpErr.Key}
	}

	return http.StatusInternalServerError, ErrorBody{
		Error: http.StatusText(http.StatusInternalServerError),
		Code:  ErrInternalServerError.Key,
	}
}

// StatusOf reports the status JSONError would use for err.
func StatusOf(err error) int {
	status, _ := errorToBody(err)
	return status
}
