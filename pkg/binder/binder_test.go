package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/binder"
)

type lessonRequest struct {
	ID            string   `path:"id" json:"-"`
	Month         string   `query:"month" json:"-"`
	Statuses      []string `query:"status" json:"-"`
	InstitutionID string   `json:"institutionId"`
	TotalValue    float64  `json:"totalValue"`
}

func jsonRequest(method, body string) *http.Request {
	r := httptest.NewRequest(method, "/api/lessons", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	t.Run("decodes body", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		require.NoError(t, bind(jsonRequest(http.MethodPost, `{"institutionId":"i1","totalValue":120.5}`), &req))
		assert.Equal(t, "i1", req.InstitutionID)
		assert.InDelta(t, 120.5, req.TotalValue, 0.001)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		err := bind(jsonRequest(http.MethodPost, `{"institutionId":"i1","extra":1}`), &req)
		assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		err := bind(jsonRequest(http.MethodPost, `{"institutionId":"i1"} {}`), &req)
		assert.ErrorIs(t, err, binder.ErrFailedToParseJSON)
	})

	t.Run("requires json content type", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		assert.ErrorIs(t, bind(r, &req), binder.ErrMissingContentType)

		r.Header.Set("Content-Type", "text/plain")
		assert.ErrorIs(t, bind(r, &req), binder.ErrUnsupportedMediaType)
	})

	t.Run("empty post body is an error", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		assert.ErrorIs(t, bind(jsonRequest(http.MethodPost, ""), &req), binder.ErrFailedToParseJSON)
	})

	t.Run("bodyless get is skipped", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.ErrorIs(t, bind(r, &req), binder.ErrBinderNotApplicable)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("binds tagged fields only", func(t *testing.T) {
		t.Parallel()
		var req lessonRequest
		r := httptest.NewRequest(http.MethodGet, "/?month=2025-03&status=Completed,Scheduled&institutionid=x", nil)
		require.NoError(t, binder.Query()(r, &req))
		assert.Equal(t, "2025-03", req.Month)
		assert.Equal(t, []string{"Completed", "Scheduled"}, req.Statuses)
		assert.Empty(t, req.InstitutionID)
	})

	t.Run("reports conversion errors", func(t *testing.T) {
		t.Parallel()
		var req struct {
			Limit int `query:"limit"`
		}
		r := httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
		assert.ErrorIs(t, binder.Query()(r, &req), binder.ErrInvalidQuery)
	})

	t.Run("target must be a struct pointer", func(t *testing.T) {
		t.Parallel()
		var s string
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.ErrorIs(t, binder.Query()(r, &s), binder.ErrInvalidQuery)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	params := map[string]string{"id": "lesson-1"}
	extract := func(_ *http.Request, key string) string { return params[key] }

	var req lessonRequest
	r := httptest.NewRequest(http.MethodPost, "/api/lessons/lesson-1/complete", nil)
	require.NoError(t, binder.Path(extract)(r, &req))
	assert.Equal(t, "lesson-1", req.ID)

	assert.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrInvalidPath)
}
