package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/fastapify/router"
)

type signupRequest struct {
	Body struct {
		Email  string `json:"email" validate:"required,email"`
		Active *bool  `json:"active" default:"true"`
	} `json:"body"`
}

type itemRequest struct {
	Params struct {
		ID int `json:"id" validate:"required,min=1"`
	} `json:"params"`
	Query struct {
		Page  int      `json:"page" default:"1" validate:"min=1"`
		Sort  string   `json:"sort" validate:"omitempty,oneof=asc desc"`
		Tags  []string `json:"tags"`
		Debug bool     `json:"debug"`
	} `json:"query"`
}

type uploadRequest struct {
	FormData struct {
		Caption string `json:"caption" validate:"required"`
		Avatar  *File  `json:"avatar" validate:"required"`
		Photos  []File `json:"photos"`
	}
}

func TestSchema(t *testing.T) {
	t.Run("sections by json name", func(t *testing.T) {
		s := MustNew[itemRequest]()
		shape := s.Shape()

		require.Len(t, shape, 2)
		assert.Equal(t, reflect.TypeOf(itemRequest{}.Params), shape["params"])
		assert.Equal(t, reflect.TypeOf(itemRequest{}.Query), shape["query"])
		assert.True(t, s.Has(SectionParams))
		assert.False(t, s.Has(SectionBody))
		assert.Equal(t, reflect.TypeOf(itemRequest{}), s.Type())
	})

	t.Run("sections by lower-camel field name", func(t *testing.T) {
		s := MustNew[uploadRequest]()
		assert.Contains(t, s.Shape(), "formData")
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		type req struct {
			Body    struct{} `json:"body"`
			Headers struct{} `json:"headers"`
			private struct{}
		}

		s := MustNew[req]()
		assert.Len(t, s.Shape(), 1)
	})

	t.Run("non struct", func(t *testing.T) {
		_, err := New[string]()
		assert.ErrorIs(t, err, ErrNotStruct)

		_, err = Of(nil)
		assert.ErrorIs(t, err, ErrNotStruct)

		assert.Panics(t, func() { MustNew[int]() })
	})
}

func serveJSON(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func decodeIssues(t *testing.T, w *httptest.ResponseRecorder) []Issue {
	t.Helper()

	var resp struct {
		StatusCode int     `json:"statusCode"`
		Success    bool    `json:"success"`
		Code       string  `json:"code"`
		Message    string  `json:"message"`
		Errors     []Issue `json:"errors"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "Validation failed", resp.Message)

	return resp.Errors
}

func TestRequestBody(t *testing.T) {
	v := Request(MustNew[signupRequest]())

	var got *signupRequest
	r := router.New()
	r.With(v).Post("/signup", func(w http.ResponseWriter, req *http.Request) {
		var ok bool
		got, ok = Parsed[signupRequest](req)
		require.True(t, ok)
		w.WriteHeader(http.StatusCreated)
	})

	t.Run("exposes schema", func(t *testing.T) {
		s, ok := v.Schema().(*Schema)
		require.True(t, ok)
		assert.True(t, s.Has(SectionBody))
	})

	t.Run("valid body with default", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/signup", `{"email":"a@example.com"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, "a@example.com", got.Body.Email)
		require.NotNil(t, got.Body.Active)
		assert.True(t, *got.Body.Active)
	})

	t.Run("explicit false kept", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/signup", `{"email":"a@example.com","active":false}`)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.False(t, *got.Body.Active)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/signup", `{"email":"nope"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, Issue{Path: "body.email", Message: "must be a valid email address", Code: "email"}, issues[0])
	})

	t.Run("missing body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/signup", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, "required", issues[0].Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/signup", `{"email":`)
		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, "body", issues[0].Path)
		assert.Equal(t, "invalid_type", issues[0].Code)
	})
}

func TestRequestParamsAndQuery(t *testing.T) {
	var got *itemRequest
	r := router.New()
	r.With(Request(MustNew[itemRequest]())).Get("/items/:id", func(w http.ResponseWriter, req *http.Request) {
		got, _ = Parsed[itemRequest](req)
	})

	t.Run("weakly typed decoding", func(t *testing.T) {
		w := serveJSON(r, http.MethodGet, "/items/42?sort=asc&tags=a&tags=b&debug=true", "")
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)

		assert.Equal(t, 42, got.Params.ID)
		assert.Equal(t, 1, got.Query.Page)
		assert.Equal(t, "asc", got.Query.Sort)
		assert.Equal(t, []string{"a", "b"}, got.Query.Tags)
		assert.True(t, got.Query.Debug)
	})

	t.Run("single value lifted into slice", func(t *testing.T) {
		w := serveJSON(r, http.MethodGet, "/items/1?tags=solo", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"solo"}, got.Query.Tags)
	})

	t.Run("rule failures", func(t *testing.T) {
		w := serveJSON(r, http.MethodGet, "/items/0?sort=sideways", "")
		issues := decodeIssues(t, w)

		paths := make([]string, 0, len(issues))
		for _, is := range issues {
			paths = append(paths, is.Path)
		}

		assert.ElementsMatch(t, []string{"params.id", "query.sort"}, paths)
	})

	t.Run("type mismatch", func(t *testing.T) {
		w := serveJSON(r, http.MethodGet, "/items/abc", "")
		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, "params", issues[0].Path)
	})
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	for field, names := range files {
		for _, name := range names {
			fw, err := mw.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestRequestFormData(t *testing.T) {
	var got *uploadRequest
	r := router.New()
	r.With(Request(MustNew[uploadRequest]())).Put("/upload", func(w http.ResponseWriter, req *http.Request) {
		got, _ = Parsed[uploadRequest](req)
	})

	t.Run("files and fields", func(t *testing.T) {
		req := multipartRequest(t, "/upload",
			map[string]string{"caption": "hello"},
			map[string][]string{"avatar": {"me.png"}, "photos": {"a.jpg", "b.jpg"}},
		)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NotNil(t, got)

		assert.Equal(t, "hello", got.FormData.Caption)

		require.NotNil(t, got.FormData.Avatar)
		assert.Equal(t, "avatar", got.FormData.Avatar.Fieldname)
		assert.Equal(t, "me.png", got.FormData.Avatar.Originalname)
		assert.Equal(t, "application/octet-stream", got.FormData.Avatar.Mimetype)
		assert.Equal(t, "7bit", got.FormData.Avatar.Encoding)
		assert.Equal(t, []byte("content of me.png"), got.FormData.Avatar.Buffer)
		assert.Equal(t, int64(len("content of me.png")), got.FormData.Avatar.Size)

		require.Len(t, got.FormData.Photos, 2)
		assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"},
			[]string{got.FormData.Photos[0].Originalname, got.FormData.Photos[1].Originalname})
	})

	t.Run("missing required file", func(t *testing.T) {
		req := multipartRequest(t, "/upload", map[string]string{"caption": "hello"}, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, "FormData.avatar", issues[0].Path)
	})

	t.Run("url encoded form", func(t *testing.T) {
		form := url.Values{"caption": {"x"}}
		req := httptest.NewRequest(http.MethodPut, "/upload", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		issues := decodeIssues(t, w)
		require.Len(t, issues, 1)
		assert.Equal(t, "required", issues[0].Code)
	})
}

func TestRequestCustomErrorHandler(t *testing.T) {
	var captured error

	r := router.New()
	r.With(Request(MustNew[signupRequest](), Config{
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			captured = err
			w.WriteHeader(http.StatusTeapot)
		},
	})).Post("/signup", func(http.ResponseWriter, *http.Request) {})

	w := serveJSON(r, http.MethodPost, "/signup", `{}`)
	assert.Equal(t, http.StatusTeapot, w.Code)

	var verr *Error
	require.ErrorAs(t, captured, &verr)
	assert.Contains(t, verr.Error(), "body.email: is required")
}

func TestParsedMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	v, ok := Parsed[signupRequest](req)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRequestBodyTooLarge(t *testing.T) {
	r := router.New()
	r.With(Request(MustNew[signupRequest](), Config{MaxBodyBytes: 64})).
		Post("/signup", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

	t.Run("within limit", func(t *testing.T) {
		w := serveJSON(r, http.MethodPost, "/signup", `{"email":"a@example.com"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("over limit", func(t *testing.T) {
		body := `{"email":"` + strings.Repeat("a", 128) + `@example.com"}`
		w := serveJSON(r, http.MethodPost, "/signup", body)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PAYLOAD_TOO_LARGE", resp["code"])
		assert.Nil(t, resp["errors"])
	})

	t.Run("parse reports sentinel", func(t *testing.T) {
		v := Request(MustNew[signupRequest](), Config{MaxBodyBytes: 8})
		req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"email":"a@example.com"}`))

		_, err := v.Parse(req)
		assert.ErrorIs(t, err, ErrBodyTooLarge)

		var verr *Error
		assert.False(t, errors.As(err, &verr))
	})
}
