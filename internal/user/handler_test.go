package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	if m.codes == nil {
		m.codes = make(map[string]string)
	}

	m.codes[email] = code

	return nil
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []any           `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())

	return env
}

func newTestHandler(t *testing.T) (*Handler, *captureMailer, http.Handler) {
	t.Helper()

	store, _ := newTestStore(5 * time.Minute)
	store.now = time.Now

	mailer := &captureMailer{}
	h := NewHandler(store, mailer, newTestIssuer(t))

	return h, mailer, h.Router()
}

func postJSON(srv http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	return w
}

func TestGetOTP(t *testing.T) {
	_, mailer, srv := newTestHandler(t)

	w := postJSON(srv, "/auth/get-otp", `{"email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "OTP sent successfully", env.Message)
	assert.Len(t, mailer.codes["jane@example.com"], OTPLength)

	t.Run("second request is rate limited", func(t *testing.T) {
		w := postJSON(srv, "/auth/get-otp", `{"email":"jane@example.com"}`)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "TOO_MANY_REQUESTS", decode(t, w).Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := postJSON(srv, "/auth/get-otp", `{"email":"nope"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		env := decode(t, w)
		assert.Equal(t, "VALIDATION_ERROR", env.Code)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "body.email", env.Errors[0].(map[string]any)["path"])
	})
}

func TestGetOTPMailerFailure(t *testing.T) {
	_, mailer, srv := newTestHandler(t)
	mailer.err = errors.New("smtp down")

	w := postJSON(srv, "/auth/get-otp", `{"email":"jane@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, w).Code)
}

func login(t *testing.T, srv http.Handler, mailer *captureMailer, email string) (string, *httptest.ResponseRecorder) {
	t.Helper()

	require.Equal(t, http.StatusOK, postJSON(srv, "/auth/get-otp", `{"email":"`+email+`"}`).Code)

	w := postJSON(srv, "/auth/verify-otp", `{"email":"`+email+`","otp":"`+mailer.codes[email]+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data verifyResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))

	return data.AccessToken, w
}

func TestVerifyOTP(t *testing.T) {
	h, mailer, srv := newTestHandler(t)

	t.Run("wrong code", func(t *testing.T) {
		require.Equal(t, http.StatusOK, postJSON(srv, "/auth/get-otp", `{"email":"bob@example.com"}`).Code)

		wrong := "100000"
		if mailer.codes["bob@example.com"] == wrong {
			wrong = "100001"
		}

		w := postJSON(srv, "/auth/verify-otp", `{"email":"bob@example.com","otp":"`+wrong+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		env := decode(t, w)
		assert.Equal(t, "BAD_REQUEST", env.Code)
		assert.Equal(t, "Invalid OTP", env.Message)
	})

	t.Run("malformed code", func(t *testing.T) {
		w := postJSON(srv, "/auth/verify-otp", `{"email":"bob@example.com","otp":"12ab"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("issues tokens and cookie", func(t *testing.T) {
		access, w := login(t, srv, mailer, "jane@example.com")

		claims, err := h.tokens.VerifyAccess(access)
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", claims.Email)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)

		c := cookies[0]
		assert.Equal(t, RefreshCookie, c.Name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), c.MaxAge)

		_, err = h.tokens.VerifyRefresh(c.Value)
		assert.NoError(t, err)
	})
}

func TestLogout(t *testing.T) {
	_, _, srv := newTestHandler(t)

	w := postJSON(srv, "/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decode(t, w).Message)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, RefreshCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func avatarRequest(t *testing.T, token, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)

	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, mw.WriteField("caption", "hello"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

func TestUploadAvatar(t *testing.T) {
	_, mailer, srv := newTestHandler(t)
	access, _ := login(t, srv, mailer, "jane@example.com")

	t.Run("without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, avatarRequest(t, "", "image/png", []byte("png")))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHORIZED", decode(t, w).Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, avatarRequest(t, "garbage", "image/png", []byte("png")))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Unauthorized: Invalid or expired token", decode(t, w).Message)
	})

	t.Run("uploads image", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, avatarRequest(t, access, "image/png", []byte("png-bytes")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var data avatarResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))

		assert.Equal(t, avatarResponse{
			Email:        "jane@example.com",
			Fieldname:    "avatar",
			Originalname: "me.png",
			Mimetype:     "image/png",
			Size:         int64(len("png-bytes")),
			Caption:      "hello",
		}, data)
	})

	t.Run("rejects non image", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, avatarRequest(t, access, "text/plain", []byte("text")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UPLOAD_ERROR", decode(t, w).Code)
	})
}
