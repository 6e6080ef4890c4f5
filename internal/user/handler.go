// Package user implements one-time-password login and the user profile
// endpoints.
package user

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vitalvas/fastapify/internal/api"
	"github.com/vitalvas/fastapify/internal/logger"
	"github.com/vitalvas/fastapify/router"
	"github.com/vitalvas/fastapify/validate"
)

// RefreshCookie is the name of the refresh token cookie.
const RefreshCookie = "refreshToken"

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 2 << 20

// Handler serves the user endpoints.
type Handler struct {
	otps   OTPStore
	mailer Mailer
	tokens *TokenIssuer
}

// NewHandler returns a Handler. A nil mailer logs codes instead of sending
// them.
func NewHandler(otps OTPStore, mailer Mailer, tokens *TokenIssuer) *Handler {
	if mailer == nil {
		mailer = &LogMailer{}
	}

	return &Handler{otps: otps, mailer: mailer, tokens: tokens}
}

// Router returns a router with the auth and profile routes.
func (h *Handler) Router() *router.Router {
	vc := validate.Config{ErrorHandler: api.WriteError}

	r := router.New()
	r.With(validate.Request(getOTPSchema, vc)).Post("/auth/get-otp", h.getOTP)
	r.With(validate.Request(verifyOTPSchema, vc)).Post("/auth/verify-otp", h.verifyOTP)
	r.Post("/auth/logout", h.logout)

	r.With(
		Authenticate(h.tokens),
		validate.Request(avatarSchema, validate.Config{ErrorHandler: api.WriteError, MaxMemory: MaxAvatarSize}),
	).Put("/profile/avatar", h.uploadAvatar)

	return r
}

func (h *Handler) getOTP(w http.ResponseWriter, r *http.Request) {
	req, _ := validate.Parsed[GetOTPRequest](r)
	email := req.Body.Email

	code, err := h.otps.Issue(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrOTPAlreadySent) {
			api.WriteError(w, r, api.TooManyRequests("OTP already sent. Please wait before requesting again."))
			return
		}

		api.WriteError(w, r, err)
		return
	}

	if err := h.mailer.SendOTP(r.Context(), email, code); err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.OK(w, http.StatusOK, nil, "OTP sent successfully")
}

type verifyResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	req, _ := validate.Parsed[VerifyOTPRequest](r)

	if err := h.otps.Verify(r.Context(), req.Body.Email, req.Body.OTP); err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			api.WriteError(w, r, api.BadRequest("Invalid OTP"))
			return
		}

		api.WriteError(w, r, err)
		return
	}

	pair, err := h.tokens.Issue(req.Body.Email)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(h.tokens.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	logger.FromContext(r.Context()).Info("user logged in", slog.String("email", req.Body.Email))

	api.OK(w, http.StatusOK, verifyResponse{AccessToken: pair.AccessToken}, "OTP verified successfully")
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})

	api.OK(w, http.StatusOK, nil, "Logged out successfully")
}

type avatarResponse struct {
	Email        string `json:"email"`
	Fieldname    string `json:"fieldname"`
	Originalname string `json:"originalname"`
	Mimetype     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Caption      string `json:"caption,omitempty"`
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	req, _ := validate.Parsed[AvatarRequest](r)
	claims, _ := ClaimsFromContext(r.Context())
	file := req.FormData.Avatar

	if !strings.HasPrefix(file.Mimetype, "image/") {
		api.WriteError(w, r, api.UploadError("Avatar must be an image"))
		return
	}

	if file.Size > MaxAvatarSize {
		api.WriteError(w, r, api.UploadError("Avatar exceeds 2 MiB"))
		return
	}

	api.OK(w, http.StatusOK, avatarResponse{
		Email:        claims.Email,
		Fieldname:    file.Fieldname,
		Originalname: file.Originalname,
		Mimetype:     file.Mimetype,
		Size:         file.Size,
		Caption:      req.FormData.Caption,
	}, "Avatar uploaded")
}
