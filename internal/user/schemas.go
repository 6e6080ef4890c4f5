package user

import "github.com/vitalvas/fastapify/validate"

// GetOTPRequest is the request schema of POST /auth/get-otp.
type GetOTPRequest struct {
	Body struct {
		Email  string `json:"email" validate:"required,email" openapi:"example=jane@example.com"`
		Active *bool  `json:"active" default:"true"`
	} `json:"body"`
}

// VerifyOTPRequest is the request schema of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
		OTP   string `json:"otp" validate:"required,len=6,numeric" openapi:"example=123456"`
	} `json:"body"`
}

// AvatarRequest is the request schema of PUT /profile/avatar.
type AvatarRequest struct {
	FormData struct {
		Avatar  *validate.File `json:"avatar" validate:"required"`
		Caption string         `json:"caption" validate:"max=140"`
	} `json:"formData"`
}

var (
	getOTPSchema    = validate.MustNew[GetOTPRequest]()
	verifyOTPSchema = validate.MustNew[VerifyOTPRequest]()
	avatarSchema    = validate.MustNew[AvatarRequest]()
)
