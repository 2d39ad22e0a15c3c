package handlers

import "strings"

type SendOTPRequest struct {
	Email   string `json:"email" validate:"required,email,max=254" doc:"Address the code is sent to" example:"user@example.com"`
	Purpose string `json:"purpose,omitempty" validate:"omitempty,otppurpose" enum:"sign-up sign-in email-verification" doc:"Defaults to sign-up"`
	Type    string `json:"type,omitempty" enum:"sign-up sign-in email-verification" doc:"Alias of purpose"`
}

func (r *SendOTPRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	if r.Purpose == "" {
		r.Purpose = strings.TrimSpace(r.Type)
	}
}

type SendOTPResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty" doc:"Only returned outside production when code exposure is enabled"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" validate:"required,email,max=254" example:"user@example.com"`
	Code    string `json:"code" validate:"required,otpcode" pattern:"^[0-9]{6}$" example:"123456"`
	OTP     string `json:"otp,omitempty" doc:"Alias of code"`
	Purpose string `json:"purpose,omitempty" validate:"omitempty,otppurpose" enum:"sign-up sign-in email-verification" doc:"Defaults to sign-up"`
	Type    string `json:"type,omitempty" enum:"sign-up sign-in email-verification" doc:"Alias of purpose"`
}

func (r *VerifyOTPRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	if r.Code == "" {
		r.Code = r.OTP
	}
	r.Code = strings.TrimSpace(r.Code)
	if r.Purpose == "" {
		r.Purpose = strings.TrimSpace(r.Type)
	}
}

type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty" enum:"not_found expired mismatch too_many_attempts"`
	Message string `json:"message"`
}

type SignUpOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254" example:"user@example.com"`
	Code  string `json:"code" validate:"required,otpcode" pattern:"^[0-9]{6}$" example:"123456"`
	OTP   string `json:"otp,omitempty" doc:"Alias of code"`
}

func (r *SignUpOTPRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	if r.Code == "" {
		r.Code = r.OTP
	}
	r.Code = strings.TrimSpace(r.Code)
}

type SignUpOTPResponse struct {
	Message  string `json:"message"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

type SignUpOTPFailure struct {
	Error  string `json:"error"`
	Reason string `json:"reason" enum:"not_found expired mismatch too_many_attempts"`
}

type CheckUserRequest struct {
	Email string `json:"email" validate:"required,email,max=254" example:"user@example.com"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type CheckUserResponse struct {
	Exists bool         `json:"exists"`
	User   *UserSummary `json:"user"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (r *CheckUserRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}
