package handlers

import (
	"net/http"

	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/openapi"
	"github.com/tech-arch1tect/authstarter/server"
	"go.uber.org/fx"
)

const apiVersion = "1.0.0"

var Module = fx.Options(
	fx.Provide(
		NewDocument,
		NewOTPHandler,
		NewUserHandler,
		NewHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)

func NewDocument(cfg *config.Config) *openapi.Document {
	doc := openapi.New(cfg.App.Name+" API", apiVersion).
		Describe("Email one-time code issuance and verification.").
		Tag("otp", "Email verification codes").
		Tag("users", "Account lookup").
		Tag("system", "Health and API description")
	if cfg.App.URL != "" {
		doc.Server(cfg.App.URL, cfg.App.Env)
	}
	return doc
}

type Handlers struct {
	fx.In

	OTP    *OTPHandler
	Users  *UserHandler
	Health *HealthHandler
}

func RegisterRoutes(srv *server.Server, doc *openapi.Document, h Handlers) {
	api := srv.Group("/api")

	api.POST("/auth/email-otp/send-verification-otp", h.OTP.SendVerificationOTP)
	doc.Operation(http.MethodPost, "/api/auth/email-otp/send-verification-otp").
		ID("sendVerificationOtp").
		Summary("Issue a verification code").
		Description("Replaces any unused code for the email and purpose, then emails the new code.").
		Tags("otp").
		Body(SendOTPRequest{}, "Recipient and purpose").
		Response(http.StatusOK, SendOTPResponse{}, "Code issued").
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing or invalid input").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
		Register()

	api.POST("/auth/email-otp/verify-otp", h.OTP.VerifyOTP)
	doc.Operation(http.MethodPost, "/api/auth/email-otp/verify-otp").
		ID("verifyOtp").
		Summary("Verify a code").
		Description("A rejected code is reported with success=false and a reason.").
		Tags("otp").
		Body(VerifyOTPRequest{}, "Email, code and purpose").
		Response(http.StatusOK, VerifyOTPResponse{}, "Verification outcome").
		Response(http.StatusBadRequest, ErrorResponse{}, "Malformed input").
		Response(http.StatusInternalServerError, ErrorResponse{}, "Storage failure").
		Register()

	api.POST("/auth/sign-up/email-otp", h.OTP.SignUpEmailOTP)
	doc.Operation(http.MethodPost, "/api/auth/sign-up/email-otp").
		ID("signUpEmailOtp").
		Summary("Verify a sign-up code").
		Tags("otp").
		Body(SignUpOTPRequest{}, "Email and code").
		Response(http.StatusOK, SignUpOTPResponse{}, "Email verified").
		Response(http.StatusBadRequest, SignUpOTPFailure{}, "Code rejected or malformed input").
		Register()

	api.POST("/check-user", h.Users.CheckUser)
	doc.Operation(http.MethodPost, "/api/check-user").
		ID("checkUser").
		Summary("Look up an account by email").
		Tags("users").
		Body(CheckUserRequest{}, "Email to look up").
		Response(http.StatusOK, CheckUserResponse{}, "Lookup result").
		Response(http.StatusBadRequest, ErrorResponse{}, "Missing or invalid email").
		Register()

	api.GET("/health", h.Health.Health)
	doc.Operation(http.MethodGet, "/api/health").
		ID("health").
		Summary("Service health").
		Tags("system").
		Response(http.StatusOK, HealthResponse{}, "All dependencies reachable").
		Response(http.StatusServiceUnavailable, HealthResponse{}, "A dependency is unreachable").
		Register()

	api.GET("/openapi.json", doc.JSONHandler())
	api.GET("/openapi.yaml", doc.YAMLHandler())
}
