package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authstarter/config"
	"github.com/tech-arch1tect/authstarter/server"
	"github.com/tech-arch1tect/authstarter/services/logging"
	"github.com/tech-arch1tect/authstarter/services/otp"
	"github.com/tech-arch1tect/authstarter/services/users"
	"go.uber.org/zap"
)

type OTPHandler struct {
	otp    *otp.Service
	users  *users.Service
	cfg    *config.Config
	logger *logging.Service
}

func NewOTPHandler(otpService *otp.Service, userService *users.Service, cfg *config.Config, logger *logging.Service) *OTPHandler {
	return &OTPHandler{
		otp:    otpService,
		users:  userService,
		cfg:    cfg,
		logger: logger,
	}
}

// bindRequest decodes the body, folds aliases into canonical fields and
// validates the result.
func bindRequest[T any, PT interface {
	*T
	normalize()
}](c echo.Context) (PT, error) {
	req := PT(new(T))
	if err := c.Bind(req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body").SetInternal(err)
	}
	req.normalize()
	if err := c.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// serviceError maps otp service errors onto HTTP errors.
func serviceError(err error) error {
	var verr *otp.ValidationError
	if errors.As(err, &verr) {
		return &server.FieldError{Field: verr.Field, Message: verr.Message}
	}
	var serr *otp.StorageError
	if errors.As(err, &serr) {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return err
}

func (h *OTPHandler) exposeCode() bool {
	return h.cfg.OTP.ExposeCode && !h.cfg.IsProduction()
}

func (h *OTPHandler) SendVerificationOTP(c echo.Context) error {
	req, err := bindRequest[SendOTPRequest](c)
	if err != nil {
		return err
	}

	purpose, err := otp.ParsePurpose(req.Purpose)
	if err != nil {
		return serviceError(err)
	}

	issued, err := h.otp.Issue(c.Request().Context(), otp.IssueRequest{
		Email:     req.Email,
		Purpose:   purpose,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return serviceError(err)
	}

	resp := SendOTPResponse{Message: "Verification OTP sent successfully"}
	if h.exposeCode() {
		resp.OTP = issued.Code
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OTPHandler) VerifyOTP(c echo.Context) error {
	req, err := bindRequest[VerifyOTPRequest](c)
	if err != nil {
		return err
	}

	purpose, err := otp.ParsePurpose(req.Purpose)
	if err != nil {
		return serviceError(err)
	}

	result, err := h.otp.Verify(c.Request().Context(), req.Email, purpose, req.Code)
	if err != nil {
		return serviceError(err)
	}

	if !result.Success {
		return c.JSON(http.StatusOK, VerifyOTPResponse{
			Success: false,
			Error:   string(result.Reason),
			Message: result.Reason.Message(),
		})
	}

	if purpose == otp.PurposeSignUp || purpose == otp.PurposeEmailVerification {
		h.markVerified(c, req.Email)
	}
	return c.JSON(http.StatusOK, VerifyOTPResponse{
		Success: true,
		Message: "OTP verified successfully",
	})
}

func (h *OTPHandler) SignUpEmailOTP(c echo.Context) error {
	req, err := bindRequest[SignUpOTPRequest](c)
	if err != nil {
		return err
	}

	result, err := h.otp.Verify(c.Request().Context(), req.Email, otp.PurposeSignUp, req.Code)
	if err != nil {
		return serviceError(err)
	}

	if !result.Success {
		return c.JSON(http.StatusBadRequest, SignUpOTPFailure{
			Error:  result.Reason.Message(),
			Reason: string(result.Reason),
		})
	}

	h.markVerified(c, req.Email)
	return c.JSON(http.StatusOK, SignUpOTPResponse{
		Message:  "Email verified successfully",
		Email:    otp.NormalizeEmail(req.Email),
		Verified: true,
	})
}

// markVerified stamps the user row if one exists. The code is already
// consumed at this point, so a failure is logged rather than returned.
func (h *OTPHandler) markVerified(c echo.Context, email string) {
	if h.users == nil {
		return
	}
	if _, err := h.users.MarkEmailVerified(c.Request().Context(), email); err != nil {
		logging.FromContext(c, h.logger).Error("failed to mark email verified",
			zap.String("email", otp.NormalizeEmail(email)),
			zap.Error(err))
	}
}
