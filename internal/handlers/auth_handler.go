package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pageguard/internal/api/middleware"
	"pageguard/internal/api/validator"
	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/services"
	"pageguard/internal/utils"
	"pageguard/internal/utils/logger"
)

type AuthHandler struct {
	auth AuthService
	log  *logger.Logger
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth, log: logger.New("AuthHandler")}
}

// TokenResponse is returned by the login and refresh endpoints
type TokenResponse struct {
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	Profile          *models.User `json:"profile"`
}

func tokenResponse(res *services.LoginResult) TokenResponse {
	return TokenResponse{
		AccessToken:      res.Tokens.Access,
		RefreshToken:     res.Tokens.Refresh,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		Profile:          res.User,
	}
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

func clientInfo(c echo.Context) services.ClientInfo {
	return services.ClientInfo{
		IPAddress: utils.GetIPAddress(c.Request()),
		UserAgent: c.Request().UserAgent(),
	}
}

func (h *AuthHandler) login(c echo.Context, mode services.LoginMode) error {
	var req validator.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), req.Email, req.Password, mode, clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse(res))
}

// Login authenticates any active user.
// @Summary Login
// @Description Authenticate with email and password and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Invalid credentials"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	return h.login(c, services.LoginAny)
}

// LoginSuperAdmin authenticates superadmins only.
// @Summary Super admin login
// @Description Authenticate a superadmin; other roles are refused
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Invalid credentials"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /api/v1/auth/login/superadmin [post]
func (h *AuthHandler) LoginSuperAdmin(c echo.Context) error {
	return h.login(c, services.LoginSuperAdmin)
}

// LoginUser authenticates regular users only.
// @Summary User login
// @Description Authenticate a regular user; superadmins must use their own endpoint
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.LoginRequest true "Login credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Invalid credentials"
// @Failure 403 {object} map[string]string "Please use super admin login"
// @Router /api/v1/auth/login/user [post]
func (h *AuthHandler) LoginUser(c echo.Context) error {
	return h.login(c, services.LoginRegular)
}

// RefreshToken rotates a session.
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new pair; the old pair stops working
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.RefreshRequest true "Refresh token"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req validator.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Refresh(c.Request().Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse(res))
}

// Logout revokes the session of a refresh token.
// @Summary Logout
// @Description Revoke the session the refresh token belongs to
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validator.RefreshRequest true "Refresh token"
// @Success 200 {object} map[string]string "Successfully logged out"
// @Failure 400 {object} map[string]string "Invalid token"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req validator.RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	h.log.Info("User %s logged out", middleware.GetUserID(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// GetProfile returns the caller.
// @Summary Get profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c echo.Context) error {
	user := middleware.Principal(c)
	if user == nil {
		return common.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the caller's names and phone.
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validator.ProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Validation error"
// @Router /api/v1/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user := middleware.Principal(c)
	if user == nil {
		return common.ErrUnauthorized
	}

	var req validator.ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := h.auth.UpdateProfile(c.Request().Context(), user, services.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// RequestPasswordReset sends a reset code if the address is known.
// @Summary Request password reset
// @Description Send a one-time code by e-mail. The response does not reveal whether the account exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.PasswordResetRequest true "Account email"
// @Success 200 {object} map[string]string "OTP sent"
// @Failure 429 {object} map[string]string "Too many requests"
// @Router /api/v1/auth/password/reset/request [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req validator.PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "If the account exists, an OTP has been sent to the email"})
}

// VerifyOTP checks a reset code.
// @Summary Verify reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.VerifyOTPRequest true "Email and code"
// @Success 200 {object} map[string]string "OTP verified"
// @Failure 400 {object} map[string]string "Invalid or expired OTP"
// @Router /api/v1/auth/password/reset/verify [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req validator.VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.VerifyOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "OTP verified successfully"})
}

// ConfirmPasswordReset sets a new password with a verified code.
// @Summary Confirm password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validator.ConfirmResetRequest true "Email, code and new password"
// @Success 200 {object} map[string]string "Password reset"
// @Failure 400 {object} map[string]string "Invalid or expired OTP"
// @Router /api/v1/auth/password/reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req validator.ConfirmResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.ConfirmPasswordReset(c.Request().Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"})
}
