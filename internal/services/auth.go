package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"pageguard/internal/common"
	"pageguard/internal/config"
	"pageguard/internal/events"
	"pageguard/internal/metrics"
	"pageguard/internal/models"
	"pageguard/internal/utils"
	"pageguard/internal/utils/logger"
)

// OTPLimiter throttles password reset codes per identifier.
type OTPLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
}

// OTPDispatcher delivers a reset code to a user out of band.
type OTPDispatcher interface {
	EnqueueOTPEmail(ctx context.Context, email, name, code string, ttl time.Duration) error
}

// LoginMode restricts which roles a login endpoint accepts.
type LoginMode int

const (
	LoginAny LoginMode = iota
	LoginSuperAdmin
	LoginRegular
)

// ClientInfo identifies where a session was opened from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	Tokens *utils.TokenPair `json:"tokens"`
	User   *models.User     `json:"user"`
}

type ProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

var (
	errInvalidToken = common.ErrUnauthorized.WithMessage("Invalid token")
	errInvalidOTP   = common.ErrValidation.WithMessage("Invalid or expired OTP")
)

// AuthService issues and revokes sessions and runs the OTP password reset flow.
type AuthService struct {
	db         *gorm.DB
	issuer     *utils.TokenIssuer
	limiter    OTPLimiter
	dispatcher OTPDispatcher
	otp        config.OTPConfig
	now        func() time.Time
	log        *logger.Logger
}

func NewAuthService(db *gorm.DB, issuer *utils.TokenIssuer, limiter OTPLimiter, dispatcher OTPDispatcher, otp config.OTPConfig) *AuthService {
	return &AuthService{
		db:         db,
		issuer:     issuer,
		limiter:    limiter,
		dispatcher: dispatcher,
		otp:        otp,
		now:        time.Now,
		log:        logger.New("AUTH"),
	}
}

// Login checks credentials and opens a session. Unknown emails, wrong passwords
// and inactive accounts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, mode LoginMode, client ClientInfo) (*LoginResult, error) {
	user, err := models.GetUserByEmail(normalizeEmail(email), s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, common.Internal(err)
	}
	if !CheckPassword(user.Password, password) || !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}

	switch {
	case mode == LoginSuperAdmin && !user.IsSuperAdmin():
		return nil, common.ErrForbidden.WithMessage("Access denied")
	case mode == LoginRegular && user.IsSuperAdmin():
		return nil, common.ErrForbidden.WithMessage("Please use super admin login")
	}

	var tokens *utils.TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tokens, err = s.openSession(tx, user, client)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		user.LastLoginAt = &now
		return tx.Model(user).UpdateColumn("last_login_at", now).Error
	})
	if err != nil {
		return nil, common.Internal(s.log.Error("Failed to open session for %s", err, user.Email))
	}

	s.log.Info("User %s logged in from %s", user.Email, client.IPAddress)
	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Refresh rotates a session: the presented refresh token is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*LoginResult, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthorized.WithMessage("Invalid refresh token")
	}

	var result *LoginResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.AuthSession
		err := tx.Where("refresh = ? AND user_id = ? AND revoked_at IS NULL", refreshToken, claims.UserID).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrUnauthorized.WithMessage("Invalid refresh token")
		}
		if err != nil {
			return err
		}
		if !session.Active(s.now()) {
			return common.ErrUnauthorized.WithMessage("Invalid refresh token")
		}

		user, err := models.GetUserByID(session.UserID, tx)
		if err != nil || !user.IsActive {
			return common.ErrUnauthorized.WithMessage("User not found or inactive")
		}

		if err := tx.Model(&session).UpdateColumn("revoked_at", s.now().UTC()).Error; err != nil {
			return err
		}
		tokens, err := s.openSession(tx, user, client)
		if err != nil {
			return err
		}
		result = &LoginResult{Tokens: tokens, User: user}
		return nil
	})
	if err != nil {
		return nil, asTyped(err)
	}
	return result, nil
}

// Logout revokes the session a refresh token belongs to.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.issuer.ParseRefresh(refreshToken); err != nil {
		return common.ErrValidation.WithMessage("Invalid token")
	}
	res := s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("refresh = ? AND revoked_at IS NULL", refreshToken).
		UpdateColumn("revoked_at", s.now().UTC())
	if res.Error != nil {
		return common.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrValidation.WithMessage("Invalid token")
	}
	return nil
}

// Authenticate resolves the principal behind an access token. The token must
// belong to a session that has not been revoked.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.issuer.ParseAccess(accessToken)
	if err != nil {
		return nil, errInvalidToken
	}

	var session models.AuthSession
	err = s.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND revoked_at IS NULL", accessToken, claims.UserID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, common.Internal(err)
	}

	user, err := models.GetUserByID(claims.UserID, s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidToken
	}
	if err != nil {
		return nil, common.Internal(err)
	}
	if !user.IsActive {
		return nil, common.ErrUnauthorized.WithMessage("User is inactive")
	}
	return user, nil
}

// UpdateProfile changes the caller's own names and phone.
func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, common.Internal(s.log.Error("Failed to update profile of %s", err, user.Email))
		}
	}
	return models.GetUserByID(user.ID, s.db.WithContext(ctx))
}

// RequestPasswordReset sends a one-time code to the address if it belongs to
// an active user. The outcome is not revealed to the caller; only throttling is.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if err := s.throttle(ctx, "request:"+email); err != nil {
		metrics.OTPRequests.WithLabelValues("throttled").Inc()
		return err
	}

	user, err := models.GetUserByEmail(email, s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		metrics.OTPRequests.WithLabelValues("unknown").Inc()
		return nil
	}
	if err != nil {
		return common.Internal(err)
	}

	code, err := utils.GenerateOTP(s.otp.Length)
	if err != nil {
		return common.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return common.Internal(err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		Code:      string(hash),
		ExpiresAt: s.now().Add(s.otp.TTL).UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Only the newest code is usable.
		if err := tx.Model(&models.PasswordReset{}).
			Where("user_id = ? AND used = ?", user.ID, false).
			UpdateColumn("used", true).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
	if err != nil {
		return common.Internal(s.log.Error("Failed to store reset code for %s", err, email))
	}

	if err := s.dispatcher.EnqueueOTPEmail(ctx, user.Email, user.FullName(), code, s.otp.TTL); err != nil {
		s.log.Warn("Failed to enqueue reset code for %s: %v", email, err)
		metrics.OTPRequests.WithLabelValues("error").Inc()
		return nil
	}

	metrics.OTPRequests.WithLabelValues("sent").Inc()
	events.Emit(events.PasswordReset, user.ID)
	return nil
}

// VerifyOTP marks the pending code of email as verified.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	if err := s.throttle(ctx, "verify:"+email); err != nil {
		return err
	}

	return asTyped(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, reset, err := s.pendingReset(tx, email, code)
		if err != nil {
			return err
		}
		return tx.Model(reset).UpdateColumn("verified", true).Error
	}))
}

// ConfirmPasswordReset sets a new password using a verified code and revokes every session of the user.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if len(newPassword) < 8 {
		return common.Validation("new_password", "password must be at least 8 characters")
	}
	if err := s.throttle(ctx, "verify:"+email); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return common.Internal(err)
	}

	return asTyped(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, reset, err := s.pendingReset(tx, email, code)
		if err != nil {
			return err
		}
		if !reset.Verified {
			return errInvalidOTP
		}
		if err := tx.Model(user).UpdateColumn("password", hash).Error; err != nil {
			return err
		}
		if err := tx.Model(reset).UpdateColumn("used", true).Error; err != nil {
			return err
		}
		return revokeSessions(tx, user.ID)
	}))
}

func (s *AuthService) pendingReset(tx *gorm.DB, email, code string) (*models.User, *models.PasswordReset, error) {
	user, err := models.GetUserByEmail(email, tx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errInvalidOTP
	}
	if err != nil {
		return nil, nil, err
	}

	var reset models.PasswordReset
	err = tx.Where("user_id = ? AND used = ? AND expires_at > ?", user.ID, false, s.now().UTC()).
		Order("created_at DESC").
		First(&reset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errInvalidOTP
	}
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(reset.Code), []byte(code)) != nil {
		return nil, nil, errInvalidOTP
	}
	return user, &reset, nil
}

func (s *AuthService) throttle(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn("OTP limiter unavailable for %s: %v", key, err)
		return nil
	}
	if !ok {
		return common.ErrTooManyRequests
	}
	return nil
}

func (s *AuthService) openSession(tx *gorm.DB, user *models.User, client ClientInfo) (*utils.TokenPair, error) {
	tokens, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}
	session := &models.AuthSession{
		UserID:    user.ID,
		Token:     tokens.Access,
		Refresh:   tokens.Refresh,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: tokens.RefreshExpiresAt.UTC(),
	}
	if err := tx.Create(session).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func revokeSessions(tx *gorm.DB, userID string) error {
	return tx.Model(&models.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		UpdateColumn("revoked_at", time.Now().UTC()).Error
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// asTyped passes typed errors through and wraps anything else as internal.
func asTyped(err error) error {
	if err == nil {
		return nil
	}
	var typed *common.Error
	if errors.As(err, &typed) {
		return err
	}
	return common.Internal(err)
}
