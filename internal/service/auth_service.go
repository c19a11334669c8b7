package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CodeSender delivers one-time codes to users. The default implementation
// only logs; a real mail transport can be dropped in without touching the
// service.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string, purpose domain.OTPPurpose) error
}

// LogCodeSender writes codes to the application log instead of sending mail.
type LogCodeSender struct {
	From   string
	Logger *zap.Logger
}

// SendCode implements CodeSender.
func (s *LogCodeSender) SendCode(_ context.Context, email, code string, purpose domain.OTPPurpose) error {
	s.Logger.Info("otp code issued",
		zap.String("from", s.From),
		zap.String("to", email),
		zap.String("purpose", string(purpose)),
		zap.String("code", code),
	)
	return nil
}

// AuthService handles registration, login and the OTP verification flows.
type AuthService struct {
	users  repository.UserRepository
	otps   repository.OTPRepository
	tokens *auth.TokenManager
	sender CodeSender
	cfg    config.AuthConfig
	admin  config.AdminConfig
	logger *zap.Logger
}

// AuthDependencies wires the auth service.
type AuthDependencies struct {
	Users  repository.UserRepository
	OTPs   repository.OTPRepository
	Tokens *auth.TokenManager
	Sender CodeSender
	Auth   config.AuthConfig
	Admin  config.AdminConfig
	Logger *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:  deps.Users,
		otps:   deps.OTPs,
		tokens: deps.Tokens,
		sender: deps.Sender,
		cfg:    deps.Auth,
		admin:  deps.Admin,
		logger: deps.Logger,
	}
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Unit     string
}

// LoginResult carries the issued token alongside the authenticated user.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an unverified end-user account and issues a verification code.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	unit := domain.Unit(input.Unit)
	if input.Unit != "" && !domain.ValidUnit(unit) {
		return nil, apperrors.NewValidationError("unknown unit", map[string]any{"unit": input.Unit})
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email is already registered", nil)
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Unit:         unit,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.issueCode(ctx, user, domain.OTPPurposeVerify); err != nil {
		// Account creation already succeeded; the code can be re-requested.
		s.logger.Warn("failed to issue verification code", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

// Login authenticates an end-user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// AdminLogin authenticates against the configured admin credentials. The
// backing admin account is seeded at startup by EnsureAdmin.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	if normalizeEmail(email) != normalizeEmail(s.admin.Email) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	user, err := s.findByEmail(ctx, s.admin.Email)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issueToken(user)
}

// EnsureAdmin seeds the fixed admin account if it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	if s.admin.Email == "" || s.admin.Password == "" {
		s.logger.Warn("admin credentials not configured, skipping admin seed")
		return nil
	}
	if existing, err := s.users.GetByEmail(ctx, normalizeEmail(s.admin.Email)); err == nil && existing != nil {
		return nil
	} else if err != nil && err != pgx.ErrNoRows {
		return err
	}

	hash, err := auth.HashPassword(s.admin.Password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Name:         "Administrator",
		Email:        normalizeEmail(s.admin.Email),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Unit:         domain.UnitHelpdesk,
		Verified:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("seeded admin account", zap.String("email", admin.Email))
	return nil
}

// GetUserData returns the profile for the authenticated principal.
func (s *AuthService) GetUserData(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// SendVerifyOTP issues a fresh account-verification code.
func (s *AuthService) SendVerifyOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return apperrors.NewConflict("account is already verified", nil)
	}
	return s.issueCode(ctx, user, domain.OTPPurposeVerify)
}

// VerifyAccount consumes a verification code and marks the account verified.
func (s *AuthService) VerifyAccount(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.consumeCode(ctx, user.ID, domain.OTPPurposeVerify, code); err != nil {
		return err
	}
	user.Verified = true
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// SendResetOTP issues a password-reset code. To avoid account enumeration the
// call succeeds silently when the email is unknown.
func (s *AuthService) SendResetOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if derr, ok := err.(*apperrors.DomainError); ok && derr.Code == "UNAUTHORIZED" {
			return nil
		}
		return err
	}
	return s.issueCode(ctx, user, domain.OTPPurposeReset)
}

// ResetPassword consumes a reset code and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := s.consumeCode(ctx, user.ID, domain.OTPPurposeReset, code); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *AuthService) issueToken(user *domain.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) issueCode(ctx context.Context, user *domain.User, purpose domain.OTPPurpose) error {
	code, err := generateOTP()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	record := &domain.OTPCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.cfg.OTPTTL()),
	}
	if err := s.otps.Create(ctx, record); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.sender.SendCode(ctx, user.Email, code, purpose); err != nil {
		s.logger.Warn("failed to deliver otp code", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) consumeCode(ctx context.Context, userID string, purpose domain.OTPPurpose, code string) (*domain.OTPCode, error) {
	otp, err := s.otps.GetActive(ctx, userID, purpose, code)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewValidationError("invalid or expired code", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !otp.Usable(time.Now()) {
		return nil, apperrors.NewValidationError("invalid or expired code", nil)
	}
	if err := s.otps.Consume(ctx, otp.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return otp, nil
}

// generateOTP returns a 6-digit numeric code with uniform distribution.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
