package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UsersHandler exposes authentication and account endpoints.
type UsersHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

// NewUsersHandler returns a new handler instance.
func NewUsersHandler(authService *service.AuthService, userService *service.UserService) *UsersHandler {
	return &UsersHandler{authService: authService, userService: userService}
}

// Register handles POST /api/auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.authService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Unit:     req.Unit,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	return h.login(c, h.authService.Login)
}

// AdminLogin handles POST /api/auth/admin-login.
func (h *UsersHandler) AdminLogin(c *fiber.Ctx) error {
	return h.login(c, h.authService.AdminLogin)
}

func (h *UsersHandler) login(c *fiber.Ctx, fn func(ctx context.Context, email, password string) (*service.LoginResult, error)) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := fn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the server
// side has nothing to revoke; clients drop the token.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	user, err := h.authService.GetUserData(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// SendVerifyOTP handles POST /api/auth/send-verify-otp.
func (h *UsersHandler) SendVerifyOTP(c *fiber.Ctx) error {
	var req dto.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.SendVerifyOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "verification code sent"})
}

// VerifyAccount handles POST /api/auth/verify-account.
func (h *UsersHandler) VerifyAccount(c *fiber.Ctx) error {
	var req dto.VerifyAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.VerifyAccount(c.UserContext(), req.Email, req.Code); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "account verified"})
}

// SendResetOTP handles POST /api/auth/send-reset-otp.
func (h *UsersHandler) SendResetOTP(c *fiber.Ctx) error {
	var req dto.SendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.SendResetOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "reset code sent"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

// List handles GET /api/admin/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.userService.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// Delete handles DELETE /api/admin/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.userService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListByUnit handles GET /api/users/by-unit/:unit.
func (h *UsersHandler) ListByUnit(c *fiber.Ctx) error {
	unit, err := decodeUnitParam(c.Params("unit"))
	if err != nil {
		return err
	}
	users, listErr := h.userService.ListByUnit(c.UserContext(), unit)
	if listErr != nil {
		return listErr
	}
	return c.JSON(dto.NewUserListResponse(users))
}

func decodeUnitParam(raw string) (domain.Unit, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", apperrors.NewValidationError("invalid unit", nil)
	}
	unit := domain.Unit(decoded)
	if !domain.ValidUnit(unit) {
		return "", apperrors.NewValidationError("unknown unit", map[string]any{"unit": decoded})
	}
	return unit, nil
}
