package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/flowtls/syncplus/internal/api/dto"
	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/service"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// UsersHandler manages account administration endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// CreateUser POST /users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.Context(), session, service.UserCreateInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		Department:  req.Department,
		Phone:       req.Phone,
		CompanyID:   req.CompanyID,
		Permissions: permissionSetFromPayload(req.Permissions),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// ListUsers GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	includeInactive := c.QueryBool("include_inactive", false)
	users, err := h.service.ListUsers(c.Context(), session, includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetUser GET /users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseUserID(c)
	if err != nil {
		return err
	}
	user, err := h.service.GetUser(c.Context(), session, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// UpdateUser PUT /users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseUserID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	user, err := h.service.UpdateUser(c.Context(), session, id, service.UserUpdateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		Department:  req.Department,
		Phone:       req.Phone,
		CompanyID:   req.CompanyID,
		Permissions: permissionSetFromPayload(req.Permissions),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// ResetPassword POST /users/:id/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseUserID(c)
	if err != nil {
		return err
	}
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	if err := h.service.ResetPassword(c.Context(), session, id, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reset": true}})
}

// DeactivateUser POST /users/:id/deactivate.
func (h *UsersHandler) DeactivateUser(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

// ActivateUser POST /users/:id/activate.
func (h *UsersHandler) ActivateUser(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *UsersHandler) setActive(c *fiber.Ctx, active bool) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseUserID(c)
	if err != nil {
		return err
	}
	if active {
		err = h.service.Activate(c.Context(), session, id)
	} else {
		err = h.service.Deactivate(c.Context(), session, id)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"is_active": active}})
}

func parseUserID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid user id", nil)
	}
	return id, nil
}

func permissionSetFromPayload(payload *dto.PermissionsPayload) *domain.PermissionSet {
	if payload == nil {
		return nil
	}
	return &domain.PermissionSet{
		CreateUsers:     payload.CanCreateUsers,
		DeactivateUsers: payload.CanDeactivateUsers,
		ResetPasswords:  payload.CanResetPasswords,
		ManageTickets:   payload.CanManageTickets,
		ViewAllTickets:  payload.CanViewAllTickets,
		DeleteTickets:   payload.CanDeleteTickets,
		ExportData:      payload.CanExportData,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		FullName:    user.FullName(),
		Role:        user.Role,
		Department:  user.Department,
		Phone:       user.Phone,
		CompanyID:   user.CompanyID,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
		Permissions: dto.PermissionsPayload{
			CanCreateUsers:     user.Permissions.CreateUsers,
			CanDeactivateUsers: user.Permissions.DeactivateUsers,
			CanResetPasswords:  user.Permissions.ResetPasswords,
			CanManageTickets:   user.Permissions.ManageTickets,
			CanViewAllTickets:  user.Permissions.ViewAllTickets,
			CanDeleteTickets:   user.Permissions.DeleteTickets,
			CanExportData:      user.Permissions.ExportData,
		},
	}
}
