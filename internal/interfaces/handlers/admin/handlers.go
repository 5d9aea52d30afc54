package admin

import (
	"errors"

	"stockfolio-backend/internal/application/accounts"
	policies "stockfolio-backend/internal/application/policies/user"
	"stockfolio-backend/internal/middleware"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves user administration. Routes sit behind AuthorizePermission.
type Handlers struct {
	Accounts *accounts.Service
}

type RolesRequest struct {
	Roles []string `json:"roles"`
}

func fail(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, policies.ErrTargetUserNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, policies.ErrOnlyAdminsCanManageUsers):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, policies.ErrRolesRequired), errors.Is(err, policies.ErrUnknownRole),
		errors.Is(err, policies.ErrRolesMustIncludeUser):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, policies.ErrAdminsCannotDropOwnAdmin), errors.Is(err, policies.ErrMustHaveAtLeastOneAdmin),
		errors.Is(err, policies.ErrAdminsCannotDeleteThemselves):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg(op)
	return response.Internal(c)
}

// Users GET /api/v1/admin/users
func (h *Handlers) Users(c *fiber.Ctx) error {
	users, err := h.Accounts.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, err, "list users")
	}
	return response.Success(c, "Users fetched", users, fiber.Map{"count": len(users)})
}

// UpdateRoles PATCH /api/v1/admin/users/:username/roles
func (h *Handlers) UpdateRoles(c *fiber.Ctx) error {
	var req RolesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	u, err := h.Accounts.UpdateRoles(c.UserContext(), middleware.GetIdentity(c).User, c.Params("username"), req.Roles)
	if err != nil {
		return fail(c, err, "update roles")
	}
	return response.Success(c, "Roles updated", u, nil)
}

// DeleteUser DELETE /api/v1/admin/users/:username removes the account, its portfolio and trades.
func (h *Handlers) DeleteUser(c *fiber.Ctx) error {
	target := c.Params("username")
	if err := h.Accounts.DeleteUser(c.UserContext(), middleware.GetIdentity(c).User, target); err != nil {
		return fail(c, err, "delete user")
	}
	return response.Success(c, "User deleted", fiber.Map{"username": target}, nil)
}
