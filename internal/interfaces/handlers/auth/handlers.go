package auth

import (
	"errors"

	"stockfolio-backend/internal/application/accounts"
	authsvc "stockfolio-backend/internal/application/auth"
	"stockfolio-backend/internal/domain"
	"stockfolio-backend/internal/middleware"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Accounts *accounts.Service
	Auth     *authsvc.Service
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func userBody(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":  u.UserID.String(),
		"username": u.Username,
		"name":     u.Name,
		"email":    u.Email,
		"roles":    []string(u.Roles),
	}
}

// Register POST /api/v1/auth/register creates the account and its empty portfolio, then signs the user in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req accounts.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	u, err := h.Accounts.CreateUser(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrEmailTaken), errors.Is(err, accounts.ErrUsernameTaken):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		case errors.Is(err, accounts.ErrInvalidUsername), errors.Is(err, accounts.ErrInvalidEmail),
			errors.Is(err, accounts.ErrInvalidPassword), errors.Is(err, accounts.ErrNameRequired),
			errors.Is(err, accounts.ErrInvalidName):
			return response.BadRequest(c, err.Error())
		}
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("register")
		return response.Internal(c)
	}
	tok, err := h.Auth.Issue(u)
	if err != nil {
		log.Error().Err(err).Str("username", u.Username).Msg("issue token after register")
		return response.Internal(c)
	}
	return response.SuccessCreated(c, "Registration successful", fiber.Map{"user": userBody(u), "token": tok}, nil)
}

// Login POST /api/v1/auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, authsvc.ErrCredentialsRequired.Error())
	}
	tok, u, err := h.Auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrCredentialsRequired):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, accounts.ErrInvalidCredentials):
			return response.Unauthorized(c, err.Error())
		}
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("login")
		return response.Internal(c)
	}
	log.Info().Str("username", u.Username).Msg("login")
	return response.Success(c, "Login successful", fiber.Map{"user": userBody(u), "token": tok}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	id := middleware.GetIdentity(c)
	if id == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": id}, nil)
}

// Logout DELETE /api/v1/auth/logout revokes the presented bearer token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	id := middleware.GetIdentity(c)
	if id == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	if err := h.Auth.Logout(c.UserContext(), id); err != nil {
		if errors.Is(err, authsvc.ErrLogoutRequiresBearer) {
			return response.BadRequest(c, err.Error())
		}
		log.Error().Err(err).Str("username", id.Username).Msg("logout")
		return response.Internal(c)
	}
	return response.Success(c, "Logout successful", nil, nil)
}
