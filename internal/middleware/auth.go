package middleware

import (
	"context"

	"stockfolio-backend/internal/application/auth"
	"stockfolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const identityLocal = "identity"

// Resolver turns a request credential into an identity.
type Resolver interface {
	Resolve(ctx context.Context, cred auth.Credential) (*auth.Identity, error)
}

// RequireAuth resolves the Authorization header (Bearer or Basic) and stores the identity in Locals.
// Returns 401 with the standard error format when the header is missing or invalid.
func RequireAuth(r Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cred, err := auth.ParseAuthorization(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		id, err := r.Resolve(c.UserContext(), cred)
		if err != nil {
			if auth.IsAuthError(err) {
				return response.Unauthorized(c, err.Error())
			}
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Msg("resolve credential")
			return response.Error(c, "Authentication unavailable", fiber.StatusInternalServerError, nil)
		}
		SetIdentity(c, id)
		return c.Next()
	}
}

// GetIdentity returns the caller resolved by RequireAuth (nil if the route is public).
func GetIdentity(c *fiber.Ctx) *auth.Identity {
	id, _ := c.Locals(identityLocal).(*auth.Identity)
	return id
}

// SetIdentity stores id for downstream handlers.
func SetIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(identityLocal, id)
}
