package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/syncmind/syncmind-api/internal/utils"
)

// AuthOptions configures WithAuth. An empty Roles list admits any role.
type AuthOptions struct {
	Roles       []string
	RequireUser bool
}

// WithAuth guards a single handler, for routes that live outside a
// RequireRole group such as the shared profile endpoint.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	allowed := roleSet(opts.Roles)
	requireUser := opts.RequireUser || len(allowed) > 0

	return func(c *fiber.Ctx) error {
		if requireUser && !hasCaller(c) {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if len(allowed) > 0 {
			if _, ok := allowed[normalizeRoleValue(c.Locals("user_role"))]; !ok {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_roles": opts.Roles})
			}
		}

		return handler(c)
	}
}
