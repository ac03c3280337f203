package auth

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ideas/pkg/llm"
)

const identityKey = "ideas.identity"

// Middleware rejects requests that do not carry a valid bearer token with
// 401 and a Bearer challenge. It guards every route of the router it is
// mounted on; on success the Identity is available through IdentityFrom.
func Middleware(a Authenticator, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		tok, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c, "missing bearer token")
		}

		id, err := a.Authenticate(c.UserContext(), tok)
		if err != nil {
			logger.Debug("rejected bearer token", "path", c.Path(), "error", err)
			return unauthorized(c, "invalid bearer token")
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c *fiber.Ctx) (*Identity, bool) {
	id, ok := c.Locals(identityKey).(*Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func unauthorized(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="ideas"`)
	return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: msg})
}
