package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AllowedMethods rejects any request whose method is not listed with a 405
// and an Allow header.
func AllowedMethods(methods ...string) fiber.Handler {
	allow := strings.Join(methods, ", ")
	return func(c *fiber.Ctx) error {
		for _, m := range methods {
			if c.Method() == m {
				return c.Next()
			}
		}
		c.Set(fiber.HeaderAllow, allow)
		return errMethodNotAllowed(c, "method "+c.Method()+" not allowed")
	}
}

// SignInRequired rejects anonymous callers with a 401 and stores the
// authenticated user in the request locals.
func SignInRequired(auth *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if auth == nil {
			return errUnauthorized(c, errNoCredentials.Error())
		}
		user, err := auth.Authenticate(c)
		if err != nil {
			return errUnauthorized(c, err.Error())
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// getOnly chains the method guard in front of handlers.
func getOnly(handlers ...fiber.Handler) []fiber.Handler {
	return append([]fiber.Handler{AllowedMethods(fiber.MethodGet)}, handlers...)
}
