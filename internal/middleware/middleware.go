package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	// Identity headers set by the API gateway after authentication.
	HeaderUserID          = "X-User-ID"
	HeaderUserPermissions = "X-User-Permissions"

	// Placement permissions
	ReadAllPlacementPermission = "read:placement:all"

	// Question bank permissions
	ReadQuestionPermission   = "read:question"
	WriteQuestionPermission  = "write:question"
	DeleteQuestionPermission = "delete:question"

	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

// UserID returns the authenticated caller, or "".
func UserID(c fiber.Ctx) string {
	return strings.TrimSpace(c.Get(HeaderUserID))
}

// HasPermission reports whether the caller holds permission. Admins and managers hold every permission.
func HasPermission(c fiber.Ctx, permission string) bool {
	userPermissions := c.Get(HeaderUserPermissions)
	if userPermissions == "" {
		return false
	}
	for _, perm := range strings.Split(userPermissions, ",") {
		perm = strings.TrimSpace(perm)
		if perm == permission || strings.HasPrefix(perm, AdminPermission) || strings.HasPrefix(perm, ManagerPermission) {
			return true
		}
	}
	return false
}

// RequireUser rejects requests that did not come through the gateway with an identity.
func RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		if UserID(c) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

func PermissionRequired(permission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !HasPermission(c, permission) {
			log.Printf("Permission %s denied for user %q calling %s %s", permission, UserID(c), c.Method(), c.OriginalURL())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden",
			})
		}
		return c.Next()
	}
}

// OwnerOrPermission lets the user named by the :userId route param through,
// as well as anyone holding permission.
func OwnerOrPermission(permission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		owner := c.Params("userId")
		if owner != "" && owner == UserID(c) {
			return c.Next()
		}
		if HasPermission(c, permission) {
			return c.Next()
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden",
		})
	}
}
