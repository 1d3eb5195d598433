package router

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gomesmer/mesmer/app/controllers"
	"github.com/gomesmer/mesmer/internal/pkg/config"
)

// InternalRouter exposes the job trigger endpoints. They are meant to be
// called by an external scheduler (cron) holding the shared trigger secret.
type InternalRouter struct {
}

func (h InternalRouter) InstallRouter(app *fiber.App) {
	internal := app.Group("/api/internal", requireTriggerSecret)
	internal.Post("/charge-admission", controllers.HandleChargeAdmission)
	internal.Post("/sync-mrr", controllers.HandleSyncMRR)
}

func NewInternalRouter() *InternalRouter {
	return &InternalRouter{}
}

func requireTriggerSecret(c *fiber.Ctx) error {
	secret := config.Load().TriggerSecret

	auth := c.Get(fiber.HeaderAuthorization)
	bearer, ok := strings.CutPrefix(auth, "Bearer ")
	if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(bearer), []byte(secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	return c.Next()
}
