package utils

import (
	apperrors "arbitra/internal/errors"
	"arbitra/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ActorKey is the fiber local holding the authenticated *models.Actor.
const ActorKey = "actor"

// GetActor extracts the caller from the Fiber context.
func GetActor(c *fiber.Ctx) (*models.Actor, error) {
	actor, ok := c.Locals(ActorKey).(*models.Actor)
	if !ok || actor == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return actor, nil
}
