package router

import (
	"github.com/PawTalesApp/PawTales/app/controllers"
	"github.com/PawTalesApp/PawTales/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/user/entitlement", middleware.RequireAPISessionAuth, controllers.HandleAPIUserEntitlement)
	v1.Get("/user/pets", middleware.RequireAPISessionAuth, controllers.HandleAPIUserPets)
	v1.Get("/user/stories", middleware.RequireAPISessionAuth, controllers.HandleAPIUserStories)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
