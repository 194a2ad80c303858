package router

import (
	"github.com/PawTalesApp/PawTales/app/controllers"
	"github.com/PawTalesApp/PawTales/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Static pages
	app.Get("/about", loggedInMiddleware, controllers.HandleAbout)
	app.Get("/pricing", loggedInMiddleware, controllers.HandlePricing)

	// Public story browsing and short share URLs
	app.Get("/stories/public", loggedInMiddleware, controllers.HandlePublicStories)
	app.Get("/s/:sharelink", loggedInMiddleware, controllers.HandleStoryShareLink)
	app.Get("/p/:sharelink", loggedInMiddleware, controllers.HandlePetShareLink)

	// Stored media (pet photos, portraits, chapter illustrations)
	app.Get("/media/*", controllers.HandleMedia)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
