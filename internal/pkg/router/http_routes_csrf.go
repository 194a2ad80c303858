package router

import (
	"strings"
	"time"

	"github.com/PawTalesApp/PawTales/app/controllers"
	"github.com/PawTalesApp/PawTales/internal/pkg/env"
	"github.com/PawTalesApp/PawTales/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)
	group.Post("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Pets and personas
	group.Get("/pets", middleware.RequireAuth, controllers.HandleUserPets)
	group.Get("/pets/create", middleware.RequireAuth, controllers.HandlePetCreate)
	group.Post("/pets/create", middleware.RequireAuth, controllers.HandlePetCreate)
	group.Get("/pets/:uuid", middleware.RequireAuth, controllers.HandlePetView)
	group.Post("/pets/:uuid/delete", middleware.RequireAuth, controllers.HandlePetDelete)
	group.Post("/pets/:uuid/share", middleware.RequireAuth, controllers.HandlePetShareToggle)
	group.Post("/pets/:uuid/persona/lore", middleware.RequireAuth, controllers.HandlePersonaLore)
	group.Post("/pets/:uuid/persona/lore/regenerate", middleware.RequireAuth, controllers.HandlePersonaLoreRegenerate)
	group.Post("/pets/:uuid/persona/portrait", middleware.RequireAuth, controllers.HandlePersonaPortrait)

	// Stories and chapters
	group.Get("/stories", middleware.RequireAuth, controllers.HandleUserStories)
	group.Get("/stories/create", middleware.RequireAuth, controllers.HandleStoryCreate)
	group.Post("/stories/create", middleware.RequireAuth, controllers.HandleStoryCreate)
	group.Get("/stories/:uuid", middleware.RequireAuth, controllers.HandleStoryView)
	group.Post("/stories/:uuid/delete", middleware.RequireAuth, controllers.HandleStoryDelete)
	group.Post("/stories/:uuid/share", middleware.RequireAuth, controllers.HandleStoryShareToggle)
	group.Post("/stories/:uuid/chapters", middleware.RequireAuth, controllers.HandleChapterGenerate)
	group.Post("/stories/:uuid/chapters/:number/illustration", middleware.RequireAuth, controllers.HandleChapterIllustration)

	// Billing
	group.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleCheckoutStart)
	group.Post("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)
	group.Post("/billing/resync", middleware.RequireAuth, controllers.HandleBillingResync)
	group.Get("/billing/success", middleware.RequireAuth, controllers.HandleCheckoutSuccess)
	group.Get("/billing/cancel", middleware.RequireAuth, controllers.HandleCheckoutCancel)
}
