package router

import (
	"github.com/PawTalesApp/PawTales/app/controllers"
	"github.com/PawTalesApp/PawTales/internal/pkg/middleware"
	"github.com/PawTalesApp/PawTales/internal/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Wire controllers to their services and repositories
	controllers.InitializeControllers()

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func loggedInMiddleware(c *fiber.Ctx) error {
	// UserContextMiddleware already set all user context.
	// All user information is available via usercontext.GetUserContext(c).
	return c.Next()
}
