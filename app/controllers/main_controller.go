package controllers

import (
	"context"

	"github.com/PawTalesApp/PawTales/internal/pkg/database"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

func HandleStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	data := fiber.Map{
		"Title":      "PawTales",
		"IsLoggedIn": userCtx.IsLoggedIn,
		"Username":   userCtx.Username,
		"Flash":      flash.Get(c),
	}

	if userCtx.IsLoggedIn {
		svc := ledger.NewServiceFromDB(database.GetDB())
		if ent, err := svc.Snapshot(context.Background(), userCtx.UserID); err == nil {
			plan := entitlements.NormalizePlan(ent.Plan)
			data["Plan"] = string(plan)
			if n, ok := entitlements.CreditsRemaining(plan, ent.CreditBalance); ok {
				data["Credits"] = n
			}
		}
	}

	return c.Render("pages/start", data)
}

func HandleAbout(c *fiber.Ctx) error {
	return c.Render("pages/about", fiber.Map{
		"Title":      "About",
		"IsLoggedIn": isLoggedIn(c),
	})
}

func HandlePricing(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	data := fiber.Map{
		"Title":      "Pricing",
		"IsLoggedIn": userCtx.IsLoggedIn,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	}

	if userCtx.IsLoggedIn {
		svc := ledger.NewServiceFromDB(database.GetDB())
		if ent, err := svc.Snapshot(context.Background(), userCtx.UserID); err == nil {
			plan := entitlements.NormalizePlan(ent.Plan)
			data["Plan"] = string(plan)
			data["IsPro"] = plan == entitlements.PlanPro
			if n, ok := entitlements.CreditsRemaining(plan, ent.CreditBalance); ok {
				data["Credits"] = n
			}
		}
	}

	return c.Render("pages/pricing", data)
}
