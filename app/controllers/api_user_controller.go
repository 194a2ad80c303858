package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/app/repository"
	"github.com/PawTalesApp/PawTales/internal/pkg/database"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
)

// HandleAPIUserEntitlement returns the plan and credit projection for the
// authenticated user. Pro accounts report unlimited credits instead of a
// number.
func HandleAPIUserEntitlement(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load user"})
	}

	svc := ledger.NewServiceFromDB(database.GetDB())
	ent, err := svc.Snapshot(context.Background(), userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load entitlement"})
	}

	plan := entitlements.NormalizePlan(ent.Plan)

	var credits interface{}
	unlimited := true
	if n, ok := entitlements.CreditsRemaining(plan, ent.CreditBalance); ok {
		credits = n
		unlimited = false
	}

	return c.JSON(fiber.Map{
		"id":       account.ID,
		"username": account.Name,
		"email":    account.Email,
		"status":   account.Status,
		"is_admin": account.Role == models.ROLE_ADMIN,
		"plan":     string(plan),
		"entitlement": fiber.Map{
			"credits_remaining": credits,
			"unlimited":         unlimited,
			"has_billing":       ent.HasBillingCustomer(),
		},
		"limits": fiber.Map{
			"max_pets":               entitlements.MaxPets(plan),
			"max_chapters_per_story": entitlements.MaxChaptersPerStory(plan),
		},
		"created_at": account.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// HandleAPIUserPets lists the authenticated user's pets as JSON.
func HandleAPIUserPets(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repos := repository.GetGlobalRepositories()
	pets, err := repos.Pet.GetByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load pets"})
	}

	items := make([]fiber.Map, 0, len(pets))
	for _, pet := range pets {
		items = append(items, fiber.Map{
			"uuid":      pet.UUID,
			"name":      pet.Name,
			"species":   pet.Species,
			"breed":     pet.Breed,
			"is_public": pet.IsPublic,
		})
	}

	return c.JSON(fiber.Map{"pets": items})
}

// HandleAPIUserStories lists the authenticated user's stories as JSON.
func HandleAPIUserStories(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repos := repository.GetGlobalRepositories()
	stories, err := repos.Story.GetByUserID(userCtx.UserID, 0, 100)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load stories"})
	}

	items := make([]fiber.Map, 0, len(stories))
	for _, story := range stories {
		items = append(items, fiber.Map{
			"uuid":       story.UUID,
			"title":      story.Title,
			"status":     story.Status,
			"is_public":  story.IsPublic,
			"view_count": story.ViewCount,
			"created_at": story.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"stories": items})
}
