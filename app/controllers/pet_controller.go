package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/app/repository"
	"github.com/PawTalesApp/PawTales/internal/pkg/constants"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/metrics/counter"
	"github.com/PawTalesApp/PawTales/internal/pkg/storage"
	"github.com/PawTalesApp/PawTales/internal/pkg/upload"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"
)

const maxPhotoSize = 10 * 1024 * 1024 // 10 MB

func HandleUserPets(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pets, err := repos.Pet.GetByUserID(userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load your pets"}).Redirect("/")
	}

	return c.Render("pets/index", fiber.Map{
		"Title":      "My pets",
		"IsLoggedIn": true,
		"Username":   userCtx.Username,
		"Pets":       pets,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	})
}

func HandlePetCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{"type": "error"}

		count, err := repos.Pet.CountByUserID(userCtx.UserID)
		if err != nil {
			fm["message"] = "Could not load your pets"
			return flash.WithError(c, fm).Redirect("/pets")
		}
		if int(count) >= entitlements.MaxPets(entitlements.NormalizePlan(userCtx.Plan)) {
			fm["message"] = "You reached the pet limit for your plan"
			return flash.WithError(c, fm).Redirect("/pets")
		}

		name := strings.TrimSpace(c.FormValue("name"))
		if name == "" {
			fm["message"] = "Your pet needs a name"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		fileHeader, err := c.FormFile("photo")
		if err != nil {
			fm["message"] = "Please upload a photo of your pet"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}
		if fileHeader.Size > maxPhotoSize {
			fm["message"] = "The photo is too large (max 10 MB)"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		file, err := fileHeader.Open()
		if err != nil {
			fm["message"] = "The photo could not be read"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}
		defer file.Close()

		body, err := io.ReadAll(io.LimitReader(file, maxPhotoSize))
		if err != nil {
			fm["message"] = "The photo could not be read"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		mime, err := upload.ValidatePhotoBySniff(fileHeader.Filename, body)
		if err != nil {
			fm["message"] = err.Error()
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		if objectStore == nil || storageKeys == nil {
			fm["message"] = "Photo uploads are temporarily unavailable, please try again later"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		petUUID := uuid.NewString()
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		key := storageKeys.PhotoKey(petUUID, ext)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := objectStore.Put(ctx, key, mime, body); err != nil {
			fm["message"] = "The photo could not be stored"
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		pet := &models.Pet{
			UUID:      petUUID,
			UserID:    userCtx.UserID,
			Name:      name,
			Species:   strings.TrimSpace(c.FormValue("species")),
			Breed:     strings.TrimSpace(c.FormValue("breed")),
			PhotoKey:  key,
			PhotoMime: mime,
			ShareLink: generateShareLink(),
		}
		if err := repos.Pet.Create(pet); err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)
			return flash.WithError(c, fm).Redirect("/pets/create")
		}

		fm = fiber.Map{
			"type":    "success",
			"message": fmt.Sprintf("%s joined your pack!", pet.Name),
		}
		return flash.WithSuccess(c, fm).Redirect("/pets/" + pet.UUID)
	}

	return c.Render("pets/create", fiber.Map{
		"Title":      "Add a pet",
		"IsLoggedIn": true,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	})
}

func HandlePetView(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByUUID(c.Params("uuid"))
	if err != nil || pet.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet not found"}).Redirect("/pets")
	}

	data := fiber.Map{
		"Title":      pet.Name,
		"IsLoggedIn": true,
		"Pet":        pet,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	}
	if persona, err := repos.Pet.GetPersona(pet.ID); err == nil {
		data["Persona"] = persona
	}

	return c.Render("pets/view", data)
}

func HandlePetDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByUUID(c.Params("uuid"))
	if err != nil || pet.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet not found"}).Redirect("/pets")
	}

	// Collect object keys before the rows disappear.
	objectKeys := []string{pet.PhotoKey}
	if persona, perr := repos.Pet.GetPersona(pet.ID); perr == nil && persona.PortraitKey != "" {
		objectKeys = append(objectKeys, persona.PortraitKey)
	}

	if err := repos.Pet.Delete(pet.ID); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet could not be deleted"}).Redirect("/pets")
	}

	deleteStoredObjects(objectKeys)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Pet deleted"}).Redirect("/pets")
}

func HandlePetShareToggle(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByUUID(c.Params("uuid"))
	if err != nil || pet.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet not found"}).Redirect("/pets")
	}

	pet.IsPublic = !pet.IsPublic
	if pet.IsPublic && pet.ShareLink == "" {
		pet.ShareLink = generateShareLink()
	}
	if err := repos.Pet.Update(pet); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Sharing could not be changed"}).Redirect("/pets/" + pet.UUID)
	}

	msg := "Your pet profile is now private"
	if pet.IsPublic {
		msg = "Your pet profile is now public"
	}
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": msg}).Redirect("/pets/" + pet.UUID)
}

// HandlePetShareLink renders the public profile of a shared pet.
func HandlePetShareLink(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByShareLink(c.Params("sharelink"))
	if err != nil || !pet.IsPublic {
		return c.Status(fiber.StatusNotFound).Render("pages/404", fiber.Map{"Title": "Not found"})
	}

	_ = counter.AddPetView(pet.ID)

	data := fiber.Map{
		"Title":      pet.Name,
		"IsLoggedIn": isLoggedIn(c),
		"Pet":        pet,
	}
	if persona, err := repos.Pet.GetPersona(pet.ID); err == nil {
		data["Persona"] = persona
	}

	return c.Render("pets/public", data)
}

func HandlePersonaLore(c *fiber.Ctx) error {
	return handlePersonaLore(c, false)
}

func HandlePersonaLoreRegenerate(c *fiber.Ctx) error {
	return handlePersonaLore(c, true)
}

func handlePersonaLore(c *fiber.Ctx, regenerate bool) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByUUID(c.Params("uuid"))
	if err != nil || pet.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet not found"}).Redirect("/pets")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := genSvc.GeneratePersonaLore(ctx, userCtx.UserID, pet.ID, regenerate); err != nil {
		return redirectGenerationError(c, err, "/pets/"+pet.UUID)
	}

	fm := fiber.Map{"type": "success", "message": "A fresh lore was written for " + pet.Name}
	return flash.WithSuccess(c, fm).Redirect("/pets/" + pet.UUID)
}

func HandlePersonaPortrait(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	pet, err := repos.Pet.GetByUUID(c.Params("uuid"))
	if err != nil || pet.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Pet not found"}).Redirect("/pets")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := genSvc.GeneratePersonaPortrait(ctx, userCtx.UserID, pet.ID); err != nil {
		return redirectGenerationError(c, err, "/pets/"+pet.UUID)
	}

	fm := fiber.Map{"type": "success", "message": "A new portrait was painted for " + pet.Name}
	return flash.WithSuccess(c, fm).Redirect("/pets/" + pet.UUID)
}

// redirectGenerationError maps generation failures to user-facing flashes.
// Running out of credits is an expected outcome, not an error page.
func redirectGenerationError(c *fiber.Ctx, err error, fallback string) error {
	if errors.Is(err, ledger.ErrInsufficientCredit) {
		fm := fiber.Map{"type": "error", "message": "You are out of credits. Upgrade to pro for unlimited generations!"}
		return flash.WithError(c, fm).Redirect(constants.PricingRoute)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fm := fiber.Map{"type": "error", "message": "Not found"}
		return flash.WithError(c, fm).Redirect(fallback)
	}
	if errors.Is(err, storage.ErrUnavailable) {
		fm := fiber.Map{"type": "error", "message": "Image generation is temporarily unavailable, please try again later"}
		return flash.WithError(c, fm).Redirect(fallback)
	}
	fm := fiber.Map{"type": "error", "message": "Generation failed, please try again"}
	return flash.WithError(c, fm).Redirect(fallback)
}
