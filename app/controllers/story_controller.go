package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/app/repository"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"github.com/PawTalesApp/PawTales/internal/pkg/metrics/counter"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"
)

const storiesPerPage = 20

func HandleUserStories(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	stories, err := repos.Story.GetByUserID(userCtx.UserID, (page-1)*storiesPerPage, storiesPerPage)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load your stories"}).Redirect("/")
	}

	return c.Render("stories/index", fiber.Map{
		"Title":      "My stories",
		"IsLoggedIn": true,
		"Username":   userCtx.Username,
		"Stories":    stories,
		"Page":       page,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	})
}

func HandleStoryCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	if c.Method() == fiber.MethodPost {
		fm := fiber.Map{"type": "error"}

		pet, err := repos.Pet.GetByUUID(c.FormValue("pet"))
		if err != nil || pet.UserID != userCtx.UserID {
			fm["message"] = "Pick one of your pets for the story"
			return flash.WithError(c, fm).Redirect("/stories/create")
		}

		title := strings.TrimSpace(c.FormValue("title"))
		if title == "" {
			title = pet.Name + "'s adventure"
		}

		story := &models.Story{
			UUID:      uuid.NewString(),
			PetID:     pet.ID,
			UserID:    userCtx.UserID,
			Title:     title,
			Status:    models.StoryStatusDraft,
			ShareLink: generateShareLink(),
		}
		if err := repos.Story.Create(story); err != nil {
			fm["message"] = "The story could not be created"
			return flash.WithError(c, fm).Redirect("/stories/create")
		}

		fm = fiber.Map{"type": "success", "message": "Story created. Generate the first chapter!"}
		return flash.WithSuccess(c, fm).Redirect("/stories/" + story.UUID)
	}

	pets, err := repos.Pet.GetByUserID(userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load your pets"}).Redirect("/stories")
	}

	return c.Render("stories/create", fiber.Map{
		"Title":      "New story",
		"IsLoggedIn": true,
		"Pets":       pets,
		"CSRF":       c.Locals("csrf"),
		"Flash":      flash.Get(c),
	})
}

func HandleStoryView(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByUUID(c.Params("uuid"))
	if err != nil || story.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story not found"}).Redirect("/stories")
	}

	chapters, err := repos.Story.GetChapters(story.ID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load the chapters"}).Redirect("/stories")
	}

	maxChapters := entitlements.MaxChaptersPerStory(entitlements.NormalizePlan(userCtx.Plan))

	return c.Render("stories/view", fiber.Map{
		"Title":       story.Title,
		"IsLoggedIn":  true,
		"Story":       story,
		"Chapters":    chapters,
		"CanExtend":   len(chapters) < maxChapters,
		"MaxChapters": maxChapters,
		"CSRF":        c.Locals("csrf"),
		"Flash":       flash.Get(c),
	})
}

func HandleStoryShareToggle(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByUUID(c.Params("uuid"))
	if err != nil || story.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story not found"}).Redirect("/stories")
	}

	story.IsPublic = !story.IsPublic
	if story.IsPublic && story.ShareLink == "" {
		story.ShareLink = generateShareLink()
	}
	if err := repos.Story.Update(story); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Sharing could not be changed"}).Redirect("/stories/" + story.UUID)
	}

	msg := "Your story is now private"
	if story.IsPublic {
		msg = "Your story is now public"
	}
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": msg}).Redirect("/stories/" + story.UUID)
}

func HandleStoryDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByUUID(c.Params("uuid"))
	if err != nil || story.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story not found"}).Redirect("/stories")
	}

	// Collect illustration keys before the chapter rows disappear.
	var objectKeys []string
	if chapters, cerr := repos.Story.GetChapters(story.ID); cerr == nil {
		for _, chapter := range chapters {
			if chapter.IllustrationKey != "" {
				objectKeys = append(objectKeys, chapter.IllustrationKey)
			}
		}
	}

	if err := repos.Story.Delete(story.ID); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story could not be deleted"}).Redirect("/stories")
	}

	deleteStoredObjects(objectKeys)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Story deleted"}).Redirect("/stories")
}

func HandleChapterGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByUUID(c.Params("uuid"))
	if err != nil || story.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story not found"}).Redirect("/stories")
	}

	count, err := repos.Story.CountChapters(story.ID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load the chapters"}).Redirect("/stories/" + story.UUID)
	}
	if int(count) >= entitlements.MaxChaptersPerStory(entitlements.NormalizePlan(userCtx.Plan)) {
		fm := fiber.Map{"type": "error", "message": "This story reached the chapter limit for your plan"}
		return flash.WithError(c, fm).Redirect("/stories/" + story.UUID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := genSvc.GenerateChapter(ctx, userCtx.UserID, story.ID); err != nil {
		return redirectGenerationError(c, err, "/stories/"+story.UUID)
	}

	fm := fiber.Map{"type": "success", "message": "A new chapter was written!"}
	return flash.WithSuccess(c, fm).Redirect("/stories/" + story.UUID)
}

func HandleChapterIllustration(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByUUID(c.Params("uuid"))
	if err != nil || story.UserID != userCtx.UserID {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Story not found"}).Redirect("/stories")
	}

	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number < 1 {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Chapter not found"}).Redirect("/stories/" + story.UUID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := genSvc.RegenerateChapterImage(ctx, userCtx.UserID, story.ID, number); err != nil {
		return redirectGenerationError(c, err, "/stories/"+story.UUID)
	}

	fm := fiber.Map{"type": "success", "message": "The chapter got a new illustration!"}
	return flash.WithSuccess(c, fm).Redirect("/stories/" + story.UUID)
}

// HandlePublicStories renders the public story gallery.
func HandlePublicStories(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	stories, err := repos.Story.GetPublicStories((page-1)*storiesPerPage, storiesPerPage)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load the gallery"}).Redirect("/")
	}

	return c.Render("stories/public", fiber.Map{
		"Title":      "Story gallery",
		"IsLoggedIn": isLoggedIn(c),
		"Stories":    stories,
		"Page":       page,
	})
}

// HandleStoryShareLink renders a shared story for anyone with the link.
func HandleStoryShareLink(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()

	story, err := repos.Story.GetByShareLink(c.Params("sharelink"))
	if err != nil || !story.IsPublic {
		return c.Status(fiber.StatusNotFound).Render("pages/404", fiber.Map{"Title": "Not found"})
	}

	chapters, err := repos.Story.GetChapters(story.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("pages/404", fiber.Map{"Title": "Not found"})
	}

	_ = counter.AddStoryView(story.ID)

	return c.Render("stories/shared", fiber.Map{
		"Title":      story.Title,
		"IsLoggedIn": isLoggedIn(c),
		"Story":      story,
		"Chapters":   chapters,
	})
}
