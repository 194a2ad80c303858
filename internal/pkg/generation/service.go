package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/app/repository"
	"github.com/PawTalesApp/PawTales/internal/pkg/ai"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/storage"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Costed generation kinds. Every kind spends exactly one credit on the free
// tier.
const (
	KindPersonaImage   = "persona-image"
	KindPersonaLore    = "persona-lore"
	KindStoryChapter   = "story-chapter"
	KindChapterImage   = "chapter-image-regeneration"
	KindLoreRegenerate = "lore-regeneration"
)

// Ledger is the entitlement gate consulted around every costed call.
type Ledger interface {
	CanAfford(ctx context.Context, userID uint) (bool, error)
	ConsumeCredit(ctx context.Context, userID uint) (*models.UserEntitlement, error)
}

// Service runs the costed generation workflows. The contract with the ledger
// is strict two-phase: check affordability before the external call, settle
// the credit only after the call succeeded. A failed call costs the operator
// money but never the user a credit.
type Service struct {
	ledger  Ledger
	gen     ai.Generator
	store   storage.ObjectStore
	keys    *storage.Config
	pets    repository.PetRepository
	stories repository.StoryRepository
}

// NewService wires the generation workflows from injected collaborators.
func NewService(l Ledger, gen ai.Generator, store storage.ObjectStore, keys *storage.Config, pets repository.PetRepository, stories repository.StoryRepository) *Service {
	return &Service{ledger: l, gen: gen, store: store, keys: keys, pets: pets, stories: stories}
}

// GeneratePersonaLore creates or regenerates the lore text for a pet.
func (s *Service) GeneratePersonaLore(ctx context.Context, userID uint, petID uint, regenerate bool) (*models.PetPersona, error) {
	pet, err := s.ownedPet(userID, petID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(ctx, userID); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"Write a short whimsical character lore (max 150 words) for a pet named %s (%s). Give the character a title on the first line.",
		pet.Name, describePet(pet),
	)
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	persona, err := s.pets.GetPersona(pet.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		persona = &models.PetPersona{PetID: pet.ID}
	}
	title, lore := splitLore(text)
	persona.Title = title
	persona.Lore = lore
	if regenerate {
		persona.LoreRegenCount++
	}
	if err := s.pets.SavePersona(persona); err != nil {
		return nil, err
	}

	kind := KindPersonaLore
	if regenerate {
		kind = KindLoreRegenerate
	}
	return persona, s.settle(ctx, userID, kind)
}

// GeneratePersonaPortrait creates or regenerates the illustrated portrait for
// a pet's persona.
func (s *Service) GeneratePersonaPortrait(ctx context.Context, userID uint, petID uint) (*models.PetPersona, error) {
	if err := s.storeReady(); err != nil {
		return nil, err
	}
	pet, err := s.ownedPet(userID, petID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(ctx, userID); err != nil {
		return nil, err
	}

	persona, err := s.pets.GetPersona(pet.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		persona = &models.PetPersona{PetID: pet.ID}
	}

	prompt := fmt.Sprintf(
		"A storybook illustration portrait of %s, a %s, in a warm watercolor style.",
		pet.Name, describePet(pet),
	)
	img, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	key := s.keys.PortraitKey(pet.UUID, persona.ImageRegenCount+1)
	if err := s.store.Put(ctx, key, "image/png", img); err != nil {
		return nil, err
	}

	persona.PortraitKey = key
	persona.ImageRegenCount++
	if err := s.pets.SavePersona(persona); err != nil {
		return nil, err
	}

	return persona, s.settle(ctx, userID, KindPersonaImage)
}

// GenerateChapter writes the next chapter of a story.
func (s *Service) GenerateChapter(ctx context.Context, userID uint, storyID uint) (*models.StoryChapter, error) {
	story, err := s.ownedStory(userID, storyID)
	if err != nil {
		return nil, err
	}
	pet, err := s.pets.GetByID(story.PetID)
	if err != nil {
		return nil, err
	}
	if err := s.gate(ctx, userID); err != nil {
		return nil, err
	}

	count, err := s.stories.CountChapters(story.ID)
	if err != nil {
		return nil, err
	}
	number := int(count) + 1

	prompt := fmt.Sprintf(
		"Write chapter %d of an illustrated children's story titled %q about %s (%s). 200-300 words. First line is the chapter title.",
		number, story.Title, pet.Name, describePet(pet),
	)
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	title, body := splitLore(text)
	chapter := &models.StoryChapter{
		StoryID: story.ID,
		Number:  number,
		Title:   title,
		Body:    body,
	}
	if err := s.stories.SaveChapter(chapter); err != nil {
		return nil, err
	}

	return chapter, s.settle(ctx, userID, KindStoryChapter)
}

// RegenerateChapterImage redraws the illustration of an existing chapter.
func (s *Service) RegenerateChapterImage(ctx context.Context, userID uint, storyID uint, number int) (*models.StoryChapter, error) {
	if err := s.storeReady(); err != nil {
		return nil, err
	}
	story, err := s.ownedStory(userID, storyID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.stories.GetChapter(story.ID, number)
	if err != nil {
		return nil, err
	}
	if err := s.gate(ctx, userID); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"A storybook illustration for the chapter %q: %s",
		chapter.Title, excerpt(chapter.Body, 300),
	)
	img, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	key := s.keys.IllustrationKey(story.UUID, chapter.Number, chapter.ImageRegenCount+1)
	if err := s.store.Put(ctx, key, "image/png", img); err != nil {
		return nil, err
	}

	chapter.IllustrationKey = key
	chapter.ImageRegenCount++
	if err := s.stories.SaveChapter(chapter); err != nil {
		return nil, err
	}

	return chapter, s.settle(ctx, userID, KindChapterImage)
}

// storeReady rejects image workflows before any credit check or external
// call when no object store is wired. An unconfigured store must surface as
// an error, never as a nil dereference mid-workflow.
func (s *Service) storeReady() error {
	if s.store == nil || s.keys == nil {
		return storage.ErrUnavailable
	}
	return nil
}

// gate rejects the workflow pre-flight when the user cannot afford one
// generation. The same condition is re-validated atomically at settle time.
func (s *Service) gate(ctx context.Context, userID uint) error {
	ok, err := s.ledger.CanAfford(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrInsufficientCredit
	}
	return nil
}

// settle consumes one credit after a successful external call. A losing
// concurrent race surfaces the ledger rejection; the completed external call
// is operator cost either way.
func (s *Service) settle(ctx context.Context, userID uint, kind string) error {
	if _, err := s.ledger.ConsumeCredit(ctx, userID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredit) {
			return err
		}
		log.Errorf("[Generation] credit settle failed for user %d kind %s: %v", userID, kind, err)
		return err
	}
	return nil
}

func (s *Service) ownedPet(userID, petID uint) (*models.Pet, error) {
	pet, err := s.pets.GetByID(petID)
	if err != nil {
		return nil, err
	}
	if pet.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return pet, nil
}

func (s *Service) ownedStory(userID, storyID uint) (*models.Story, error) {
	story, err := s.stories.GetByID(storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return story, nil
}

func describePet(pet *models.Pet) string {
	parts := make([]string, 0, 2)
	if pet.Species != "" {
		parts = append(parts, pet.Species)
	}
	if pet.Breed != "" {
		parts = append(parts, pet.Breed)
	}
	if len(parts) == 0 {
		return "beloved pet"
	}
	return strings.Join(parts, ", ")
}

// splitLore separates the first line (title) from the remaining text.
func splitLore(text string) (title, body string) {
	trimmed := strings.TrimSpace(text)
	if idx := strings.IndexByte(trimmed, '\n'); idx > 0 {
		return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+1:])
	}
	return "", trimmed
}

func excerpt(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max]
}
