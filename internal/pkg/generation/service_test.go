package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeLedger struct {
	affordable bool
	consumed   int
	consumeErr error
}

func (f *fakeLedger) CanAfford(ctx context.Context, userID uint) (bool, error) {
	return f.affordable, nil
}

func (f *fakeLedger) ConsumeCredit(ctx context.Context, userID uint) (*models.UserEntitlement, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.consumed++
	return &models.UserEntitlement{UserID: userID}, nil
}

type fakeGenerator struct {
	text  string
	img   []byte
	err   error
	calls int
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type fakePetRepo struct {
	pets     map[uint]*models.Pet
	personas map[uint]*models.PetPersona
}

func newFakePetRepo() *fakePetRepo {
	return &fakePetRepo{pets: make(map[uint]*models.Pet), personas: make(map[uint]*models.PetPersona)}
}

func (f *fakePetRepo) Create(pet *models.Pet) error { f.pets[pet.ID] = pet; return nil }
func (f *fakePetRepo) GetByID(id uint) (*models.Pet, error) {
	if p, ok := f.pets[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakePetRepo) GetByUUID(uuid string) (*models.Pet, error)      { return nil, gorm.ErrRecordNotFound }
func (f *fakePetRepo) GetByShareLink(link string) (*models.Pet, error) { return nil, gorm.ErrRecordNotFound }
func (f *fakePetRepo) GetByUserID(userID uint) ([]models.Pet, error)   { return nil, nil }
func (f *fakePetRepo) CountByUserID(userID uint) (int64, error)        { return int64(len(f.pets)), nil }
func (f *fakePetRepo) Update(pet *models.Pet) error                    { return nil }
func (f *fakePetRepo) Delete(id uint) error                            { return nil }
func (f *fakePetRepo) GetPersona(petID uint) (*models.PetPersona, error) {
	if p, ok := f.personas[petID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakePetRepo) SavePersona(persona *models.PetPersona) error {
	f.personas[persona.PetID] = persona
	return nil
}

type fakeStoryRepo struct {
	stories  map[uint]*models.Story
	chapters map[uint][]*models.StoryChapter
}

func newFakeStoryRepo() *fakeStoryRepo {
	return &fakeStoryRepo{stories: make(map[uint]*models.Story), chapters: make(map[uint][]*models.StoryChapter)}
}

func (f *fakeStoryRepo) Create(story *models.Story) error { f.stories[story.ID] = story; return nil }
func (f *fakeStoryRepo) GetByID(id uint) (*models.Story, error) {
	if s, ok := f.stories[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeStoryRepo) GetByUUID(uuid string) (*models.Story, error)      { return nil, gorm.ErrRecordNotFound }
func (f *fakeStoryRepo) GetByShareLink(link string) (*models.Story, error) { return nil, gorm.ErrRecordNotFound }
func (f *fakeStoryRepo) GetByUserID(userID uint, offset, limit int) ([]models.Story, error) {
	return nil, nil
}
func (f *fakeStoryRepo) GetPublicStories(offset, limit int) ([]models.Story, error) { return nil, nil }
func (f *fakeStoryRepo) Update(story *models.Story) error                           { return nil }
func (f *fakeStoryRepo) Delete(id uint) error                                       { return nil }
func (f *fakeStoryRepo) GetChapters(storyID uint) ([]models.StoryChapter, error)    { return nil, nil }
func (f *fakeStoryRepo) GetChapter(storyID uint, number int) (*models.StoryChapter, error) {
	for _, ch := range f.chapters[storyID] {
		if ch.Number == number {
			return ch, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeStoryRepo) SaveChapter(chapter *models.StoryChapter) error {
	for i, ch := range f.chapters[chapter.StoryID] {
		if ch.Number == chapter.Number {
			f.chapters[chapter.StoryID][i] = chapter
			return nil
		}
	}
	f.chapters[chapter.StoryID] = append(f.chapters[chapter.StoryID], chapter)
	return nil
}
func (f *fakeStoryRepo) CountChapters(storyID uint) (int64, error) {
	return int64(len(f.chapters[storyID])), nil
}
func (f *fakeStoryRepo) AddViewCount(id uint, delta int64) error { return nil }

func newTestService(l Ledger, gen *fakeGenerator) (*Service, *fakePetRepo, *fakeStoryRepo, *fakeStore) {
	pets := newFakePetRepo()
	stories := newFakeStoryRepo()
	store := newFakeStore()
	keys := &storage.Config{BucketName: "test"}
	return NewService(l, gen, store, keys, pets, stories), pets, stories, store
}

func seedPet(pets *fakePetRepo) *models.Pet {
	pet := &models.Pet{ID: 1, UUID: "pet-uuid", UserID: 10, Name: "Waffles", Species: "cat"}
	pets.pets[pet.ID] = pet
	return pet
}

func TestGeneratePersonaLoreConsumesAfterSuccess(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{text: "Sir Waffles the Bold\nA cat of daring naps."}
	svc, pets, _, _ := newTestService(l, gen)
	seedPet(pets)

	persona, err := svc.GeneratePersonaLore(context.Background(), 10, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Sir Waffles the Bold", persona.Title)
	assert.Equal(t, "A cat of daring naps.", persona.Lore)
	assert.Equal(t, 0, persona.LoreRegenCount)
	assert.Equal(t, 1, l.consumed)
}

func TestGeneratePersonaLoreRejectedPreFlight(t *testing.T) {
	l := &fakeLedger{affordable: false}
	gen := &fakeGenerator{text: "unused"}
	svc, pets, _, _ := newTestService(l, gen)
	seedPet(pets)

	_, err := svc.GeneratePersonaLore(context.Background(), 10, 1, false)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredit)
	// The costed external call must never happen when rejected pre-flight.
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, l.consumed)
}

func TestFailedGenerationNeverConsumes(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	svc, pets, _, _ := newTestService(l, gen)
	seedPet(pets)

	_, err := svc.GeneratePersonaLore(context.Background(), 10, 1, false)
	assert.Error(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 0, l.consumed)
}

func TestLoreRegenerationBumpsCounter(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{text: "New Title\nNew lore."}
	svc, pets, _, _ := newTestService(l, gen)
	pet := seedPet(pets)
	pets.personas[pet.ID] = &models.PetPersona{PetID: pet.ID, Title: "Old", Lore: "Old lore.", LoreRegenCount: 1}

	persona, err := svc.GeneratePersonaLore(context.Background(), 10, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, persona.LoreRegenCount)
	assert.Equal(t, "New Title", persona.Title)
}

func TestGeneratePersonaPortraitStoresImage(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{img: []byte{0x89, 'P', 'N', 'G'}}
	svc, pets, _, store := newTestService(l, gen)
	seedPet(pets)

	persona, err := svc.GeneratePersonaPortrait(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "portraits/pet-uuid/r1.png", persona.PortraitKey)
	assert.Equal(t, 1, persona.ImageRegenCount)
	assert.Contains(t, store.objects, persona.PortraitKey)
	assert.Equal(t, 1, l.consumed)
}

func TestGenerateChapterNumbersSequentially(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{text: "The Great Escape\nOnce upon a time..."}
	svc, pets, stories, _ := newTestService(l, gen)
	pet := seedPet(pets)
	stories.stories[5] = &models.Story{ID: 5, UUID: "story-uuid", PetID: pet.ID, UserID: 10, Title: "Waffles Abroad"}

	first, err := svc.GenerateChapter(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)

	second, err := svc.GenerateChapter(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Number)
	assert.Equal(t, 2, l.consumed)
}

func TestRegenerateChapterImage(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{img: []byte{1, 2, 3}}
	svc, pets, stories, store := newTestService(l, gen)
	pet := seedPet(pets)
	stories.stories[5] = &models.Story{ID: 5, UUID: "story-uuid", PetID: pet.ID, UserID: 10}
	stories.chapters[5] = []*models.StoryChapter{{StoryID: 5, Number: 1, Title: "Ch1", Body: "text", ImageRegenCount: 1}}

	chapter, err := svc.RegenerateChapterImage(context.Background(), 10, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "illustrations/story-uuid/ch01-r2.png", chapter.IllustrationKey)
	assert.Equal(t, 2, chapter.ImageRegenCount)
	assert.Contains(t, store.objects, chapter.IllustrationKey)
}

func TestOwnershipEnforced(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{text: "x\ny"}
	svc, pets, _, _ := newTestService(l, gen)
	seedPet(pets)

	// Different user cannot generate against someone else's pet.
	_, err := svc.GeneratePersonaLore(context.Background(), 99, 1, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, gen.calls)
}

func TestSettleRaceSurfacesRejection(t *testing.T) {
	// CanAfford passed, but a concurrent request drained the last credit
	// before settlement. The atomic decrement re-validates and rejects.
	l := &fakeLedger{affordable: true, consumeErr: ledger.ErrInsufficientCredit}
	gen := &fakeGenerator{text: "t\nb"}
	svc, pets, _, _ := newTestService(l, gen)
	seedPet(pets)

	_, err := svc.GeneratePersonaLore(context.Background(), 10, 1, false)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCredit)
}

func TestPortraitWithoutObjectStoreRejectedBeforeSpending(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{img: []byte{1}}
	pets := newFakePetRepo()
	svc := NewService(l, gen, nil, nil, pets, newFakeStoryRepo())
	seedPet(pets)

	_, err := svc.GeneratePersonaPortrait(context.Background(), 10, 1)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	// No external call and no credit movement when storage is down.
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, l.consumed)
}

func TestChapterImageWithoutObjectStoreRejectedBeforeSpending(t *testing.T) {
	l := &fakeLedger{affordable: true}
	gen := &fakeGenerator{img: []byte{1}}
	pets := newFakePetRepo()
	stories := newFakeStoryRepo()
	svc := NewService(l, gen, nil, nil, pets, stories)
	pet := seedPet(pets)
	stories.stories[5] = &models.Story{ID: 5, UUID: "story-uuid", PetID: pet.ID, UserID: 10}
	stories.chapters[5] = []*models.StoryChapter{{StoryID: 5, Number: 1, Title: "Ch1", Body: "text"}}

	_, err := svc.RegenerateChapterImage(context.Background(), 10, 5, 1)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, l.consumed)
}
