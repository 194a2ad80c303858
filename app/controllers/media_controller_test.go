package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PawTalesApp/PawTales/internal/pkg/storage"
)

type stubObjectStore struct {
	objects map[string][]byte
}

func newStubObjectStore() *stubObjectStore {
	return &stubObjectStore{objects: make(map[string][]byte)}
}

func (s *stubObjectStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	s.objects[key] = body
	return nil
}

func (s *stubObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

func (s *stubObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func newMediaTestApp(t *testing.T, store storage.ObjectStore) *fiber.App {
	t.Helper()
	prev := objectStore
	objectStore = store
	t.Cleanup(func() { objectStore = prev })

	app := fiber.New()
	app.Get("/media/*", HandleMedia)
	return app
}

func TestHandleMediaServesStoredObject(t *testing.T) {
	store := newStubObjectStore()
	store.objects["portraits/pet-uuid/r1.png"] = []byte("png-bytes")
	app := newMediaTestApp(t, store)

	req := httptest.NewRequest(http.MethodGet, "/media/portraits/pet-uuid/r1.png", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), body)
}

func TestHandleMediaUnknownKey(t *testing.T) {
	app := newMediaTestApp(t, newStubObjectStore())

	req := httptest.NewRequest(http.MethodGet, "/media/photos/nope.jpg", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleMediaRejectsForeignNamespace(t *testing.T) {
	store := newStubObjectStore()
	store.objects["internal/secret.png"] = []byte("nope")
	app := newMediaTestApp(t, store)

	req := httptest.NewRequest(http.MethodGet, "/media/internal/secret.png", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleMediaWithoutStore(t *testing.T) {
	app := newMediaTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/media/photos/a.png", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestIsServableMediaKey(t *testing.T) {
	valid := []string{
		"photos/pet-uuid.jpg",
		"portraits/pet-uuid/r1.png",
		"illustrations/story-uuid/ch01-r2.png",
	}
	for _, key := range valid {
		assert.True(t, isServableMediaKey(key), key)
	}

	invalid := []string{
		"",
		"photos/",
		"/photos/pet-uuid.jpg",
		"photos/../users.sql",
		"backups/db.sql",
	}
	for _, key := range invalid {
		assert.False(t, isServableMediaKey(key), key)
	}
}

func TestMediaContentType(t *testing.T) {
	assert.Equal(t, "image/png", mediaContentType("portraits/x/r1.png"))
	assert.Equal(t, "image/jpeg", mediaContentType("photos/x.JPG"))
	assert.Equal(t, "image/webp", mediaContentType("photos/x.webp"))
	assert.Equal(t, "application/octet-stream", mediaContentType("photos/x.bin"))
}

func TestDeleteStoredObjects(t *testing.T) {
	store := newStubObjectStore()
	store.objects["photos/a.jpg"] = []byte("a")
	store.objects["portraits/a/r1.png"] = []byte("b")
	prev := objectStore
	objectStore = store
	t.Cleanup(func() { objectStore = prev })

	deleteStoredObjects([]string{"photos/a.jpg", "", "portraits/a/r1.png"})
	assert.Empty(t, store.objects)
}
