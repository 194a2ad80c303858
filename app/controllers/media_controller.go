package controllers

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Object key prefixes that may be served publicly. Keys are built from
// UUIDs, so knowing a URL requires knowing the object.
var servableMediaPrefixes = []string{"photos/", "portraits/", "illustrations/"}

// HandleMedia streams a stored object (pet photo, portrait or chapter
// illustration) to the browser.
func HandleMedia(c *fiber.Ctx) error {
	if objectStore == nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	key := c.Params("*")
	if !isServableMediaKey(key) {
		return c.SendStatus(fiber.StatusNotFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := objectStore.Get(ctx, key)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}

	c.Set(fiber.HeaderContentType, mediaContentType(key))
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(body)
}

// isServableMediaKey restricts media URLs to the key namespaces the app
// writes and rejects traversal attempts.
func isServableMediaKey(key string) bool {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return false
	}
	for _, prefix := range servableMediaPrefixes {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return true
		}
	}
	return false
}

func mediaContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
