package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/PawTalesApp/PawTales/internal/pkg/constants"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
)

func testGenerationErrorRedirect(t *testing.T, err error, wantLocation string) {
	t.Helper()

	app := fiber.New()
	app.Post("/generate", func(c *fiber.Ctx) error {
		return redirectGenerationError(c, err, "/pets/abc")
	})

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	resp, respErr := app.Test(req, -1)
	require.NoError(t, respErr)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, wantLocation, resp.Header.Get("Location"))
}

func TestRedirectGenerationError_OutOfCreditsGoesToPricing(t *testing.T) {
	testGenerationErrorRedirect(t, ledger.ErrInsufficientCredit, constants.PricingRoute)
}

func TestRedirectGenerationError_NotFoundUsesFallback(t *testing.T) {
	testGenerationErrorRedirect(t, gorm.ErrRecordNotFound, "/pets/abc")
}

func TestRedirectGenerationError_GenericFailureUsesFallback(t *testing.T) {
	testGenerationErrorRedirect(t, errors.New("provider timeout"), "/pets/abc")
}

func TestGenerateShareLink(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		link := generateShareLink()
		require.Len(t, link, 12)
		assert.False(t, seen[link], "share links must not repeat")
		seen[link] = true
	}
}
