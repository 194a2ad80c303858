package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
)

func TestCachedPlanHonorsStaleMarker(t *testing.T) {
	// A downgrade webhook flags the cached plan; the session value must be
	// discarded so the entitlement is re-read from the database.
	assert.Equal(t, "", cachedPlan("pro", "1"))
	assert.Equal(t, "", cachedPlan("free", "1"))

	// Without a marker the session cache stays authoritative.
	assert.Equal(t, "pro", cachedPlan("pro", ""))
	assert.Equal(t, "free", cachedPlan("free", ""))
}

func TestPlanCacheStaleKeyPerUser(t *testing.T) {
	assert.Equal(t, "user:42:plan_stale", usercontext.PlanCacheStaleKey(42))
	assert.NotEqual(t, usercontext.PlanCacheStaleKey(1), usercontext.PlanCacheStaleKey(2))
}
