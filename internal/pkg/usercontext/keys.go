package usercontext

import "fmt"

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyUserPlan      = "user_plan"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)

// PlanCacheStaleKey is the cache marker set when a billing event changed a
// user's plan. The middleware drops the session-cached plan on the user's
// next request when this key is present.
func PlanCacheStaleKey(userID uint) string {
	return fmt.Sprintf("user:%d:plan_stale", userID)
}
