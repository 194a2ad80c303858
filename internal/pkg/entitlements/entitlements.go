package entitlements

import "strings"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// NormalizePlan maps arbitrary stored plan strings onto a known plan.
// Unknown values degrade to free so a bad row can never grant pro access.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// CanAfford reports whether one costed generation may be started right now.
// Pro accounts always pass; the credit balance is not consulted for them
// (it may hold the unlimited sentinel or stale values). Free accounts need
// at least one remaining credit.
func CanAfford(plan Plan, creditBalance int) bool {
	if plan == PlanPro {
		return true
	}
	return creditBalance > 0
}

// CreditsRemaining returns the displayable credit count for UI gating text.
// Pro accounts have no meaningful count; ok is false for them.
func CreditsRemaining(plan Plan, creditBalance int) (n int, ok bool) {
	if plan == PlanPro {
		return 0, false
	}
	if creditBalance < 0 {
		return 0, true
	}
	return creditBalance, true
}

// MaxPets returns how many pets a plan may register.
func MaxPets(plan Plan) int {
	if plan == PlanPro {
		return 25
	}
	return 3
}

// MaxChaptersPerStory returns the chapter cap for newly created stories.
func MaxChaptersPerStory(plan Plan) int {
	if plan == PlanPro {
		return 10
	}
	return 3
}
