package entitlements

import "testing"

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: " pro ", want: PlanPro},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanAffordPro(t *testing.T) {
	// Pro passes regardless of balance, including the unlimited sentinel.
	for _, balance := range []int{-1, 0, 3, -42} {
		if !CanAfford(PlanPro, balance) {
			t.Fatalf("expected pro plan to afford with balance %d", balance)
		}
	}
}

func TestCanAffordFree(t *testing.T) {
	if CanAfford(PlanFree, 0) {
		t.Fatalf("expected free plan with zero balance to be rejected")
	}
	if CanAfford(PlanFree, -1) {
		t.Fatalf("expected free plan with negative balance to be rejected")
	}
	if !CanAfford(PlanFree, 1) {
		t.Fatalf("expected free plan with one credit to pass")
	}
}

func TestCreditsRemaining(t *testing.T) {
	if _, ok := CreditsRemaining(PlanPro, 5); ok {
		t.Fatalf("expected no displayable credit count for pro")
	}
	if n, ok := CreditsRemaining(PlanFree, 3); !ok || n != 3 {
		t.Fatalf("CreditsRemaining(free, 3) = %d, %v", n, ok)
	}
	// Negative balances must never leak into UI text.
	if n, ok := CreditsRemaining(PlanFree, -1); !ok || n != 0 {
		t.Fatalf("CreditsRemaining(free, -1) = %d, %v", n, ok)
	}
}

func TestPlanLimits(t *testing.T) {
	if MaxPets(PlanFree) >= MaxPets(PlanPro) {
		t.Fatalf("expected pro pet cap to exceed free")
	}
	if MaxChaptersPerStory(PlanFree) >= MaxChaptersPerStory(PlanPro) {
		t.Fatalf("expected pro chapter cap to exceed free")
	}
}
