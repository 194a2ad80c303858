package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Service is the single source of truth for whether a user may perform a
// costed generation right now, and for applying the tier/credit consequences
// of generation attempts and billing events.
type Service struct {
	repo Repository
}

// NewService creates an entitlement ledger from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates an entitlement ledger from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Snapshot returns the current entitlement state for UI projection, creating
// the free-tier default row for users that never touched the ledger.
func (s *Service) Snapshot(ctx context.Context, userID uint) (*models.UserEntitlement, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	return s.repo.GetOrCreateByUserID(userID)
}

// CanAfford reports whether the user may start one costed generation.
// Read-only; safe to call repeatedly for UI gating.
func (s *Service) CanAfford(ctx context.Context, userID uint) (bool, error) {
	ue, err := s.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return entitlements.CanAfford(entitlements.NormalizePlan(ue.Plan), ue.CreditBalance), nil
}

// ConsumeCredit settles one successful costed generation. Callers must invoke
// it only after the external call succeeded, so a failed generation never
// burns a credit. Pro accounts are a no-op. Free accounts get an atomic
// storage-level decrement; the balance guard is re-validated there to close
// the race between an earlier CanAfford check and this call.
func (s *Service) ConsumeCredit(ctx context.Context, userID uint) (*models.UserEntitlement, error) {
	ue, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	if entitlements.NormalizePlan(ue.Plan) == entitlements.PlanPro {
		return ue, nil
	}

	changed, err := s.repo.DecrementCredit(userID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrInsufficientCredit
	}
	ue.CreditBalance--
	return ue, nil
}

// ApplyBillingEvent transitions the plan tier in response to a provider
// notification. All effects are idempotent field sets: replaying an event
// leaves state identical to applying it once. Out-of-order delivery is
// last-write-wins; the provider stream carries no ordering guarantee.
func (s *Service) ApplyBillingEvent(ctx context.Context, ev BillingEvent) (*models.UserEntitlement, error) {
	_ = ctx
	ue, err := s.resolve(ev)
	if err != nil {
		return nil, err
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		if err := s.repo.ActivatePro(ue.UserID, ev.CustomerID); err != nil {
			return nil, err
		}
		ue.Plan = string(entitlements.PlanPro)
		ue.CreditBalance = models.CreditUnlimitedSentinel
		if ev.CustomerID != "" {
			ue.BillingCustomerID = ev.CustomerID
		}
		return ue, nil

	case EventSubscriptionUpdated:
		plan := entitlements.PlanFree
		if isEntitlingStatus(ev.Status) {
			plan = entitlements.PlanPro
		}
		if err := s.repo.SetPlan(ue.UserID, string(plan)); err != nil {
			return nil, err
		}
		ue.Plan = string(plan)
		return ue, nil

	case EventSubscriptionDeleted:
		if err := s.repo.SetPlan(ue.UserID, string(entitlements.PlanFree)); err != nil {
			return nil, err
		}
		ue.Plan = string(entitlements.PlanFree)
		return ue, nil

	default:
		return nil, fmt.Errorf("unsupported billing event type %q", ev.Type)
	}
}

// resolve locates the entitlement row for an event, preferring the explicit
// user id carried by checkout events over the billing customer reference.
func (s *Service) resolve(ev BillingEvent) (*models.UserEntitlement, error) {
	if ev.UserID != 0 {
		ue, err := s.repo.GetByUserID(ev.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: user %d", ErrUnresolvedUser, ev.UserID)
			}
			return nil, err
		}
		return ue, nil
	}
	if ev.CustomerID != "" {
		ue, err := s.repo.GetByBillingCustomerID(ev.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: customer %s", ErrUnresolvedUser, ev.CustomerID)
			}
			return nil, err
		}
		return ue, nil
	}
	return nil, ErrUnresolvedUser
}
