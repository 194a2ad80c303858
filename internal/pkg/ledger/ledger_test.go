package ledger

import (
	"context"
	"testing"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepository keeps entitlement rows in memory with the same point-update
// semantics the GORM repository has.
type fakeRepository struct {
	rows   map[uint]*models.UserEntitlement
	nextID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[uint]*models.UserEntitlement), nextID: 1}
}

func (f *fakeRepository) seed(ue models.UserEntitlement) {
	ue.ID = f.nextID
	f.nextID++
	f.rows[ue.UserID] = &ue
}

func (f *fakeRepository) GetOrCreateByUserID(userID uint) (*models.UserEntitlement, error) {
	if ue, ok := f.rows[userID]; ok {
		copied := *ue
		return &copied, nil
	}
	f.seed(models.UserEntitlement{UserID: userID, Plan: "free", CreditBalance: models.FreeStartingCredits})
	copied := *f.rows[userID]
	return &copied, nil
}

func (f *fakeRepository) GetByUserID(userID uint) (*models.UserEntitlement, error) {
	ue, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ue
	return &copied, nil
}

func (f *fakeRepository) GetByBillingCustomerID(customerID string) (*models.UserEntitlement, error) {
	for _, ue := range f.rows {
		if ue.BillingCustomerID != "" && ue.BillingCustomerID == customerID {
			copied := *ue
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) DecrementCredit(userID uint) (bool, error) {
	ue, ok := f.rows[userID]
	if !ok || ue.CreditBalance <= 0 {
		return false, nil
	}
	ue.CreditBalance--
	return true, nil
}

func (f *fakeRepository) SetPlan(userID uint, plan string) error {
	if ue, ok := f.rows[userID]; ok {
		ue.Plan = plan
	}
	return nil
}

func (f *fakeRepository) ActivatePro(userID uint, customerID string) error {
	ue, ok := f.rows[userID]
	if !ok {
		return nil
	}
	ue.Plan = "pro"
	ue.CreditBalance = models.CreditUnlimitedSentinel
	if customerID != "" {
		ue.BillingCustomerID = customerID
	}
	return nil
}

func TestCanAffordProIgnoresBalance(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 1, Plan: "pro", CreditBalance: models.CreditUnlimitedSentinel})
	repo.seed(models.UserEntitlement{UserID: 2, Plan: "pro", CreditBalance: 0})

	svc := NewService(repo)
	ctx := context.Background()

	for _, userID := range []uint{1, 2} {
		ok, err := svc.CanAfford(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok, "pro user %d should always afford", userID)
	}
}

func TestCanAffordFreeZeroBalance(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 7, Plan: "free", CreditBalance: 0})

	svc := NewService(repo)
	ok, err := svc.CanAfford(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.ConsumeCredit(context.Background(), 7)
	assert.ErrorIs(t, err, ErrInsufficientCredit)
}

func TestConsumeCreditExhaustsExactly(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 3, Plan: "free", CreditBalance: models.FreeStartingCredits})

	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < models.FreeStartingCredits; i++ {
		ue, err := svc.ConsumeCredit(ctx, 3)
		require.NoError(t, err, "consume %d should succeed", i+1)
		assert.Equal(t, models.FreeStartingCredits-i-1, ue.CreditBalance)
	}

	_, err := svc.ConsumeCredit(ctx, 3)
	assert.ErrorIs(t, err, ErrInsufficientCredit)

	// Final state unchanged by the failed consume.
	stored, err := repo.GetByUserID(3)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CreditBalance)
	assert.Equal(t, "free", stored.Plan)
}

func TestConsumeCreditProNoOp(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 4, Plan: "pro", CreditBalance: models.CreditUnlimitedSentinel})

	svc := NewService(repo)
	ue, err := svc.ConsumeCredit(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.CreditUnlimitedSentinel, ue.CreditBalance)

	stored, _ := repo.GetByUserID(4)
	assert.Equal(t, models.CreditUnlimitedSentinel, stored.CreditBalance)
}

func TestCheckoutCompletedUpgrades(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 10, Plan: "free", CreditBalance: 2})

	svc := NewService(repo)
	ue, err := svc.ApplyBillingEvent(context.Background(), BillingEvent{
		Type:       EventCheckoutCompleted,
		UserID:     10,
		CustomerID: "cus_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "pro", ue.Plan)
	assert.Equal(t, "cus_123", ue.BillingCustomerID)
	assert.Equal(t, models.CreditUnlimitedSentinel, ue.CreditBalance)
}

func TestCheckoutCompletedIdempotent(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 10, Plan: "free", CreditBalance: 2})

	svc := NewService(repo)
	ev := BillingEvent{Type: EventCheckoutCompleted, UserID: 10, CustomerID: "cus_123"}

	_, err := svc.ApplyBillingEvent(context.Background(), ev)
	require.NoError(t, err)
	first, _ := repo.GetByUserID(10)

	_, err = svc.ApplyBillingEvent(context.Background(), ev)
	require.NoError(t, err)
	second, _ := repo.GetByUserID(10)

	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.BillingCustomerID, second.BillingCustomerID)
	assert.Equal(t, first.CreditBalance, second.CreditBalance)
}

func TestSubscriptionLifecycle(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 20, Plan: "free", CreditBalance: 1})

	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.ApplyBillingEvent(ctx, BillingEvent{Type: EventCheckoutCompleted, UserID: 20, CustomerID: "cus_900"})
	require.NoError(t, err)

	// Grace statuses keep pro.
	for _, status := range []string{"active", "trialing", "past_due"} {
		ue, err := svc.ApplyBillingEvent(ctx, BillingEvent{Type: EventSubscriptionUpdated, CustomerID: "cus_900", Status: status})
		require.NoError(t, err)
		assert.Equal(t, "pro", ue.Plan, "status %q should stay entitling", status)
	}

	ue, err := svc.ApplyBillingEvent(ctx, BillingEvent{Type: EventSubscriptionUpdated, CustomerID: "cus_900", Status: "canceled"})
	require.NoError(t, err)
	assert.Equal(t, "free", ue.Plan)

	_, err = svc.ApplyBillingEvent(ctx, BillingEvent{Type: EventSubscriptionUpdated, CustomerID: "cus_900", Status: "active"})
	require.NoError(t, err)

	ue, err = svc.ApplyBillingEvent(ctx, BillingEvent{Type: EventSubscriptionDeleted, CustomerID: "cus_900"})
	require.NoError(t, err)
	assert.Equal(t, "free", ue.Plan)
}

func TestUnknownCustomerUnresolved(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 30, Plan: "free", CreditBalance: 5})

	svc := NewService(repo)
	_, err := svc.ApplyBillingEvent(context.Background(), BillingEvent{
		Type:       EventSubscriptionUpdated,
		CustomerID: "cus_missing",
		Status:     "active",
	})
	assert.ErrorIs(t, err, ErrUnresolvedUser)

	// No account in the system was mutated.
	stored, _ := repo.GetByUserID(30)
	assert.Equal(t, "free", stored.Plan)
	assert.Equal(t, 5, stored.CreditBalance)
}

func TestEventWithoutSubjectUnresolved(t *testing.T) {
	svc := NewService(newFakeRepository())
	_, err := svc.ApplyBillingEvent(context.Background(), BillingEvent{Type: EventSubscriptionDeleted})
	assert.ErrorIs(t, err, ErrUnresolvedUser)
}

func TestUnsupportedEventType(t *testing.T) {
	repo := newFakeRepository()
	repo.seed(models.UserEntitlement{UserID: 40, Plan: "free", CreditBalance: 5})

	svc := NewService(repo)
	_, err := svc.ApplyBillingEvent(context.Background(), BillingEvent{Type: "invoice_paid", UserID: 40})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnresolvedUser)
}

func TestSnapshotCreatesDefault(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	ue, err := svc.Snapshot(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "free", ue.Plan)
	assert.Equal(t, models.FreeStartingCredits, ue.CreditBalance)
}
