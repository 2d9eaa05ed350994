package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rez77/talabot/internal/models"
)

func TestExtendedExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("active subscription keeps remaining days", func(t *testing.T) {
		current := now.AddDate(0, 0, 5)
		got := ExtendedExpiry(current, now, 1)
		assert.Equal(t, current.AddDate(0, 0, 30), got)
	})

	t.Run("lapsed subscription extends from now", func(t *testing.T) {
		current := now.AddDate(0, 0, -40)
		got := ExtendedExpiry(current, now, 1)
		assert.Equal(t, now.AddDate(0, 0, 30), got)
	})

	t.Run("multiple months", func(t *testing.T) {
		current := now.AddDate(0, 0, 5)
		got := ExtendedExpiry(current, now, 3)
		assert.Equal(t, current.AddDate(0, 0, 90), got)
	})
}

func subTestFixture(t *testing.T) (*SubscriptionService, *models.User) {
	t.Helper()
	db := setupTestDB(t, t.Name())
	users := NewUserService(db, 30)
	users.Now = fixedNow
	user, err := users.GetOrCreate(NewUserInput{TelegramID: 1})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	svc := NewSubscriptionService(db)
	svc.Now = fixedNow
	return svc, user
}

func TestExtendActiveSubscription(t *testing.T) {
	svc, user := subTestFixture(t)

	if err := svc.Extend(user.ID, 980000, "ref-1", 1); err != nil {
		t.Fatalf("extend: %v", err)
	}

	sub, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// the trial had 30 days left, so one paid month lands at +60 days
	want := fixedNow().AddDate(0, 0, 60)
	if !sub.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v got %v", want, sub.ExpiresAt)
	}
	if sub.Status != models.StatusActive {
		t.Fatalf("expected active status got %s", sub.Status)
	}
	if sub.PaymentAmount != 980000 || sub.PaymentReference != "ref-1" {
		t.Fatalf("expected payment recorded, got %d %q", sub.PaymentAmount, sub.PaymentReference)
	}
}

func TestExtendLapsedSubscription(t *testing.T) {
	svc, user := subTestFixture(t)

	lapsed := fixedNow().AddDate(0, 0, -10)
	if err := svc.DB.Model(&models.Subscription{}).Where("user_id = ?", user.ID).
		UpdateColumn("expires_at", lapsed).Error; err != nil {
		t.Fatalf("seed lapse: %v", err)
	}

	if err := svc.Extend(user.ID, 980000, "ref-2", 1); err != nil {
		t.Fatalf("extend: %v", err)
	}
	sub, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := fixedNow().AddDate(0, 0, 30)
	if !sub.ExpiresAt.Equal(want) {
		t.Fatalf("lapsed renewal must start from now: expected %v got %v", want, sub.ExpiresAt)
	}
}

func TestExtendRejectsNonPositiveMonths(t *testing.T) {
	svc, user := subTestFixture(t)
	if err := svc.Extend(user.ID, 980000, "ref-3", 0); err == nil {
		t.Fatalf("expected error for zero months")
	}
}

func TestIsActiveAfterExpiry(t *testing.T) {
	svc, user := subTestFixture(t)
	if !svc.IsActive(user.ID) {
		t.Fatalf("fresh trial should be active")
	}
	if err := svc.DB.Model(&models.Subscription{}).Where("user_id = ?", user.ID).
		UpdateColumn("expires_at", fixedNow().AddDate(0, 0, -1)).Error; err != nil {
		t.Fatalf("seed expiry: %v", err)
	}
	if svc.IsActive(user.ID) {
		t.Fatalf("expired subscription must not be active")
	}
}

func TestAttachDiscountLeavesExpiryAlone(t *testing.T) {
	svc, user := subTestFixture(t)
	before, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	code := &models.DiscountCode{Code: "WELCOME10", DiscountFraction: 0.10, MaxUses: 1000}
	if err := svc.AttachDiscount(user.ID, code); err != nil {
		t.Fatalf("attach: %v", err)
	}

	after, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Fatalf("discount attachment must not move expiry")
	}
	if after.DiscountCode != "WELCOME10" || after.DiscountPercent != 0.10 {
		t.Fatalf("expected discount stored, got %q %v", after.DiscountCode, after.DiscountPercent)
	}
}
