package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
)

// SubscriptionService is the ledger: activity checks, payment extension and
// discount attachment. The extension arithmetic lives in ExtendedExpiry so it
// stays directly testable.
type SubscriptionService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{DB: db, Now: time.Now}
}

func (s *SubscriptionService) Get(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.DB.Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// IsActive is the gate check: expiry in the future and status trial or active.
func (s *SubscriptionService) IsActive(userID uint) bool {
	sub, err := s.Get(userID)
	if err != nil {
		return false
	}
	return sub.IsActiveAt(s.Now())
}

// ExtendedExpiry computes the new expiry for an extension of the given number
// of months. Renewing early keeps the remaining paid time; renewing after
// expiry starts from now, never granting back-dated days.
func ExtendedExpiry(currentExpiry, now time.Time, months int) time.Time {
	extendFrom := currentExpiry
	if now.After(extendFrom) {
		extendFrom = now
	}
	return extendFrom.AddDate(0, 0, 30*months)
}

// Extend applies a payment to the subscription. The update is conditional on
// the expiry read inside the attempt so two concurrent payments cannot both
// extend from the same base.
func (s *SubscriptionService) Extend(userID uint, paymentAmount int64, paymentReference string, months int) error {
	if months <= 0 {
		return fmt.Errorf("months must be positive, got %d", months)
	}
	for attempt := 0; attempt < 3; attempt++ {
		sub, err := s.Get(userID)
		if err != nil {
			return err
		}
		newExpiry := ExtendedExpiry(sub.ExpiresAt, s.Now(), months)
		res := s.DB.Model(&models.Subscription{}).
			Where("user_id = ? AND expires_at = ?", userID, sub.ExpiresAt).
			Updates(map[string]any{
				"expires_at":        newExpiry,
				"status":            models.StatusActive,
				"payment_amount":    paymentAmount,
				"payment_reference": paymentReference,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// Lost the race to a concurrent extension; re-read and retry.
	}
	return errors.New("subscription extension contention")
}

// RecordPaymentReference stores the stub payment reference pending
// confirmation; it does not touch expiry.
func (s *SubscriptionService) RecordPaymentReference(userID uint, reference string) error {
	return s.DB.Model(&models.Subscription{}).Where("user_id = ?", userID).
		UpdateColumn("payment_reference", reference).Error
}

// AttachDiscount stores the discount on the subscription for future payment
// calculations; expiry is untouched.
func (s *SubscriptionService) AttachDiscount(userID uint, code *models.DiscountCode) error {
	return s.DB.Model(&models.Subscription{}).Where("user_id = ?", userID).
		Updates(map[string]any{
			"discount_percent": code.DiscountFraction,
			"discount_code":    code.Code,
		}).Error
}
