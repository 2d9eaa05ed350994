package models

import "time"

type SubscriptionStatus string

const (
	StatusTrial   SubscriptionStatus = "trial"
	StatusActive  SubscriptionStatus = "active"
	StatusExpired SubscriptionStatus = "expired"
)

// Subscription tracks the trial/active window of a user. Expiry only ever
// moves forward through extension.
type Subscription struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex"`

	Status    SubscriptionStatus `gorm:"size:16;default:trial"`
	StartedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`

	PaymentAmount    int64  // tomans
	PaymentReference string `gorm:"size:100"`

	DiscountPercent float64
	DiscountCode    string `gorm:"size:32"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActiveAt reports whether the subscription grants access at the given time.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.ExpiresAt.After(now) && (s.Status == StatusTrial || s.Status == StatusActive)
}

// DiscountCode is a redeemable promotional code. Validity and the use-count
// increment are a single atomic unit in the discount service.
type DiscountCode struct {
	ID               uint    `gorm:"primaryKey"`
	Code             string  `gorm:"size:32;uniqueIndex;not null"`
	DiscountFraction float64 `gorm:"not null"` // 0..1
	MaxUses          int     `gorm:"not null"`
	CurrentUses      int
	ExpiresAt        *time.Time
	Active           bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
