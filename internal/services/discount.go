package services

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
)

var ErrInvalidCode = errors.New("invalid_discount_code")

// DiscountService validates and redeems promotional codes and manages
// referral codes.
type DiscountService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewDiscountService(db *gorm.DB) *DiscountService {
	return &DiscountService{DB: db, Now: time.Now}
}

// ApplyCode redeems a discount code. The validity check and the use-count
// increment are a single conditional UPDATE, so over-redemption under
// concurrent use is impossible: only rows with uses remaining match.
func (s *DiscountService) ApplyCode(code string, userID uint) (*models.DiscountCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	res := s.DB.Model(&models.DiscountCode{}).
		Where("code = ? AND active = ? AND current_uses < max_uses AND (expires_at IS NULL OR expires_at > ?)",
			code, true, s.Now()).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidCode
	}
	var dc models.DiscountCode
	if err := s.DB.Where("code = ?", code).First(&dc).Error; err != nil {
		return nil, err
	}
	return &dc, nil
}

const referralCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const referralCodeLen = 8

// EnsureReferralCode returns the user's referral code, generating one on
// first use. The code is immutable once set; a collision with the unique
// index re-rolls.
func (s *DiscountService) EnsureReferralCode(userID uint) (string, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return "", err
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}
	for attempt := 0; attempt < 5; attempt++ {
		code := randomReferralCode()
		err := s.DB.Model(&models.User{}).Where("id = ? AND referral_code IS NULL", userID).
			UpdateColumn("referral_code", code).Error
		if err == nil {
			// Re-read in case a concurrent generation won the conditional write.
			if err := s.DB.First(&user, userID).Error; err != nil {
				return "", err
			}
			if user.ReferralCode != nil {
				return *user.ReferralCode, nil
			}
			continue
		}
		if isUniqueViolation(err) {
			continue
		}
		return "", err
	}
	return "", errors.New("could not generate unique referral code")
}

func randomReferralCode() string {
	b := make([]byte, referralCodeLen)
	for i := range b {
		b[i] = referralCharset[rand.Intn(len(referralCharset))]
	}
	return string(b)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
