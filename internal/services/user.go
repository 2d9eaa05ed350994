package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
)

var ErrNotFound = errors.New("not_found")

// UserService owns the user/profile lifecycle: creation with trial and
// referral linkage, and the idempotent field assignments the onboarding
// funnel performs.
type UserService struct {
	DB        *gorm.DB
	TrialDays int
	Now       func() time.Time
}

func NewUserService(db *gorm.DB, trialDays int) *UserService {
	return &UserService{DB: db, TrialDays: trialDays, Now: time.Now}
}

type NewUserInput struct {
	TelegramID     int64
	Username       string
	DisplayName    string
	ReferredByCode string
}

// GetOrCreate returns the user for a Telegram identity, creating the user
// with its profile and trial subscription atomically on first contact.
// A non-empty ReferredByCode credits the referrer once; unknown codes are
// silently ignored.
func (s *UserService) GetOrCreate(in NewUserInput) (*models.User, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", in.TelegramID).First(&user).Error
	if err == nil {
		s.DB.Model(&user).UpdateColumn("last_activity", s.Now())
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		TelegramID:     in.TelegramID,
		Username:       in.Username,
		DisplayName:    in.DisplayName,
		OnboardingStep: models.StepStart,
		IsActive:       true,
		LastActivity:   s.Now(),
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if in.ReferredByCode != "" {
			var referrer models.User
			if err := tx.Where("referral_code = ?", in.ReferredByCode).First(&referrer).Error; err == nil {
				user.ReferredByID = &referrer.ID
				if err := tx.Model(&models.User{}).Where("id = ?", referrer.ID).
					UpdateColumn("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
					return err
				}
			}
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Profile{UserID: user.ID}).Error; err != nil {
			return err
		}
		now := s.Now()
		sub := models.Subscription{
			UserID:    user.ID,
			Status:    models.StatusTrial,
			StartedAt: now,
			ExpiresAt: now.AddDate(0, 0, s.TrialDays),
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfile loads the user's profile, creating a minimal one when missing so
// a lost row never breaks the funnel.
func (s *UserService) GetProfile(userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := s.DB.Where(models.Profile{UserID: userID}).FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *UserService) UpdateStep(userID uint, step models.OnboardingStep) error {
	return s.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("onboarding_step", step).Error
}

func (s *UserService) SetUserField(userID uint, column string, value any) error {
	return s.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn(column, value).Error
}

func (s *UserService) SetProfileField(userID uint, column string, value any) error {
	return s.DB.Model(&models.Profile{}).Where("user_id = ?", userID).
		UpdateColumn(column, value).Error
}

// SetSummary stores a fresh AI situation summary, un-approved.
func (s *UserService) SetSummary(userID uint, summary string) error {
	return s.DB.Model(&models.Profile{}).Where("user_id = ?", userID).
		UpdateColumns(map[string]any{"situation_summary": summary, "summary_approved": false}).Error
}

// ApproveSummary marks the stored summary approved and the onboarding
// completed in one write.
func (s *UserService) ApproveSummary(userID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Profile{}).Where("user_id = ?", userID).
			UpdateColumn("summary_approved", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumns(map[string]any{
				"onboarding_completed": true,
				"onboarding_step":      models.StepCompleted,
			}).Error
	})
}

// ContentCountSince returns how many content rows the user generated in the
// last N days.
func (s *UserService) ContentCountSince(userID uint, days int) (int64, error) {
	cutoff := s.Now().AddDate(0, 0, -days)
	var count int64
	err := s.DB.Model(&models.ContentHistory{}).
		Where("user_id = ? AND created_at >= ?", userID, cutoff).
		Count(&count).Error
	return count, err
}
