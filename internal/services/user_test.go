package services

import (
	"errors"
	"testing"
	"time"

	"github.com/rez77/talabot/internal/models"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestGetOrCreateFirstContact(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)
	svc.Now = fixedNow

	user, err := svc.GetOrCreate(NewUserInput{TelegramID: 100, Username: "maryam"})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if user.OnboardingStep != models.StepStart {
		t.Fatalf("expected step start got %s", user.OnboardingStep)
	}
	if !user.IsActive {
		t.Fatalf("expected active user")
	}

	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("expected profile created: %v", err)
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("expected trial subscription created: %v", err)
	}
	if sub.Status != models.StatusTrial {
		t.Fatalf("expected trial status got %s", sub.Status)
	}
	want := fixedNow().AddDate(0, 0, 30)
	if !sub.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v got %v", want, sub.ExpiresAt)
	}
	if !sub.IsActiveAt(fixedNow()) {
		t.Fatalf("expected trial active immediately")
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)

	first, err := svc.GetOrCreate(NewUserInput{TelegramID: 200})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.GetOrCreate(NewUserInput{TelegramID: 200})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, second.ID)
	}
	var count int64
	if err := db.Model(&models.Subscription{}).Where("user_id = ?", first.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single subscription got %d", count)
	}
}

func TestGetOrCreateReferralAttribution(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)

	referrer, err := svc.GetOrCreate(NewUserInput{TelegramID: 300})
	if err != nil {
		t.Fatalf("create referrer: %v", err)
	}
	code := "REF12345"
	if err := db.Model(&models.User{}).Where("id = ?", referrer.ID).
		UpdateColumn("referral_code", code).Error; err != nil {
		t.Fatalf("seed code: %v", err)
	}

	invited, err := svc.GetOrCreate(NewUserInput{TelegramID: 301, ReferredByCode: code})
	if err != nil {
		t.Fatalf("create invited: %v", err)
	}
	if invited.ReferredByID == nil || *invited.ReferredByID != referrer.ID {
		t.Fatalf("expected referred_by set to %d", referrer.ID)
	}

	var fresh models.User
	if err := db.First(&fresh, referrer.ID).Error; err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if fresh.ReferralCount != 1 {
		t.Fatalf("expected referral count 1 got %d", fresh.ReferralCount)
	}
}

func TestGetOrCreateUnknownReferralIgnored(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)

	user, err := svc.GetOrCreate(NewUserInput{TelegramID: 400, ReferredByCode: "NOSUCH00"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ReferredByID != nil {
		t.Fatalf("expected no referrer for unknown code")
	}
}

func TestApproveSummaryCompletesOnboarding(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)

	user, err := svc.GetOrCreate(NewUserInput{TelegramID: 500})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SetSummary(user.ID, "خلاصه وضعیت"); err != nil {
		t.Fatalf("set summary: %v", err)
	}
	if err := svc.ApproveSummary(user.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	var fresh models.User
	if err := db.First(&fresh, user.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !fresh.OnboardingCompleted || fresh.OnboardingStep != models.StepCompleted {
		t.Fatalf("expected completed onboarding, got step %s completed=%v", fresh.OnboardingStep, fresh.OnboardingCompleted)
	}
	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if !profile.SummaryApproved || profile.SituationSummary != "خلاصه وضعیت" {
		t.Fatalf("expected approved summary stored")
	}
}

func TestSetSummaryResetsApproval(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)

	user, err := svc.GetOrCreate(NewUserInput{TelegramID: 600})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.SetSummary(user.ID, "اولی"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.ApproveSummary(user.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.SetSummary(user.ID, "دومی"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if profile.SummaryApproved {
		t.Fatalf("expected approval reset by new summary")
	}
}

func TestGetByTelegramIDNotFound(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)
	_, err := svc.GetByTelegramID(999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestContentCountSince(t *testing.T) {
	db := setupTestDB(t, t.Name())
	svc := NewUserService(db, 30)
	svc.Now = fixedNow

	user, err := svc.GetOrCreate(NewUserInput{TelegramID: 700})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recent := models.ContentHistory{UserID: user.ID, Kind: models.KindCaption, GeneratedContent: "x"}
	if err := db.Create(&recent).Error; err != nil {
		t.Fatalf("seed recent: %v", err)
	}
	db.Model(&recent).UpdateColumn("created_at", fixedNow().AddDate(0, 0, -5))

	old := models.ContentHistory{UserID: user.ID, Kind: models.KindCaption, GeneratedContent: "y"}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("seed old: %v", err)
	}
	db.Model(&old).UpdateColumn("created_at", fixedNow().AddDate(0, 0, -45))

	count, err := svc.ContentCountSince(user.ID, 30)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recent row got %d", count)
	}
}
