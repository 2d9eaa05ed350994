package models

import "time"

// Onboarding funnel steps, in order. The flow package owns the transition
// logic; this is only the persisted position.
type OnboardingStep string

const (
	StepStart           OnboardingStep = "start"
	StepReady           OnboardingStep = "ready"
	StepName            OnboardingStep = "name"
	StepPhone           OnboardingStep = "phone"
	StepEmail           OnboardingStep = "email"
	StepGalleryName     OnboardingStep = "gallery_name"
	StepInstagram       OnboardingStep = "instagram"
	StepTelegramChannel OnboardingStep = "telegram_channel"
	StepCustomers       OnboardingStep = "customers"
	StepConstraints     OnboardingStep = "constraints"
	StepHelp            OnboardingStep = "help"
	StepPhysicalStore   OnboardingStep = "physical_store"
	StepAdditionalInfo  OnboardingStep = "additional_info"
	StepSummaryConfirm  OnboardingStep = "summary_confirm"
	StepCompleted       OnboardingStep = "completed"
)

// User is the identity anchor. Profile, Subscription, ContentHistory and
// PromptHistory reference it by foreign key; there is no back-reference graph.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"unique;not null;index"`
	Username   string `gorm:"size:100"`

	DisplayName string `gorm:"size:100"`
	Phone       string `gorm:"size:20"`
	Email       string `gorm:"size:100"`

	ReferralCode  *string `gorm:"size:8;uniqueIndex"` // generated lazily, immutable once set
	ReferredByID  *uint
	ReferralCount int

	OnboardingStep      OnboardingStep `gorm:"size:32;default:start"`
	OnboardingCompleted bool

	IsActive  bool `gorm:"default:true"`
	IsBlocked bool

	LastActivity time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile accumulates the business description collected during onboarding.
// One per user, created together with the user.
type Profile struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex"`

	GalleryName     string `gorm:"size:200"`
	InstagramHandle string `gorm:"size:100"`
	TelegramChannel string `gorm:"size:100"`

	MainCustomers    string `gorm:"type:text"`
	Constraints      string `gorm:"type:text"`
	ContentHelp      string `gorm:"type:text"`
	HasPhysicalStore bool
	AdditionalInfo   string `gorm:"type:text"`

	SituationSummary string `gorm:"type:text"`
	SummaryApproved  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
