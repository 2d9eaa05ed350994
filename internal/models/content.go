package models

import "time"

type ContentKind string

const (
	KindCaption  ContentKind = "caption"
	KindReels    ContentKind = "reels"
	KindVisual   ContentKind = "visual"
	KindCalendar ContentKind = "calendar"
	KindSummary  ContentKind = "summary"
)

// ContentHistory is an append-only log of generated content.
type ContentHistory struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;index"`

	Kind             ContentKind `gorm:"size:16;not null"`
	Prompt           string      `gorm:"type:text;not null"`
	GeneratedContent string      `gorm:"type:text;not null"`

	CreatedAt time.Time
}

// PromptHistory counts named prompt usage per user for analytics.
// Upserted: created on first use, incremented afterwards.
type PromptHistory struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex:idx_prompt_history_user_name"`

	PromptName string `gorm:"size:64;not null;uniqueIndex:idx_prompt_history_user_name"`
	UseCount   int
	LastPrompt string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the per-user conversation state, loaded and saved once per
// inbound event.
type Session struct {
	ID     uint `gorm:"primaryKey"`
	UserID uint `gorm:"not null;uniqueIndex"`

	State string `gorm:"size:32"`
	Data  string `gorm:"type:text"` // JSON blob for transient state (scenario browsing)

	CreatedAt time.Time
	UpdatedAt time.Time
}
