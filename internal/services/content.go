package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/genai"
	"github.com/rez77/talabot/internal/models"
)

var ErrExternal = errors.New("external generation failure")

const variantCount = 3

const variantSeparator = "\n\n---\n\n"

// ContentService builds prompts from the profile, calls the generator,
// parses the reply into variants and persists history. Stateless per call:
// safe for concurrent users, all shared state lives in the database.
type ContentService struct {
	DB  *gorm.DB
	AI  genai.Completer
	Log *slog.Logger
}

func NewContentService(db *gorm.DB, ai genai.Completer, log *slog.Logger) *ContentService {
	if log == nil {
		log = slog.Default()
	}
	return &ContentService{DB: db, AI: ai, Log: log}
}

// Generate produces an ordered list of at least one text variant.
// Non-throwing by contract: every internal failure degrades to a single
// localized error string. The returned error only signals that degradation
// to callers that want to substitute their own fallback; the variants are
// always usable.
func (s *ContentService) Generate(ctx context.Context, kind models.ContentKind, userInput string, profile *models.Profile) ([]string, error) {
	systemPrompt, userPrompt := buildPrompts(kind, userInput, profile)

	s.recordPromptUse(profile.UserID, string(kind), userPrompt)

	reply, err := s.AI.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		s.Log.Error("generation failed", "kind", kind, "user_id", profile.UserID, "err", err)
		variants := []string{generationErrorMessage(kind)}
		s.saveHistory(profile.UserID, kind, userInput, variants)
		return variants, fmt.Errorf("%w: %v", ErrExternal, err)
	}

	variants := ParseVariants(reply, variantCount, labelPatternFor(kind))
	s.saveHistory(profile.UserID, kind, userInput, variants)
	return variants, nil
}

// GenerateSummary produces the natural-language situation summary shown at
// the end of onboarding. Unlike Generate it reports failure so the caller
// can keep the user at the confirmation step.
func (s *ContentService) GenerateSummary(ctx context.Context, profile *models.Profile) (string, error) {
	systemPrompt, userPrompt := buildPrompts(models.KindSummary, "", profile)
	s.recordPromptUse(profile.UserID, string(models.KindSummary), userPrompt)
	reply, err := s.AI.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		s.Log.Error("summary generation failed", "user_id", profile.UserID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrExternal, err)
	}
	return strings.TrimSpace(reply), nil
}

func (s *ContentService) saveHistory(userID uint, kind models.ContentKind, input string, variants []string) {
	h := models.ContentHistory{
		UserID:           userID,
		Kind:             kind,
		Prompt:           input,
		GeneratedContent: strings.Join(variants, variantSeparator),
	}
	if err := s.DB.Create(&h).Error; err != nil {
		s.Log.Error("saving content history failed", "user_id", userID, "kind", kind, "err", err)
	}
}

// recordPromptUse upserts the per-user analytics counter for a named prompt.
func (s *ContentService) recordPromptUse(userID uint, name, prompt string) {
	res := s.DB.Model(&models.PromptHistory{}).
		Where("user_id = ? AND prompt_name = ?", userID, name).
		UpdateColumns(map[string]any{
			"use_count":   gorm.Expr("use_count + 1"),
			"last_prompt": prompt,
		})
	if res.Error != nil {
		s.Log.Error("prompt history update failed", "user_id", userID, "prompt", name, "err", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		ph := models.PromptHistory{UserID: userID, PromptName: name, UseCount: 1, LastPrompt: prompt}
		if err := s.DB.Create(&ph).Error; err != nil {
			s.Log.Error("prompt history insert failed", "user_id", userID, "prompt", name, "err", err)
		}
	}
}

var reelsLabelPattern = regexp.MustCompile(`(?m)^\s*(?:سناریو\s*)?[0-9۰-۹]+\s*[\.\):：:-]`)
var visualLabelPattern = regexp.MustCompile(`(?m)^\s*(?:ایده\s*)?[0-9۰-۹]+\s*[\.\):：:-]`)

func labelPatternFor(kind models.ContentKind) *regexp.Regexp {
	switch kind {
	case models.KindReels:
		return reelsLabelPattern
	case models.KindVisual:
		return visualLabelPattern
	default:
		return NumberedLabelPattern
	}
}

func generationErrorMessage(kind models.ContentKind) string {
	switch kind {
	case models.KindCaption:
		return "خطا در تولید کپشن. لطفاً دوباره تلاش کنید."
	case models.KindReels:
		return "خطا در تولید سناریو ریلز. لطفاً دوباره تلاش کنید."
	case models.KindVisual:
		return "خطا در تولید ایده بصری. لطفاً دوباره تلاش کنید."
	case models.KindCalendar:
		return "خطا در تولید تقویم محتوایی. دوباره تلاش کنید."
	default:
		return "خطایی رخ داده است. لطفاً دوباره تلاش کنید."
	}
}

// buildPrompts interpolates the profile into a kind-specific instruction
// prompt demanding exactly three labeled variants.
func buildPrompts(kind models.ContentKind, userInput string, p *models.Profile) (systemPrompt, userPrompt string) {
	businessLine := ""
	if p.GalleryName != "" {
		businessLine = fmt.Sprintf("اطلاعات کسب‌وکار: گالری %s", p.GalleryName)
		if p.InstagramHandle != "" {
			businessLine += fmt.Sprintf(" - اینستاگرام: %s", p.InstagramHandle)
		}
	}
	audienceLine := ""
	if p.MainCustomers != "" {
		audienceLine = "مخاطب اصلی: " + p.MainCustomers
	}
	constraintLine := ""
	if p.Constraints != "" {
		constraintLine = "محدودیت‌ها و باید و نبایدها: " + p.Constraints
	}

	switch kind {
	case models.KindCaption:
		systemPrompt = joinLines(
			"تو یک متخصص بازاریابی طلا و جواهرات هستی که برای صفحات اینستاگرام فارسی کپشن می‌نویسی.",
			businessLine, audienceLine, constraintLine,
			"قوانین:",
			"- حتماً 3 کپشن مختلف بنویس",
			"- هر کپشن را با عدد شماره‌گذاری کن (1. یا ۱.)",
			"- از ایموجی مناسب استفاده کن",
			"- CTA (فراخوان عمل) در پایان هر کپشن بیاور",
			"- کپشن‌ها باید جذاب و متقاعدکننده باشند",
			"- زبان فارسی روان و طبیعی استفاده کن",
		)
		userPrompt = fmt.Sprintf("محصول: %s\n\nلطفاً 3 کپشن مختلف برای این محصول بنویس.", userInput)

	case models.KindReels:
		systemPrompt = joinLines(
			"تو یک کارگردان محتوا برای ریلز اینستاگرام هستی که برای صفحات طلا و جواهرات کار می‌کنی.",
			businessLine, audienceLine, constraintLine,
			"قوانین:",
			"- 3 سناریو مختلف ارائه بده و هر سناریو را با عدد شماره‌گذاری کن (سناریو 1: یا سناریو ۱:)",
			"- هر سناریو شامل: موضوع، چگونگی فیلم‌برداری، متن روی ویدیو، موزیک پیشنهادی، مدت زمان، هدف",
			"- سناریوها باید قابل اجرا و عملی باشند",
			"- از ترندهای روز استفاده کن",
		)
		userPrompt = fmt.Sprintf("موضوع اصلی: %s\n\nلطفاً 3 سناریو ریلز مختلف ارائه بده.", userInput)

	case models.KindVisual:
		systemPrompt = joinLines(
			"تو یک عکاس حرفه‌ای طلا و جواهرات هستی که ایده‌های بصری خلاقانه ارائه می‌دهی.",
			businessLine, constraintLine,
			"قوانین:",
			"- 3 ایده بصری مختلف ارائه بده و هر ایده را با عدد شماره‌گذاری کن (ایده 1: یا ایده ۱:)",
			"- هر ایده شامل: زاویه عکس، نورپردازی، چیدمان، پس‌زمینه",
			"- ایده‌ها باید با امکانات موجود قابل اجرا باشند",
			"- نکات فنی عکاسی را هم بگو",
		)
		userPrompt = fmt.Sprintf("نوع محصول: %s\n\nلطفاً 3 ایده بصری مختلف برای عکس‌برداری ارائه بده.", userInput)

	case models.KindCalendar:
		systemPrompt = joinLines(
			"تو یک استراتژیست محتوای اینستاگرام برای گالری‌های طلا و جواهرات هستی.",
			businessLine, audienceLine, constraintLine,
			"قوانین:",
			"- یک تقویم محتوایی یک‌هفته‌ای بده، هر روز را با عدد شماره‌گذاری کن (روز 1: یا روز ۱:)",
			"- برای هر روز نوع پست، موضوع و یک خط توضیح بنویس",
			"- واقع‌بینانه و قابل اجرا با امکانات یک گالری کوچک",
		)
		userPrompt = "لطفاً تقویم محتوایی هفت روزه پیشنهاد بده."

	case models.KindSummary:
		systemPrompt = joinLines(
			"تو دستیار محتوای یک گالری طلا هستی. بر اساس اطلاعات زیر یک خلاصه کوتاه و دوستانه از وضعیت کسب‌وکار کاربر بنویس.",
			"خلاصه باید دوم شخص باشد، حداکثر یک پاراگراف، بدون شماره‌گذاری.",
		)
		store := "ندارد"
		if p.HasPhysicalStore {
			store = "دارد"
		}
		userPrompt = joinLines(
			"اسم گالری: "+p.GalleryName,
			"اینستاگرام: "+p.InstagramHandle,
			"کانال تلگرام: "+p.TelegramChannel,
			"مشتریان اصلی: "+p.MainCustomers,
			"محدودیت‌ها: "+p.Constraints,
			"کمک در تولید محتوا: "+p.ContentHelp,
			"گالری حضوری: "+store,
			"اطلاعات بیشتر: "+p.AdditionalInfo,
		)
	}
	return systemPrompt, userPrompt
}

func joinLines(lines ...string) string {
	kept := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
