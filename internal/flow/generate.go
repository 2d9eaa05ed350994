package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rez77/talabot/internal/models"
)

func (c *Controller) handleContentMenu(user *models.User, data sessionData) (Response, State, sessionData) {
	if !user.OnboardingCompleted {
		return respond(textMessage(msgCompleteProfile)), StateIdle, data
	}
	if !c.subs.IsActive(user.ID) {
		return respond(textMessage(msgSubscribeFirst, paymentReplies()...)), StateIdle, data
	}
	return respond(textMessage(msgChooseKind, contentKindReplies()...)), StateContentKind, data
}

func (c *Controller) handleKindSelection(ctx context.Context, user *models.User,
	data sessionData, text string) (Response, State, sessionData) {

	switch text {
	case kindCaptionButton:
		return respond(textMessage(msgCaptionAsk, backReplies()...)), StateCaptionInput, data
	case kindReelsButton:
		return respond(textMessage(msgReelsAsk, backReplies()...)), StateReelsInput, data
	case kindVisualButton:
		return respond(textMessage(msgVisualAsk, backReplies()...)), StateVisualInput, data
	case kindCalendarButton:
		// the calendar needs no extra input, generate right away
		return c.generate(ctx, user, data, models.KindCalendar, "تقویم محتوایی هفتگی")
	case tokenBack:
		return c.backToMainMenu(user)
	}
	return respond(textMessage(msgChooseKind, contentKindReplies()...)), StateContentKind, data
}

func (c *Controller) handleGenerationInput(ctx context.Context, user *models.User,
	data sessionData, kind models.ContentKind, text string) (Response, State, sessionData) {

	if text == tokenBack {
		return respond(textMessage(msgChooseKind, contentKindReplies()...)), StateContentKind, data
	}
	if text == "" {
		return respond(textMessage(msgUnknown)), stateForKind(kind), data
	}
	return c.generate(ctx, user, data, kind, text)
}

// generate runs one content request end to end. The subscription gate is
// re-checked here: a trial can lapse between choosing a kind and sending the
// topic.
func (c *Controller) generate(ctx context.Context, user *models.User, data sessionData,
	kind models.ContentKind, userInput string) (Response, State, sessionData) {

	if !user.OnboardingCompleted {
		return respond(textMessage(msgCompleteProfile)), StateIdle, sessionData{}
	}
	if !c.subs.IsActive(user.ID) {
		return respond(textMessage(msgSubscribeFirst, paymentReplies()...)), StateIdle, sessionData{}
	}

	profile, err := c.users.GetProfile(user.ID)
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateContentKind, data)
	}

	variants, genErr := c.content.Generate(ctx, kind, userInput, profile)
	if genErr != nil {
		c.log.Warn("content generation degraded", "user_id", user.ID, "kind", kind, "err", genErr)
	}

	return respond(
		textMessage(formatVariants(kind, variants)),
		textMessage(msgMoreContent, contentKindReplies()...),
	), StateContentKind, data
}

func stateForKind(kind models.ContentKind) State {
	switch kind {
	case models.KindCaption:
		return StateCaptionInput
	case models.KindReels:
		return StateReelsInput
	case models.KindVisual:
		return StateVisualInput
	}
	return StateContentKind
}

var variantHeadings = map[models.ContentKind]string{
	models.KindCaption:  "🎯 کپشن‌های پیشنهادی:",
	models.KindReels:    "🎬 سناریوهای ریلز پیشنهادی:",
	models.KindVisual:   "📷 ایده‌های بصری پیشنهادی:",
	models.KindCalendar: "📅 تقویم محتوایی پیشنهادی:",
}

var variantLabels = map[models.ContentKind]string{
	models.KindCaption: "کپشن",
	models.KindReels:   "سناریو",
	models.KindVisual:  "ایده",
}

func formatVariants(kind models.ContentKind, variants []string) string {
	var b strings.Builder
	b.WriteString(variantHeadings[kind])
	b.WriteString("\n\n")
	label := variantLabels[kind]
	for i, v := range variants {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		if label != "" && len(variants) > 1 {
			b.WriteString(fmt.Sprintf("%s %d:\n", label, i+1))
		}
		b.WriteString(v)
	}
	return b.String()
}
