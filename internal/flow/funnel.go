package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/rez77/talabot/internal/models"
)

// funnelStep describes one onboarding question. Transitions are static: the
// table plus the predecessor map fully determine forward and backward moves.
type funnelStep struct {
	userStep  models.OnboardingStep
	skippable bool
	validate  func(string) string // non-empty result is the re-prompt
	store     func(c *Controller, userID uint, text string) error
	ack       func(string) string // prefixed to the next prompt on success
	next      State
	nextStep  models.OnboardingStep
}

var funnelSteps = map[State]funnelStep{
	StateReady: {
		userStep: models.StepReady,
		ack:      func(string) string { return "عالی! 🎉\n\n" },
		next:     StateName,
		nextStep: models.StepName,
	},
	StateName: {
		userStep: models.StepName,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetUserField(userID, "display_name", text)
		},
		ack: func(text string) string {
			return fmt.Sprintf("خیلی خوشحالم %s جان! 😊\n\n", text)
		},
		next:     StatePhone,
		nextStep: models.StepPhone,
	},
	StatePhone: {
		userStep:  models.StepPhone,
		skippable: true,
		validate: func(text string) string {
			if !ValidPhone(text) {
				return msgInvalidPhone
			}
			return ""
		},
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetUserField(userID, "phone", text)
		},
		next:     StateEmail,
		nextStep: models.StepEmail,
	},
	StateEmail: {
		userStep:  models.StepEmail,
		skippable: true,
		validate: func(text string) string {
			if !ValidEmail(text) {
				return msgInvalidEmail
			}
			return ""
		},
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetUserField(userID, "email", text)
		},
		ack: func(string) string {
			return "خب حالا بریم سراغ چندتا سوال در مورد کسب‌وکارت، تا بتونم سناریو منحصربه‌فرد تو رو بهت بدم.\n\n"
		},
		next:     StateGalleryName,
		nextStep: models.StepGalleryName,
	},
	StateGalleryName: {
		userStep: models.StepGalleryName,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "gallery_name", text)
		},
		ack: func(text string) string {
			return fmt.Sprintf("گالری %s 👌\n\n", text)
		},
		next:     StateInstagram,
		nextStep: models.StepInstagram,
	},
	StateInstagram: {
		userStep:  models.StepInstagram,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "instagram_handle", normalizeInstagram(text))
		},
		next:     StateTelegramChannel,
		nextStep: models.StepTelegramChannel,
	},
	StateTelegramChannel: {
		userStep:  models.StepTelegramChannel,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "telegram_channel", normalizeTelegram(text))
		},
		next:     StateCustomers,
		nextStep: models.StepCustomers,
	},
	StateCustomers: {
		userStep:  models.StepCustomers,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "main_customers", text)
		},
		next:     StateConstraints,
		nextStep: models.StepConstraints,
	},
	StateConstraints: {
		userStep:  models.StepConstraints,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "constraints", text)
		},
		next:     StateHelp,
		nextStep: models.StepHelp,
	},
	StateHelp: {
		userStep:  models.StepHelp,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "content_help", text)
		},
		next:     StatePhysicalStore,
		nextStep: models.StepPhysicalStore,
	},
	StatePhysicalStore: {
		userStep: models.StepPhysicalStore,
		validate: func(text string) string {
			if text != tokenYes && text != tokenNo {
				return statePrompts[StatePhysicalStore]
			}
			return ""
		},
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "has_physical_store", text == tokenYes)
		},
		next:     StateAdditionalInfo,
		nextStep: models.StepAdditionalInfo,
	},
	StateAdditionalInfo: {
		userStep:  models.StepAdditionalInfo,
		skippable: true,
		store: func(c *Controller, userID uint, text string) error {
			return c.users.SetProfileField(userID, "additional_info", text)
		},
		// terminal step, the handler branches into summary generation
	},
}

func (c *Controller) handleFunnel(ctx context.Context, user *models.User, state State,
	data sessionData, text string) (Response, State, sessionData) {

	step := funnelSteps[state]

	if text == tokenBack {
		prev := predecessor[state]
		if prevStep, ok := funnelSteps[prev]; ok {
			if err := c.users.UpdateStep(user.ID, prevStep.userStep); err != nil {
				return c.persistenceFailure(user.ID, err, state, data)
			}
		}
		return respond(textMessage(statePrompts[prev], repliesForState(prev)...)), prev, data
	}

	if state == StateReady {
		if text != tokenReady {
			return respond(textMessage(msgBackToStart, startReplies()...)), state, data
		}
		if err := c.users.UpdateStep(user.ID, step.nextStep); err != nil {
			return c.persistenceFailure(user.ID, err, state, data)
		}
		prompt := step.ack("") + statePrompts[step.next]
		return respond(textMessage(prompt, repliesForState(step.next)...)), step.next, data
	}

	skipped := step.skippable && (text == tokenSkip || text == tokenContinue)
	if !skipped {
		if step.validate != nil {
			if reprompt := step.validate(text); reprompt != "" {
				return respond(textMessage(reprompt, repliesForState(state)...)), state, data
			}
		}
		if step.store != nil {
			if err := step.store(c, user.ID, text); err != nil {
				return c.persistenceFailure(user.ID, err, state, data)
			}
		}
	}

	if state == StateAdditionalInfo {
		return c.completeFunnel(ctx, user, data)
	}

	if err := c.users.UpdateStep(user.ID, step.nextStep); err != nil {
		return c.persistenceFailure(user.ID, err, state, data)
	}
	prompt := statePrompts[step.next]
	if step.ack != nil && !skipped {
		prompt = step.ack(text) + prompt
	}
	return respond(textMessage(prompt, repliesForState(step.next)...)), step.next, data
}

// completeFunnel produces the situation summary and asks for approval. A
// generation failure keeps the user on the last question so they can retry.
func (c *Controller) completeFunnel(ctx context.Context, user *models.User,
	data sessionData) (Response, State, sessionData) {

	profile, err := c.users.GetProfile(user.ID)
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateAdditionalInfo, data)
	}

	summary, err := c.content.GenerateSummary(ctx, profile)
	if err != nil {
		c.log.Warn("summary generation failed", "user_id", user.ID, "err", err)
		return respond(textMessage(msgGenericError, continueReplies()...)), StateAdditionalInfo, data
	}

	if err := c.users.SetSummary(user.ID, summary); err != nil {
		return c.persistenceFailure(user.ID, err, StateAdditionalInfo, data)
	}
	if err := c.users.UpdateStep(user.ID, models.StepSummaryConfirm); err != nil {
		return c.persistenceFailure(user.ID, err, StateAdditionalInfo, data)
	}

	return respond(
		textMessage(summary),
		textMessage(msgSummaryQuestion, confirmReplies()...),
	), StateSummaryConfirm, data
}

func normalizeInstagram(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"https://instagram.com/", "https://www.instagram.com/", "instagram.com/"} {
		text = strings.TrimPrefix(text, prefix)
	}
	return strings.TrimPrefix(text, "@")
}

func normalizeTelegram(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"https://t.me/", "t.me/"} {
		text = strings.TrimPrefix(text, prefix)
	}
	return strings.TrimPrefix(text, "@")
}
