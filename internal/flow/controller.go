package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rez77/talabot/internal/models"
	"github.com/rez77/talabot/internal/services"
)

// Transcriber is the speech collaborator as the flow sees it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, durationSeconds int, sizeBytes int64) (string, error)
}

// Config carries the few knobs the controller needs beyond its services.
type Config struct {
	BotUsername             string
	AudioMaxFileSizeMB      int
	AudioMaxDurationSeconds int
}

// Controller is the top-level coordinator: it resolves the current state for
// an inbound event, validates input, updates the stores and decides the next
// state. One event is one unit of work; per-user state is loaded and saved
// exactly once around the dispatch.
type Controller struct {
	users     *services.UserService
	subs      *services.SubscriptionService
	discounts *services.DiscountService
	content   *services.ContentService
	speech    Transcriber
	sessions  sessionStore
	cfg       Config
	log       *slog.Logger

	mu       sync.Mutex
	inflight map[int64]*inflightCall
}

type inflightCall struct{ cancel context.CancelFunc }

func New(db *gorm.DB, users *services.UserService, subs *services.SubscriptionService,
	discounts *services.DiscountService, content *services.ContentService,
	speech Transcriber, cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		users:     users,
		subs:      subs,
		discounts: discounts,
		content:   content,
		speech:    speech,
		sessions:  sessionStore{db: db},
		cfg:       cfg,
		log:       log,
		inflight:  make(map[int64]*inflightCall),
	}
}

// HandleEvent processes one inbound event and returns the outbound response.
// Any panic is caught here: the user sees the generic failure message and
// their stored state is left untouched so retry is possible.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic while handling event", "telegram_id", ev.TelegramID, "panic", r)
			resp = respond(textMessage(msgGenericError))
		}
	}()

	// A newer event from the same user supersedes any stale in-flight
	// generation instead of racing it.
	ctx, done := c.supersede(ev.TelegramID, ctx)
	defer done()

	if ev.Audio != nil {
		return c.handleVoice(ctx, ev)
	}
	return c.handleText(ctx, ev)
}

func (c *Controller) supersede(telegramID int64, parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	call := &inflightCall{cancel: cancel}
	c.mu.Lock()
	if prev, ok := c.inflight[telegramID]; ok {
		prev.cancel()
	}
	c.inflight[telegramID] = call
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		if c.inflight[telegramID] == call {
			delete(c.inflight, telegramID)
		}
		c.mu.Unlock()
		cancel()
	}
}

func (c *Controller) handleText(ctx context.Context, ev Event) Response {
	text := strings.TrimSpace(ev.Text)

	referral := ""
	if strings.HasPrefix(text, "/start") {
		if parts := strings.Fields(text); len(parts) > 1 {
			referral = parts[1]
		}
	}

	user, err := c.users.GetOrCreate(services.NewUserInput{
		TelegramID:     ev.TelegramID,
		Username:       ev.Username,
		ReferredByCode: referral,
	})
	if err != nil {
		c.log.Error("loading user failed", "telegram_id", ev.TelegramID, "err", err)
		return respond(textMessage(msgGenericError))
	}

	state, data, err := c.sessions.load(user.ID)
	if err != nil {
		c.log.Error("loading session failed", "user_id", user.ID, "err", err)
		return respond(textMessage(msgGenericError))
	}

	resp, newState, newData := c.dispatch(ctx, user, state, data, ev, text, referral)

	if err := c.sessions.save(user.ID, newState, newData); err != nil {
		c.log.Error("saving session failed", "user_id", user.ID, "err", err)
		return respond(textMessage(msgGenericError))
	}
	return resp
}

func (c *Controller) dispatch(ctx context.Context, user *models.User, state State, data sessionData,
	ev Event, text, referral string) (Response, State, sessionData) {

	if strings.HasPrefix(text, "/start") {
		return c.handleStart(user, referral)
	}
	if text == "/help" || text == menuHelp {
		return respond(textMessage(msgHelp)), state, data
	}

	// Button presses arrive as callback tokens; accept the same tokens as
	// plain text for transports without inline controls.
	token := ev.CallbackToken
	if token == "" && IsCallbackToken(text) {
		token = text
	}
	if token != "" {
		return c.handleCallback(ctx, user, state, data, token)
	}

	if _, ok := funnelSteps[state]; ok {
		return c.handleFunnel(ctx, user, state, data, text)
	}

	switch state {
	case StateContentKind:
		return c.handleKindSelection(ctx, user, data, text)
	case StateCaptionInput:
		return c.handleGenerationInput(ctx, user, data, models.KindCaption, text)
	case StateReelsInput:
		return c.handleGenerationInput(ctx, user, data, models.KindReels, text)
	case StateVisualInput:
		return c.handleGenerationInput(ctx, user, data, models.KindVisual, text)
	case StateDiscountCode:
		return c.handleDiscountInput(user, data, text)
	}

	switch text {
	case menuContent:
		return c.handleContentMenu(user, data)
	case menuRenew:
		return c.handleRenewal(user, data)
	case menuDiscount:
		return respond(textMessage(msgDiscountAsk, backReplies()...)), StateDiscountCode, data
	case menuInvite:
		return c.handleInvite(user, data)
	case menuStats:
		return c.handleStats(user, data)
	case tokenBack:
		return c.backToMainMenu(user)
	}

	return respond(textMessage(msgUnknown)), state, data
}

func (c *Controller) handleStart(user *models.User, referral string) (Response, State, sessionData) {
	if user.OnboardingCompleted {
		isSubscribed := c.subs.IsActive(user.ID)
		msg := textMessage(welcomeBackMessage(displayName(user), isSubscribed), mainMenuReplies(isSubscribed)...)
		return respond(msg), StateIdle, sessionData{}
	}
	welcome := msgWelcome
	if referral != "" {
		welcome += "\n\n" + msgReferralThanks
	}
	if err := c.users.UpdateStep(user.ID, models.StepStart); err != nil {
		return c.persistenceFailure(user.ID, err, StateIdle, sessionData{})
	}
	return respond(textMessage(welcome, startReplies()...)), StateReady, sessionData{}
}

func (c *Controller) handleCallback(ctx context.Context, user *models.User, state State,
	data sessionData, token string) (Response, State, sessionData) {

	switch token {
	case cbConfirmYes:
		if state != StateSummaryConfirm {
			return respond(textMessage(msgUnknown)), state, data
		}
		return c.confirmSummary(ctx, user)

	case cbConfirmNo:
		if state != StateSummaryConfirm {
			return respond(textMessage(msgUnknown)), state, data
		}
		// Re-collect additional info without clearing anything stored.
		if err := c.users.UpdateStep(user.ID, models.StepAdditionalInfo); err != nil {
			return c.persistenceFailure(user.ID, err, state, data)
		}
		msg := Message{Text: msgSummaryRejected, EditPrevious: true}
		prompt := textMessage(statePrompts[StateAdditionalInfo], continueReplies()...)
		return respond(msg, prompt), StateAdditionalInfo, data

	case cbScenarioPrev, cbScenarioNext:
		if state != StateScenarioBrowsing || len(data.Scenarios) == 0 {
			return respond(textMessage(msgGenericError)), state, data
		}
		idx := data.ScenarioIndex
		if token == cbScenarioPrev && idx > 1 {
			idx--
		}
		if token == cbScenarioNext && idx < data.TotalScenarios {
			idx++
		}
		data.ScenarioIndex = idx
		msg := Message{
			Text:             formatScenarioMessage(data.Scenarios[idx-1], idx, data.TotalScenarios),
			SuggestedReplies: scenarioNavReplies(idx, data.TotalScenarios),
			EditPrevious:     true,
		}
		return respond(msg), StateScenarioBrowsing, data

	case cbScenarioContinue:
		if state != StateScenarioBrowsing {
			return respond(textMessage(msgUnknown)), state, data
		}
		msg := Message{Text: msgSubscriptionPitch, SuggestedReplies: subscriptionDecisionReplies(), EditPrevious: true}
		return respond(msg), StateSubscriptionDecision, data

	case cbSubscribeNow:
		if state != StateSubscriptionDecision {
			return respond(textMessage(msgUnknown)), state, data
		}
		msg := Message{Text: msgPaymentAccepted, EditPrevious: true}
		offer := textMessage("گزینه پرداخت:", paymentReplies()...)
		return respond(msg, offer), StateIdle, sessionData{}

	case cbSubscribeLater:
		if state != StateSubscriptionDecision {
			return respond(textMessage(msgUnknown)), state, data
		}
		msg := Message{Text: msgPaymentDeferred, EditPrevious: true}
		menu := textMessage(msgBackToMenu, mainMenuReplies(c.subs.IsActive(user.ID))...)
		return respond(msg, menu), StateIdle, sessionData{}

	case cbPaymentMonthly, cbPaymentSeasonal:
		return c.handlePaymentSelection(user, data, token)
	}

	return respond(textMessage(msgUnknown)), state, data
}

// confirmSummary is the completion handoff: approve, generate the
// proof-of-value scenarios and enter browsing.
func (c *Controller) confirmSummary(ctx context.Context, user *models.User) (Response, State, sessionData) {
	profile, err := c.users.GetProfile(user.ID)
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateSummaryConfirm, sessionData{})
	}
	if err := c.users.ApproveSummary(user.ID); err != nil {
		return c.persistenceFailure(user.ID, err, StateSummaryConfirm, sessionData{})
	}

	variants, genErr := c.content.Generate(ctx, models.KindReels, "معرفی گالری طلا و جواهرات", profile)
	if genErr != nil {
		variants = fallbackScenarios
	}

	data := sessionData{Scenarios: variants, ScenarioIndex: 1, TotalScenarios: len(variants)}
	msg := Message{
		Text:             formatScenarioMessage(variants[0], 1, len(variants)),
		SuggestedReplies: scenarioNavReplies(1, len(variants)),
		EditPrevious:     true,
	}
	return respond(msg), StateScenarioBrowsing, data
}

// handlePaymentSelection is the payment stub: it only records a reference
// string and hands out a link.
func (c *Controller) handlePaymentSelection(user *models.User, data sessionData, token string) (Response, State, sessionData) {
	parts := strings.Split(token, "_")
	if len(parts) != 3 {
		return respond(textMessage(msgUnknown)), StateIdle, data
	}
	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return respond(textMessage(msgUnknown)), StateIdle, data
	}
	paymentType := "ماهانه"
	if parts[1] == "seasonal" {
		paymentType = "فصلی"
	}

	reference := uuid.NewString()
	if err := c.subs.RecordPaymentReference(user.ID, reference); err != nil {
		return c.persistenceFailure(user.ID, err, StateIdle, data)
	}
	link := "https://zarinpal.com/pg/StartPay/" + reference
	msg := Message{Text: paymentMessage(paymentType, amount, link), EditPrevious: true}
	return respond(msg), StateIdle, sessionData{}
}

func (c *Controller) handleRenewal(user *models.User, data sessionData) (Response, State, sessionData) {
	sub, err := c.subs.Get(user.ID)
	if err == nil && sub.IsActiveAt(c.subs.Now()) {
		text := fmt.Sprintf("اشتراک شما تا %s فعال است.\nبرای تمدید زودهنگام، گزینه موردنظر را انتخاب کنید:",
			sub.ExpiresAt.Format("2006/01/02"))
		return respond(textMessage(text, paymentReplies()...)), StateIdle, data
	}
	return respond(textMessage(msgSubExpired, paymentReplies()...)), StateIdle, data
}

func (c *Controller) handleDiscountInput(user *models.User, data sessionData, text string) (Response, State, sessionData) {
	if text == tokenBack {
		return c.backToMainMenu(user)
	}
	dc, err := c.discounts.ApplyCode(text, user.ID)
	if errors.Is(err, services.ErrInvalidCode) {
		return respond(textMessage(msgDiscountInvalid, backReplies()...)), StateDiscountCode, data
	}
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateDiscountCode, data)
	}
	if err := c.subs.AttachDiscount(user.ID, dc); err != nil {
		return c.persistenceFailure(user.ID, err, StateDiscountCode, data)
	}
	applied := fmt.Sprintf("کد تخفیف با موفقیت اعمال شد: %d%%", int(dc.DiscountFraction*100))
	menu := textMessage(msgBackToMenu, mainMenuReplies(c.subs.IsActive(user.ID))...)
	return respond(textMessage(applied), menu), StateIdle, sessionData{}
}

func (c *Controller) handleInvite(user *models.User, data sessionData) (Response, State, sessionData) {
	code, err := c.discounts.EnsureReferralCode(user.ID)
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateIdle, data)
	}
	var b strings.Builder
	b.WriteString("👥 دعوت از دوستان\n\n")
	b.WriteString("کد معرف شما: " + code + "\n")
	if c.cfg.BotUsername != "" {
		b.WriteString(fmt.Sprintf("لینک دعوت: https://t.me/%s?start=%s\n", c.cfg.BotUsername, code))
	}
	b.WriteString(fmt.Sprintf("\nتا حالا %d نفر با کد شما اومدن. 🎉", user.ReferralCount))
	return respond(textMessage(b.String())), StateIdle, data
}

func (c *Controller) handleStats(user *models.User, data sessionData) (Response, State, sessionData) {
	count, err := c.users.ContentCountSince(user.ID, 30)
	if err != nil {
		return c.persistenceFailure(user.ID, err, StateIdle, data)
	}
	text := fmt.Sprintf("📊 آمار استفاده\n\nمحتوای تولیدشده در ۳۰ روز گذشته: %d", count)
	if sub, err := c.subs.Get(user.ID); err == nil && sub.IsActiveAt(c.subs.Now()) {
		text += fmt.Sprintf("\nاشتراک فعال تا: %s", sub.ExpiresAt.Format("2006/01/02"))
	}
	return respond(textMessage(text)), StateIdle, data
}

func (c *Controller) backToMainMenu(user *models.User) (Response, State, sessionData) {
	isSubscribed := c.subs.IsActive(user.ID)
	return respond(textMessage(msgBackToMenu, mainMenuReplies(isSubscribed)...)), StateIdle, sessionData{}
}

// persistenceFailure answers the generic localized message and keeps the
// prior state so the user can retry the same step.
func (c *Controller) persistenceFailure(userID uint, err error, state State, data sessionData) (Response, State, sessionData) {
	c.log.Error("persistence failure", "user_id", userID, "err", err)
	return respond(textMessage(msgGenericError)), state, data
}

func displayName(user *models.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Username
}
