package flow

import "regexp"

// State identifies where a user's conversation currently sits. The zero
// value means no active flow (main menu).
type State string

const (
	StateIdle State = ""

	// Onboarding funnel, in order.
	StateReady           State = "ready"
	StateName            State = "name"
	StatePhone           State = "phone"
	StateEmail           State = "email"
	StateGalleryName     State = "gallery_name"
	StateInstagram       State = "instagram"
	StateTelegramChannel State = "telegram_channel"
	StateCustomers       State = "customers"
	StateConstraints     State = "constraints"
	StateHelp            State = "help"
	StatePhysicalStore   State = "physical_store"
	StateAdditionalInfo  State = "additional_info"
	StateSummaryConfirm  State = "summary_confirm"

	// Post-funnel.
	StateScenarioBrowsing     State = "scenario_browsing"
	StateSubscriptionDecision State = "subscription_decision"

	// Content generation group.
	StateContentKind  State = "content_kind"
	StateCaptionInput State = "caption_input"
	StateReelsInput   State = "reels_input"
	StateVisualInput  State = "visual_input"

	// Discount entry.
	StateDiscountCode State = "discount_code"
)

// predecessor is the static back-navigation map. Backward edges are total
// and cycle-free; repeated "back" from the first state stays at ready.
var predecessor = map[State]State{
	StateReady:           StateReady,
	StateName:            StateReady,
	StatePhone:           StateName,
	StateEmail:           StatePhone,
	StateGalleryName:     StateEmail,
	StateInstagram:       StateGalleryName,
	StateTelegramChannel: StateInstagram,
	StateCustomers:       StateTelegramChannel,
	StateConstraints:     StateCustomers,
	StateHelp:            StateConstraints,
	StatePhysicalStore:   StateHelp,
	StateAdditionalInfo:  StatePhysicalStore,
}

var (
	phonePattern = regexp.MustCompile(`^(\+?0?9)\d{9}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidPhone reports whether the input matches the accepted mobile pattern.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// ValidEmail reports whether the input looks like local@domain.tld.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }
