// Package flow implements the conversation state machine: the onboarding
// funnel, the content generation states and the discount entry flow. It is
// transport-agnostic; inbound events come in as abstract messages and the
// outbound side is a prompt plus the set of valid next tokens.
package flow

// Event is one inbound unit of work from the chat transport.
type Event struct {
	TelegramID    int64  `json:"external_user_id"`
	Username      string `json:"username,omitempty"`
	Text          string `json:"text,omitempty"`
	CallbackToken string `json:"callback_token,omitempty"`
	Audio         *Audio `json:"audio,omitempty"`
}

// Audio is an inbound voice artifact, validated against admission limits
// before transcription.
type Audio struct {
	Bytes           []byte `json:"bytes,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	SizeBytes       int64  `json:"size_bytes"`
}

// Message is one outbound message description. The transport renders
// SuggestedReplies however it likes (reply keyboard, quick replies, plain
// text); the flow never deals in transport controls.
type Message struct {
	Text             string   `json:"text"`
	SuggestedReplies []string `json:"suggested_replies,omitempty"`
	EditPrevious     bool     `json:"edits_previous_message,omitempty"`
}

// Response is the full answer to one event, in sending order.
type Response struct {
	Messages []Message `json:"messages"`
}

func respond(msgs ...Message) Response { return Response{Messages: msgs} }

func textMessage(text string, replies ...string) Message {
	return Message{Text: text, SuggestedReplies: replies}
}
