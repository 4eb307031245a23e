package line

// Webhook payload shapes, trimmed to the fields this bot reads.
// https://developers.line.biz/en/reference/messaging-api/#webhook-event-objects

type WebhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string   `json:"type"`
	Timestamp  int64    `json:"timestamp"`
	ReplyToken string   `json:"replyToken,omitempty"`
	Source     *Source  `json:"source,omitempty"`
	Message    *Message `json:"message,omitempty"`
}

type Source struct {
	Type    string `json:"type"` // "user", "group" or "room"
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type Message struct {
	Type string `json:"type"` // only "text" is handled
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

const (
	EventTypeMessage  = "message"
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
	MessageTypeText   = "text"
	SourceTypeUser    = "user"
)

// TextMessage is the outbound message object.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: MessageTypeText, Text: text}
}
