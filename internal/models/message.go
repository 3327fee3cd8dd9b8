package models

// ChatMessage is one turn of the advisor conversation history
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// OutboundMessage is the transport-neutral reply payload. The sender
// implementation decides how each type maps onto the wire.
type OutboundMessage struct {
	Type     string   `json:"type"` // "text", "buttons" or "image"
	Body     string   `json:"body"`
	ImageURL string   `json:"image_url,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// Button is one quick-reply option attached to an interactive message
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Outbound message types
const (
	MessageTypeText    = "text"
	MessageTypeButtons = "buttons"
	MessageTypeImage   = "image"
)

// Text builds a plain text outbound message
func Text(body string) OutboundMessage {
	return OutboundMessage{Type: MessageTypeText, Body: body}
}

// Image builds an image-with-caption outbound message
func Image(link, caption string) OutboundMessage {
	return OutboundMessage{Type: MessageTypeImage, ImageURL: link, Caption: caption}
}

// WithButtons builds an interactive button outbound message
func WithButtons(body string, buttons ...Button) OutboundMessage {
	return OutboundMessage{Type: MessageTypeButtons, Body: body, Buttons: buttons}
}
