package handlers

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tiendasmegan/megan-bot-backend/internal/services"
)

// WhatsAppHandler handles webhook requests from the messaging platform
type WhatsAppHandler struct {
	router *services.Router
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(router *services.Router) *WhatsAppHandler {
	return &WhatsAppHandler{router: router}
}

// HandleVerification answers the Meta webhook verification handshake
func (h *WhatsAppHandler) HandleVerification(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token == os.Getenv("VERIFY_TOKEN") {
		return c.SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// Inbound is the normalized form of one webhook event: who wrote, what they
// wrote, and the symbolic action when a button was pressed
type Inbound struct {
	UserID string
	Text   string
	Action string
}

// Meta Cloud API payload shape (entry[0].changes[0].value.messages[0])

type metaWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []metaMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type metaMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
	} `json:"interactive"`
}

// NormalizeMeta extracts the stable triple from a Meta payload. Status
// updates and malformed events come back ok=false and are silently acked.
func NormalizeMeta(payload *metaWebhookPayload) (Inbound, bool) {
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return Inbound{}, false
	}
	messages := payload.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return Inbound{}, false
	}

	msg := messages[0]
	if msg.From == "" {
		return Inbound{}, false
	}

	in := Inbound{UserID: msg.From}
	if msg.Type == "interactive" && msg.Interactive != nil && msg.Interactive.ButtonReply != nil {
		in.Action = msg.Interactive.ButtonReply.ID
		return in, in.Action != ""
	}
	if msg.Text != nil {
		in.Text = msg.Text.Body
	}
	return in, in.Text != ""
}

// HandleWebhook processes incoming Meta Cloud API events. The webhook is
// always acked with 200: replies go out through the sender, never in the
// HTTP response.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload metaWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	in, ok := NormalizeMeta(&payload)
	if !ok {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 Message from %s: %s%s", in.UserID, in.Text, in.Action)

	if in.Action != "" {
		h.router.HandleAction(in.UserID, in.Action)
	} else {
		h.router.HandleText(in.UserID, in.Text)
	}
	return c.SendStatus(fiber.StatusOK)
}

// TwilioWebhookPayload is the flat form-encoded variant
type TwilioWebhookPayload struct {
	MessageSid    string `form:"MessageSid"`
	From          string `form:"From"` // whatsapp:+519XXXXXXXX
	To            string `form:"To"`
	Body          string `form:"Body"`
	ButtonPayload string `form:"ButtonPayload"` // action id for quick replies
}

// NormalizeTwilio extracts the stable triple from a Twilio form payload
func NormalizeTwilio(payload *TwilioWebhookPayload) (Inbound, bool) {
	from := strings.TrimPrefix(payload.From, "whatsapp:")
	if from == "" {
		return Inbound{}, false
	}

	in := Inbound{UserID: from, Text: payload.Body, Action: payload.ButtonPayload}
	return in, in.Text != "" || in.Action != ""
}

// HandleTwilioWebhook processes incoming messages from the Twilio variant
func (h *WhatsAppHandler) HandleTwilioWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing Twilio webhook: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	in, ok := NormalizeTwilio(&payload)
	if !ok {
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📱 Message from %s: %s%s", in.UserID, in.Text, in.Action)

	if in.Action != "" {
		h.router.HandleAction(in.UserID, in.Action)
	} else {
		h.router.HandleText(in.UserID, in.Text)
	}
	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload lets development tooling inject events without a
// messaging platform in front
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// HandleTestWebhook processes test messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook from %s: %s%s", payload.From, payload.Message, payload.Action)

	if payload.Action != "" {
		h.router.HandleAction(payload.From, payload.Action)
	} else {
		h.router.HandleText(payload.From, payload.Message)
	}

	return c.JSON(fiber.Map{"success": true})
}
