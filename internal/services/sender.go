package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// Sender delivers a structured message to a user. The webhook flow treats
// delivery as fire-and-forget: failures are logged, never rolled back.
type Sender interface {
	Send(to string, msg models.OutboundMessage) error
}

// SendAll delivers a sequence of messages in order, logging each failure and
// continuing with the rest
func SendAll(s Sender, to string, msgs ...models.OutboundMessage) {
	for _, msg := range msgs {
		if err := s.Send(to, msg); err != nil {
			log.Printf("❌ Failed to send %s message to %s: %v", msg.Type, to, err)
		}
	}
}

// CloudSender talks to the Meta WhatsApp Cloud API
type CloudSender struct {
	client        *http.Client
	token         string
	phoneNumberID string
	baseURL       string
}

// NewCloudSender creates a Cloud API sender from the environment
func NewCloudSender() (*CloudSender, error) {
	token := os.Getenv("WHATSAPP_TOKEN")
	phoneNumberID := os.Getenv("PHONE_NUMBER_ID")
	if token == "" || phoneNumberID == "" {
		return nil, fmt.Errorf("missing WHATSAPP_TOKEN or PHONE_NUMBER_ID in environment variables")
	}

	return &CloudSender{
		client:        &http.Client{Timeout: 15 * time.Second},
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       "https://graph.facebook.com/v18.0",
	}, nil
}

// Graph API wire shapes

type cloudPayload struct {
	MessagingProduct string            `json:"messaging_product"`
	To               string            `json:"to"`
	Type             string            `json:"type,omitempty"`
	Text             *cloudText        `json:"text,omitempty"`
	Image            *cloudImage       `json:"image,omitempty"`
	Interactive      *cloudInteractive `json:"interactive,omitempty"`
}

type cloudText struct {
	Body string `json:"body"`
}

type cloudImage struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type cloudInteractive struct {
	Type   string      `json:"type"`
	Body   cloudText   `json:"body"`
	Action cloudAction `json:"action"`
}

type cloudAction struct {
	Buttons []cloudButton `json:"buttons"`
}

type cloudButton struct {
	Type  string `json:"type"`
	Reply struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"reply"`
}

// Send maps the transport-neutral message onto a Graph API payload
func (c *CloudSender) Send(to string, msg models.OutboundMessage) error {
	payload := cloudPayload{
		MessagingProduct: "whatsapp",
		To:               to,
	}

	switch msg.Type {
	case models.MessageTypeImage:
		payload.Type = "image"
		payload.Image = &cloudImage{Link: msg.ImageURL, Caption: msg.Caption}
		if len(msg.Buttons) > 0 {
			// Cloud API images cannot carry reply buttons, send them after
			if err := c.post(payload); err != nil {
				return err
			}
			return c.Send(to, models.WithButtons(msg.Caption, msg.Buttons...))
		}
	case models.MessageTypeButtons:
		payload.Type = "interactive"
		interactive := &cloudInteractive{
			Type: "button",
			Body: cloudText{Body: msg.Body},
		}
		for _, b := range msg.Buttons {
			button := cloudButton{Type: "reply"}
			button.Reply.ID = b.ID
			button.Reply.Title = b.Title
			interactive.Action.Buttons = append(interactive.Action.Buttons, button)
		}
		payload.Interactive = interactive
	default:
		payload.Type = "text"
		payload.Text = &cloudText{Body: msg.Body}
	}

	return c.post(payload)
}

func (c *CloudSender) post(payload cloudPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloud api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("cloud api returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
