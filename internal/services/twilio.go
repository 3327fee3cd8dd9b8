package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// TwilioSender delivers messages through the Twilio WhatsApp channel. Twilio
// freeform messages have no reply buttons, so interactive payloads degrade
// to a numbered list.
type TwilioSender struct {
	client *twilio.RestClient
	from   string // Format: "whatsapp:+14155238886"
}

// NewTwilioSender creates a Twilio sender from the environment
func NewTwilioSender() (*TwilioSender, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioSender{
		client: client,
		from:   from,
	}, nil
}

// Send delivers one outbound message via Twilio
func (t *TwilioSender) Send(to string, msg models.OutboundMessage) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))

	switch msg.Type {
	case models.MessageTypeImage:
		params.SetBody(msg.Caption)
		params.SetMediaUrl([]string{msg.ImageURL})
	case models.MessageTypeButtons:
		params.SetBody(renderButtonsAsText(msg))
	default:
		params.SetBody(msg.Body)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// renderButtonsAsText renders an interactive message as a numbered list
func renderButtonsAsText(msg models.OutboundMessage) string {
	var b strings.Builder
	b.WriteString(msg.Body)
	b.WriteString("\n")
	for i, button := range msg.Buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, button.Title)
	}
	b.WriteString("\n\nResponde con el número de tu elección.")
	return b.String()
}
