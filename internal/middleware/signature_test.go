package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func signedApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhook", ValidateMetaSignature(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func metaSign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestValidateMetaSignatureAccepts(t *testing.T) {
	t.Setenv("APP_SECRET", "supersecreto")
	app := signedApp()

	body := `{"entry":[]}`
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", metaSign("supersecreto", body))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 for a valid signature, got %d", resp.StatusCode)
	}
}

func TestValidateMetaSignatureRejectsTampering(t *testing.T) {
	t.Setenv("APP_SECRET", "supersecreto")
	app := signedApp()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"entry":["tampered"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", metaSign("supersecreto", `{"entry":[]}`))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 for a tampered body, got %d", resp.StatusCode)
	}
}

func TestValidateMetaSignatureRejectsMissingHeader(t *testing.T) {
	t.Setenv("APP_SECRET", "supersecreto")
	app := signedApp()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 without a signature header, got %d", resp.StatusCode)
	}
}

func TestValidateMetaSignatureMissingSecretIsServerError(t *testing.T) {
	t.Setenv("APP_SECRET", "")
	app := signedApp()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{}`))
	req.Header.Set("X-Hub-Signature-256", metaSign("whatever", `{}`))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("expected 500 when the secret is unset, got %d", resp.StatusCode)
	}
}

func TestCalculateTwilioSignature(t *testing.T) {
	// Known-answer check: sorted params concatenated after the URL
	got := calculateTwilioSignature("token", "https://example.com/webhook/twilio", map[string]string{
		"Body": "hola",
		"From": "whatsapp:+51999888777",
	})
	want := calculateTwilioSignature("token", "https://example.com/webhook/twilio", map[string]string{
		"From": "whatsapp:+51999888777",
		"Body": "hola",
	})
	if got != want {
		t.Error("expected the signature independent of map iteration order")
	}
	if got == "" {
		t.Error("expected a non-empty signature")
	}

	other := calculateTwilioSignature("other-token", "https://example.com/webhook/twilio", map[string]string{
		"Body": "hola",
	})
	if got == other {
		t.Error("expected different tokens to produce different signatures")
	}
}
