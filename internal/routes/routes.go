package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/tiendasmegan/megan-bot-backend/internal/handlers"
	"github.com/tiendasmegan/megan-bot-backend/internal/middleware"
	"github.com/tiendasmegan/megan-bot-backend/internal/services"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, router *services.Router, sessions *services.SessionManager, store storage.Store) {

	whatsappHandler := handlers.NewWhatsAppHandler(router)
	adminHandler := handlers.NewAdminHandler(sessions, store)
	healthHandler := handlers.NewHealthHandler("1.0.0")

	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	// Meta verification handshake is unsigned by design
	app.Get("/webhook", whatsappHandler.HandleVerification)

	skipValidation := os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true"
	if skipValidation {
		app.Post("/webhook", whatsappHandler.HandleWebhook)
		app.Post("/webhook/twilio", whatsappHandler.HandleTwilioWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  Webhook signature validation DISABLED for development")
		}
	} else {
		app.Post("/webhook", middleware.ValidateMetaSignature(), whatsappHandler.HandleWebhook)
		app.Post("/webhook/twilio", middleware.ValidateTwilioSignature(), whatsappHandler.HandleTwilioWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/sessions", adminHandler.Sessions)
	admin.Get("/orders", adminHandler.Orders)
}
