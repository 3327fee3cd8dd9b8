package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/tiendasmegan/megan-bot-backend/database"
	"github.com/tiendasmegan/megan-bot-backend/internal/catalog"
	"github.com/tiendasmegan/megan-bot-backend/internal/jobs"
	"github.com/tiendasmegan/megan-bot-backend/internal/models"
	"github.com/tiendasmegan/megan-bot-backend/internal/routes"
	"github.com/tiendasmegan/megan-bot-backend/internal/services"
	"github.com/tiendasmegan/megan-bot-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Load the static catalog, promo and advisor prompt data
	cat, err := catalog.Load(os.Getenv("CATALOG_PATH"), os.Getenv("PROMO_PATH"), os.Getenv("SYSTEM_PROMPT_PATH"))
	if err != nil {
		log.Fatal("Failed to load catalog data:", err)
	}

	// Initialize storage
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(&models.Order{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}
	storage.SetStore(store)

	// Pick the outbound transport for this deployment
	var sender services.Sender
	if os.Getenv("WHATSAPP_PROVIDER") == "twilio" {
		sender, err = services.NewTwilioSender()
		if err != nil {
			log.Fatal("Failed to initialize Twilio sender:", err)
		}
		log.Println("✅ Twilio sender initialized")
	} else {
		sender, err = services.NewCloudSender()
		if err != nil {
			log.Fatal("Failed to initialize Cloud API sender:", err)
		}
		log.Println("✅ Cloud API sender initialized")
	}

	// AI advisor is optional: without a key the bot degrades to menus
	advisor, err := services.NewAdvisorService(cat.SystemPrompt())
	if err != nil {
		log.Printf("⚠️  Advisor disabled: %v", err)
		advisor = nil
	}

	// Wire the conversation services
	sessionManager := services.NewSessionManager()
	services.SetSessionManager(sessionManager)
	orderService := services.NewOrderService(sessionManager, store, sender, cat)
	router := services.NewRouter(sessionManager, orderService, advisor, cat, sender)
	sessionManager.OnNudge(router.Nudge)
	sessionManager.OnSessionEnd(router.SessionEnded)

	// Start the payment reminder job
	reminderJob := jobs.NewReminderJob(store, sender)
	reminderJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Megan Bot Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Root endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		orderCount, _ := store.CountOrders()
		return c.JSON(fiber.Map{
			"service":     "Megan Bot Backend",
			"version":     "1.0.0",
			"status":      "healthy",
			"environment": getEnvironment(),
			"storage":     getStorageType(),
			"advisor":     advisor != nil,
			"catalog": fiber.Map{
				"categories": cat.Categories(),
			},
			"sessions": len(sessionManager.ActiveSessions()),
			"orders":   orderCount,
		})
	})

	// Setup routes
	routes.SetupRoutes(app, router, sessionManager, store)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		reminderJob.Stop()
		sessionManager.Shutdown()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 Megan Bot Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("🤖 Advisor: %s", getAdvisorStatus(advisor))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getAdvisorStatus(advisor *services.AdvisorService) string {
	if advisor == nil {
		return "Disabled"
	}
	return "Configured"
}
