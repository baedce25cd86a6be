package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"venue-loyalty-system/handlers"
	"venue-loyalty-system/middleware"
	"venue-loyalty-system/models"
	"venue-loyalty-system/services"
	"venue-loyalty-system/utils"
	"venue-loyalty-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB, JSON only, no uploads
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Venue{},
		&models.VenueTierConfig{},
		&models.VenueMembership{},
		&models.ReferralChain{},
		&models.PointTransaction{},
		&models.PointExpiration{},
		&models.CheckIn{},
		&models.BonusEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	loyaltyService := services.NewLoyaltyService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expiry warnings → notification service (delivery is external)
	notifyClient := workers.NewExpiryNotifyClient(db)
	go workers.PollExpiryWarnings(ctx, notifyClient, 15*time.Minute)

	// Nightly ledger CSVs → R2 for external reporting
	exporter := workers.NewReportExporter(db)
	go workers.RunNightlyExports(ctx, exporter)

	loyaltyService.StartMaintenanceScheduler()

	handlers.SetupLoyaltyRoutes(app, loyaltyService)
	handlers.SetupReferralRoutes(app, loyaltyService.Referrals)
	handlers.SetupVenueRoutes(app, db, loyaltyService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Expiry warning polling running (every 15m)")
	log.Println("✅ Nightly ledger export running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
