// handlers/venue_routes.go
package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-loyalty-system/middleware"
	"venue-loyalty-system/models"
	"venue-loyalty-system/services"
)

func SetupVenueRoutes(app *fiber.App, db *gorm.DB, loyaltyService *services.LoyaltyService) {
	// 🔓 Public venue info (still behind Gateway auth)
	app.Get("/venues/:venue_id", func(c *fiber.Ctx) error {
		var venue models.Venue
		err := db.Preload("TierConfig").Where("id = ?", c.Params("venue_id")).First(&venue).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Venue not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
		return c.JSON(venue)
	})

	// 🔒 Owner/admin configuration routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	admin := secured.Group("/admin")

	// Register a venue
	admin.Post("/venues", func(c *fiber.Ctx) error {
		var req struct {
			Name           string          `json:"name"`
			MarginFood     decimal.Decimal `json:"margin_food"`
			MarginBeverage decimal.Decimal `json:"margin_beverage"`
			MarginOther    decimal.Decimal `json:"margin_other"`
			CheckInPoints  *int64          `json:"check_in_points"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Venue name is required"})
		}

		venue := models.Venue{
			ID:             uuid.NewString(),
			Name:           req.Name,
			Slug:           slug.Make(req.Name),
			MarginFood:     req.MarginFood,
			MarginBeverage: req.MarginBeverage,
			MarginOther:    req.MarginOther,
			MaxMargin:      maxMargin(req.MarginFood, req.MarginBeverage, req.MarginOther),
			CheckInPoints:  10,
			IsActive:       true,
		}
		if req.CheckInPoints != nil {
			venue.CheckInPoints = *req.CheckInPoints
		}

		if err := db.Create(&venue).Error; err != nil {
			log.Printf("DB Error creating venue: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create venue"})
		}
		return c.Status(fiber.StatusCreated).JSON(venue)
	})

	// Update per-category margins
	admin.Put("/venues/:venue_id/margins", func(c *fiber.Ctx) error {
		var req struct {
			MarginFood     *decimal.Decimal `json:"margin_food"`
			MarginBeverage *decimal.Decimal `json:"margin_beverage"`
			MarginOther    *decimal.Decimal `json:"margin_other"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		var venue models.Venue
		if err := db.Where("id = ?", c.Params("venue_id")).First(&venue).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Venue not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		if req.MarginFood != nil {
			venue.MarginFood = *req.MarginFood
		}
		if req.MarginBeverage != nil {
			venue.MarginBeverage = *req.MarginBeverage
		}
		if req.MarginOther != nil {
			venue.MarginOther = *req.MarginOther
		}
		venue.MaxMargin = maxMargin(venue.MarginFood, venue.MarginBeverage, venue.MarginOther)

		if err := db.Save(&venue).Error; err != nil {
			log.Printf("DB Error updating venue margins: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update margins"})
		}
		return c.JSON(venue)
	})

	// Upsert tier config
	admin.Put("/venues/:venue_id/tier-config", func(c *fiber.Ctx) error {
		venueID := c.Params("venue_id")

		var req models.VenueTierConfig
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		var existing models.VenueTierConfig
		err := db.Where("venue_id = ?", venueID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			req.ID = uuid.NewString()
			req.VenueID = venueID
			if err := db.Create(&req).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create tier config"})
			}
			return c.Status(fiber.StatusCreated).JSON(req)
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		req.ID = existing.ID
		req.VenueID = venueID
		req.Timestamps = existing.Timestamps
		if err := db.Save(&req).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update tier config"})
		}
		return c.JSON(req)
	})

	// Bonus events (event windows / happy hours)
	admin.Post("/venues/:venue_id/events", func(c *fiber.Ctx) error {
		var req models.BonusEvent
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if !req.Multiplier.IsPositive() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Multiplier must be positive"})
		}

		req.ID = uuid.NewString()
		req.VenueID = c.Params("venue_id")
		req.IsActive = true
		if err := db.Create(&req).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create bonus event"})
		}
		return c.Status(fiber.StatusCreated).JSON(req)
	})

	admin.Delete("/venues/:venue_id/events/:id", func(c *fiber.Ctx) error {
		result := db.Where("id = ? AND venue_id = ?", c.Params("id"), c.Params("venue_id")).
			Delete(&models.BonusEvent{})
		if result.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete bonus event"})
		}
		if result.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Bonus event not found"})
		}
		return c.JSON(fiber.Map{"message": "Bonus event deleted"})
	})

	// Tier maintenance on demand (also runs on the scheduler)
	admin.Post("/venues/:venue_id/tier-maintenance", func(c *fiber.Ctx) error {
		if err := loyaltyService.Tiers.RunMaintenance(c.Params("venue_id"), time.Now()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Tier maintenance failed"})
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	// Reconciliation: replay a membership's ledger and compare to its balance
	admin.Get("/memberships/:membership_id/reconcile", func(c *fiber.Ctx) error {
		membershipID := c.Params("membership_id")

		var membership models.VenueMembership
		if err := db.Where("id = ?", membershipID).First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Membership not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		replayed, err := loyaltyService.Ledger.ReplayBalance(membershipID)
		if err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "ledger replay failed",
				"details": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"membership_id":    membershipID,
			"points_balance":   membership.PointsBalance,
			"replayed_balance": replayed,
			"consistent":       replayed == membership.PointsBalance,
		})
	})
}

func maxMargin(margins ...decimal.Decimal) decimal.Decimal {
	max := decimal.Zero
	for _, m := range margins {
		if m.GreaterThan(max) {
			max = m
		}
	}
	return max
}
