// handlers/loyalty_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"venue-loyalty-system/middleware"
	"venue-loyalty-system/models"
	"venue-loyalty-system/services"
)

func SetupLoyaltyRoutes(app *fiber.App, loyaltyService *services.LoyaltyService) {
	// 🔐 All user-facing loyalty routes require user context from the Gateway
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Earn: purchase line items → points
	secured.Post("/venues/:venue_id/earn", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		var req struct {
			Items      []services.OrderItem `json:"items"`
			OccurredAt *time.Time           `json:"occurred_at"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		occurredAt := time.Now()
		if req.OccurredAt != nil {
			occurredAt = *req.OccurredAt
		}

		result, err := loyaltyService.Earn(userID, venueID, req.Items, occurredAt)
		if err != nil {
			return loyaltyError(c, err)
		}
		return c.JSON(result)
	})

	// Refund: reverses a prior purchase's points
	secured.Post("/venues/:venue_id/refund", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		var req struct {
			Items      []services.OrderItem `json:"items"`
			OccurredAt *time.Time           `json:"occurred_at"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		occurredAt := time.Now()
		if req.OccurredAt != nil {
			occurredAt = *req.OccurredAt
		}

		result, err := loyaltyService.Refund(userID, venueID, req.Items, occurredAt)
		if err != nil {
			return loyaltyError(c, err)
		}
		return c.JSON(result)
	})

	// Redeem points against a reward
	secured.Post("/venues/:venue_id/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		var req struct {
			PointsCost int64 `json:"points_cost"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		result, err := loyaltyService.Redeem(userID, venueID, req.PointsCost)
		if err != nil {
			return loyaltyError(c, err)
		}
		return c.JSON(result)
	})

	// Check in at a venue
	secured.Post("/venues/:venue_id/check-in", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		var req struct {
			PartySize int `json:"party_size"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.PartySize == 0 {
			req.PartySize = 1
		}

		result, err := loyaltyService.CheckIn(userID, venueID, req.PartySize, time.Now())
		if err != nil {
			return loyaltyError(c, err)
		}
		return c.JSON(result)
	})

	// Membership state
	secured.Get("/venues/:venue_id/membership", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		membership, err := loyaltyService.GetMembership(userID, venueID)
		if err != nil {
			return loyaltyError(c, err)
		}

		config := loyaltyService.Tiers.ConfigForVenue(venueID)
		progress := services.ProgressToward(membership.Tier, membership.TotalSpent, config)

		return c.JSON(fiber.Map{
			"membership":    membership,
			"tier_progress": progress,
		})
	})

	// Expiration / warning state, polled by the mobile client
	secured.Get("/venues/:venue_id/expiration", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		state, err := loyaltyService.GetExpirationState(userID, venueID, time.Now())
		if err != nil {
			return loyaltyError(c, err)
		}
		return c.JSON(state)
	})

	secured.Post("/venues/:venue_id/expiration/snooze", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		var req struct {
			Days int `json:"days"`
		}
		if err := c.BodyParser(&req); err != nil || req.Days <= 0 {
			req.Days = 7
		}

		membership, err := loyaltyService.GetMembership(userID, venueID)
		if err != nil {
			return loyaltyError(c, err)
		}
		until := time.Now().AddDate(0, 0, req.Days)
		if err := loyaltyService.Expirations.Snooze(membership.ID, until); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to snooze warning"})
		}
		return c.JSON(fiber.Map{"message": "OK", "remind_later_date": until})
	})

	secured.Post("/venues/:venue_id/expiration/dismiss", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		membership, err := loyaltyService.GetMembership(userID, venueID)
		if err != nil {
			return loyaltyError(c, err)
		}
		if err := loyaltyService.Expirations.Dismiss(membership.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to dismiss warning"})
		}
		return c.JSON(fiber.Map{"message": "OK"})
	})

	// Transaction history
	secured.Get("/venues/:venue_id/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		limit, _ := strconv.Atoi(c.Query("limit", "50"))

		membership, err := loyaltyService.GetMembership(userID, venueID)
		if err != nil {
			return loyaltyError(c, err)
		}
		history, err := loyaltyService.Ledger.History(membership.ID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch transactions"})
		}
		return c.JSON(history)
	})

	// Current streak at a venue
	secured.Get("/venues/:venue_id/streak", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		venueID := c.Params("venue_id")

		day, multiplier := loyaltyService.GetStreakState(userID, venueID, time.Now())
		return c.JSON(fiber.Map{
			"streak_day": day,
			"multiplier": multiplier,
		})
	})
}

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralDistributor) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Register the caller's referral chain (called once at signup)
	secured.Post("/referrals/chain", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ReferrerID *string `json:"referrer_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		chain, err := referralService.BuildChainForNewUser(userID, req.ReferrerID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referral chain"})
		}
		return c.Status(fiber.StatusCreated).JSON(chain)
	})

	// The caller's ancestor chain and lifetime per-level earnings
	secured.Get("/referrals/chain", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		chain, err := referralService.ChainFor(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral chain"})
		}
		if chain == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No referral chain registered"})
		}
		return c.JSON(chain)
	})

	// Earnings summary across levels
	secured.Get("/referrals/earnings", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		chain, err := referralService.ChainFor(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral earnings"})
		}
		if chain == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No referral chain registered"})
		}

		levels := make([]fiber.Map, 0, models.ReferralChainDepth)
		for level := 1; level <= models.ReferralChainDepth; level++ {
			ref := chain.ReferrerAt(level)
			if ref == nil {
				continue
			}
			levels = append(levels, fiber.Map{
				"level":    level,
				"referrer": *ref,
				"earnings": chain.EarningsAt(level),
			})
		}
		return c.JSON(fiber.Map{
			"active_levels": chain.ActiveLevels(),
			"levels":        levels,
		})
	})
}

// loyaltyError maps engine sentinels onto HTTP statuses
func loyaltyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPartySize):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrVenueNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrMembershipInactive):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error", "cause": err.Error()})
	}
}
