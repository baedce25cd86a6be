package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"gorm.io/gorm"

	"venue-loyalty-system/models"
	"venue-loyalty-system/services"
	"venue-loyalty-system/utils"
)

// ExpiryNotifyClient forwards expiring-balance warnings to the external
// notification service. Delivery (push/email) is that service's problem;
// this worker only decides who is due for a warning.
type ExpiryNotifyClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
	Tracker    *services.ExpirationTracker
}

func NewExpiryNotifyClient(db *gorm.DB) *ExpiryNotifyClient {
	baseURL := os.Getenv("NOTIFY_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("NOTIFY_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LOYALTY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LOYALTY_SERVICE_TOKEN environment variable is required for expiry notifications")
	}

	return &ExpiryNotifyClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		Tracker:    services.NewExpirationTracker(db),
		HTTPClient: utils.HTTPClient,
	}
}

// expiryWarning is the payload handed to the notification service
type expiryWarning struct {
	ExternalUserID  string `json:"external_user_id"`
	VenueID         string `json:"venue_id"`
	PointsAtRisk    int64  `json:"points_at_risk"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Urgency         string `json:"urgency"`
	ExpirationDate  string `json:"expiration_date"`
}

// NotifyDueWarnings finds memberships inside the warning window and posts one
// warning per membership. A failed post is retried on the next poll; a
// successful one stamps WarningShownAt so clients see a consistent state.
func (c *ExpiryNotifyClient) NotifyDueWarnings(ctx context.Context) error {
	now := time.Now()
	due, err := c.Tracker.WarningCandidates(now)
	if err != nil {
		return fmt.Errorf("failed to load warning candidates: %w", err)
	}

	for _, exp := range due {
		var membership models.VenueMembership
		if err := c.DB.Where("id = ?", exp.MembershipID).First(&membership).Error; err != nil {
			log.Printf("[ExpiryNotify] membership %s lookup failed: %v", exp.MembershipID, err)
			continue
		}
		if membership.PointsBalance == 0 {
			continue // nothing at risk
		}

		warning := expiryWarning{
			ExternalUserID:  membership.ExternalUserID,
			VenueID:         membership.VenueID,
			PointsAtRisk:    membership.PointsBalance,
			DaysUntilExpiry: exp.DaysUntilExpiry,
			Urgency:         string(services.ComputeUrgency(&exp)),
			ExpirationDate:  exp.ExpirationDate.Format(time.RFC3339),
		}

		if err := c.post(ctx, warning); err != nil {
			log.Printf("[ExpiryNotify] failed to notify %s: %v", membership.ExternalUserID, err)
			continue
		}
		if err := c.Tracker.MarkWarningShown(exp.MembershipID, now); err != nil {
			log.Printf("[ExpiryNotify] failed to stamp warning for %s: %v", exp.MembershipID, err)
		}
	}
	return nil
}

func (c *ExpiryNotifyClient) post(ctx context.Context, warning expiryWarning) error {
	body, err := json.Marshal(warning)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/notifications/points-expiry", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call notification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}

// PollExpiryWarnings runs the notify pass on an interval until ctx is done
func PollExpiryWarnings(ctx context.Context, client *ExpiryNotifyClient, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[ExpiryNotify] polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[ExpiryNotify] stopping")
			return
		case <-ticker.C:
			if err := client.NotifyDueWarnings(ctx); err != nil {
				log.Printf("[ExpiryNotify] pass failed: %v", err)
			}
		}
	}
}
