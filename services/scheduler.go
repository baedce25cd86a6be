// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"venue-loyalty-system/models"
)

// StartMaintenanceScheduler runs the engine's periodic jobs: the hourly
// expiration sweep (flip cycles whose 180-day window has passed) and the
// daily tier maintenance pass (monthly-spend / inactivity downgrades).
func (s *LoyaltyService) StartMaintenanceScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every hour: refresh expiration records and mark expired cycles
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			expired, err := s.Expirations.Sweep(time.Now())
			if err != nil {
				log.Printf("[Scheduler] expiration sweep error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("⏳ Expiration sweep: %d balance(s) newly expired, awaiting settlement", expired)
			}
		}),
	)

	// Every 24 hours: per-venue tier maintenance
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			var venues []models.Venue
			if err := s.DB.Where("is_active = ?", true).Find(&venues).Error; err != nil {
				log.Printf("[Scheduler] venue list error: %v", err)
				return
			}
			now := time.Now()
			for _, v := range venues {
				if err := s.Tiers.RunMaintenance(v.ID, now); err != nil {
					log.Printf("[Scheduler] tier maintenance failed for venue %s: %v", v.ID, err)
				}
			}
		}),
	)
}
