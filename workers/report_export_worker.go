package workers

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"venue-loyalty-system/models"
	"venue-loyalty-system/utils"
)

// ReportExporter writes the previous day's point transactions per venue to a
// CSV in R2 so the owner dashboard and external reporting can read the ledger
// without touching the live database.
type ReportExporter struct {
	DB      *gorm.DB
	printer *message.Printer
}

func NewReportExporter(db *gorm.DB) *ReportExporter {
	return &ReportExporter{
		DB:      db,
		printer: message.NewPrinter(language.English),
	}
}

// ExportDay uploads one CSV per venue covering [day, day+24h)
func (e *ReportExporter) ExportDay(day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var venueIDs []string
	err := e.DB.Model(&models.PointTransaction{}).
		Where("occurred_at >= ? AND occurred_at < ?", start, end).
		Distinct("venue_id").
		Pluck("venue_id", &venueIDs).Error
	if err != nil {
		return fmt.Errorf("failed to list venues with activity: %w", err)
	}

	for _, venueID := range venueIDs {
		if err := e.exportVenueDay(venueID, start, end); err != nil {
			log.Printf("[ReportExport] venue %s failed: %v", venueID, err)
		}
	}
	return nil
}

func (e *ReportExporter) exportVenueDay(venueID string, start, end time.Time) error {
	var transactions []models.PointTransaction
	err := e.DB.Where("venue_id = ? AND occurred_at >= ? AND occurred_at < ?", venueID, start, end).
		Order("occurred_at ASC").
		Find(&transactions).Error
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"occurred_at", "membership_id", "type", "source", "points", "balance_after", "spend_amount"})

	var totalPoints int64
	for _, t := range transactions {
		_ = w.Write([]string{
			t.OccurredAt.Format(time.RFC3339),
			t.MembershipID,
			string(t.Type),
			string(t.Source),
			strconv.FormatInt(t.Amount, 10),
			strconv.FormatInt(t.BalanceAfter, 10),
			t.SpendAmount.StringFixed(2),
		})
		totalPoints += t.Amount
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	key := fmt.Sprintf("reports/%s/%s.csv", venueID, start.Format("2006-01-02"))
	url, err := utils.UploadBytesToR2([]byte(buf.String()), key, "text/csv")
	if err != nil {
		return err
	}

	log.Printf("📊 Ledger report uploaded: %s (%s entries, net %s points)",
		url,
		e.printer.Sprintf("%d", len(transactions)),
		e.printer.Sprintf("%d", totalPoints))
	return nil
}

// RunNightlyExports exports yesterday's ledger once per day until ctx is done
func RunNightlyExports(ctx context.Context, exporter *ReportExporter) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	log.Println("[ReportExport] nightly ledger export running")
	for {
		select {
		case <-ctx.Done():
			log.Println("[ReportExport] stopping")
			return
		case <-ticker.C:
			yesterday := time.Now().UTC().AddDate(0, 0, -1)
			if err := exporter.ExportDay(yesterday); err != nil {
				log.Printf("[ReportExport] export failed: %v", err)
			}
		}
	}
}
