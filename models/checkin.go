package models

import "time"

// CheckIn records one visit; the streak calculator reads these per user+venue
type CheckIn struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index:idx_checkin_user_venue;not null" json:"external_user_id"`
	VenueID        string `gorm:"index:idx_checkin_user_venue;not null" json:"venue_id"`

	PartySize   int       `gorm:"default:1" json:"party_size"`
	StreakDay   int       `gorm:"default:1" json:"streak_day"` // streak length as of this check-in
	CheckedInAt time.Time `gorm:"index;not null" json:"checked_in_at"`

	Timestamps
}
