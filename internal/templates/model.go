package templates

import "time"

// Template is the stored message text for one job category.
// A row with blank Text blocks sending for that category.
type Template struct {
	Category  string    `gorm:"primaryKey;type:text" json:"category"`
	Text      string    `gorm:"type:text;not null;default:''" json:"text"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}
