package contacts

import "time"

// Contact is a directory entry that jobs copy recipients from. Its ID is the
// recipient id embedded in Job.Users.
type Contact struct {
	ID            uint64     `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"type:text;not null" json:"name"`
	AlterName     string     `gorm:"type:text;not null;default:''" json:"alter_name"`
	Phone         string     `gorm:"type:text;not null" json:"phone"`
	Cuit          *string    `gorm:"type:text;index" json:"cuit"`
	IsGroup       bool       `gorm:"not null;default:false" json:"is_group"`
	LastExecution *time.Time `gorm:"type:timestamptz" json:"last_execution"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
}
