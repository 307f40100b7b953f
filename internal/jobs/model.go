package jobs

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusError    Status = "ERROR"
)

var AllStatuses = []Status{StatusPending, StatusRunning, StatusFinished, StatusError}

type transition struct {
	From Status
	To   Status
}

var validTransitions = []transition{
	{From: StatusPending, To: StatusRunning},
	{From: StatusRunning, To: StatusFinished},
	{From: StatusRunning, To: StatusError},
}

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// CanTransitionTo reports whether s -> to is a legal move for one execution attempt.
func (s Status) CanTransitionTo(to Status) bool {
	for _, t := range validTransitions {
		if t.From == s && t.To == to {
			return true
		}
	}
	return false
}

type Category string

const (
	CategoryMonotributo Category = "MONOTRIBUTO"
	CategoryAutonomos   Category = "AUTONOMOS"
	CategoryDomestica   Category = "DOMESTICA"
)

var Categories = []Category{CategoryMonotributo, CategoryAutonomos, CategoryDomestica}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Job is a batch of messages to Users, all tied to one category and one execution time.
// ExecutionTime is stored without zone; its wall clock is read in the scheduler's reference timezone.
type Job struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	Users    datatypes.JSONSlice[Recipient] `gorm:"type:jsonb;not null;default:'[]'::jsonb" json:"users"`
	Category Category                       `gorm:"type:text;not null" json:"category"`
	Folder   string                         `gorm:"type:text;not null;default:''" json:"folder"`
	Caducate *string                        `gorm:"type:text" json:"caducate"`

	ExecutionTime time.Time  `gorm:"type:timestamp;index;not null" json:"execution_time"`
	Status        Status     `gorm:"type:text;index;not null;default:'PENDING'" json:"status"`
	ExecutedAt    *time.Time `gorm:"type:timestamptz" json:"executed_at"`
	LastError     *string    `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// Recipient is a person or group embedded in Job.Users.
type Recipient struct {
	ID        uint64            `json:"id"`
	Name      string            `json:"name"`
	AlterName string            `json:"alter_name"`
	Phone     string            `json:"phone"`
	Cuit      *string           `json:"cuit"`
	IsGroup   bool              `json:"is_group"`
	Linked    []LinkedRecipient `json:"linked_users"`

	NeedPapers       bool `json:"need_papers"`
	NeedZClosing     bool `json:"need_z"`
	NeedPurchases    bool `json:"need_compras"`
	NeedAuditClosing bool `json:"need_auditoria"`

	// Sent is the outcome of the latest attempt inside this job only.
	Sent bool `json:"sent"`
}

// LinkedRecipient rides along with a primary recipient and adds one attachment.
type LinkedRecipient struct {
	Cuit string `json:"cuit"`
	Name string `json:"name"`
}

// DisplayName prefers the informal name.
func (r Recipient) DisplayName() string {
	if r.AlterName != "" {
		return r.AlterName
	}
	return r.Name
}

// Address is the chat id on the messaging channel: groups end in @g.us,
// people in @c.us. Stored values that already carry a suffix are kept.
func (r Recipient) Address() string {
	if strings.Contains(r.Phone, "@") {
		return r.Phone
	}
	if r.IsGroup {
		return strings.TrimSpace(r.Phone) + "@g.us"
	}
	digits := strings.Map(func(c rune) rune {
		if c >= '0' && c <= '9' {
			return c
		}
		return -1
	}, r.Phone)
	return digits + "@c.us"
}

// Delivery is the audit row written for every recipient attempt.
type Delivery struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	JobID       uint64         `gorm:"index;not null" json:"job_id"`
	RecipientID uint64         `gorm:"not null" json:"recipient_id"`
	Address     string         `gorm:"type:text;not null" json:"address"`
	Sent        bool           `gorm:"not null" json:"sent"`
	Error       *string        `gorm:"type:text" json:"error"`
	Files       pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"files"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

// SentFlag is one per-recipient update applied after a delivery attempt.
type SentFlag struct {
	RecipientID uint64
	Sent        bool
}
