package jobs

import "time"

// Report summarises one polling pass. Manual triggers return it as is.
type Report struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Pending    int         `json:"pending"`
	Selected   int         `json:"selected"`
	Skipped    int         `json:"skipped"`
	Jobs       []JobReport `json:"jobs"`
}

type JobReport struct {
	JobID    uint64    `json:"job_id"`
	Category Category  `json:"category"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Sent     int       `json:"sent"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is the per-recipient result of one pass.
type Outcome struct {
	RecipientID uint64   `json:"recipient_id"`
	Name        string   `json:"name"`
	Sent        bool     `json:"sent"`
	Error       string   `json:"error,omitempty"`
	Files       []string `json:"files,omitempty"`
}

func (jr *JobReport) add(o Outcome) {
	jr.Outcomes = append(jr.Outcomes, o)
	if o.Sent {
		jr.Sent++
	} else {
		jr.Failed++
	}
}
