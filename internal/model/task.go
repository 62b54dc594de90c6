package model

import "time"

// Priority is the user-facing task priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts the wire form of a priority, case-insensitively.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "low", "Low", "LOW":
		return PriorityLow, true
	case "medium", "Medium", "MEDIUM":
		return PriorityMedium, true
	case "high", "High", "HIGH":
		return PriorityHigh, true
	}
	return "", false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     time.Time  `json:"end_date"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	ImageIDs    []string   `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskDetail is a single-task response with image ids resolved to URLs.
type TaskDetail struct {
	Task
	ImageURLs []string `json:"image_urls"`
}

// TaskRequest carries the fields of a create/update call before validation.
// ID is set on updates only.
type TaskRequest struct {
	ID          string
	Name        string `validate:"required"`
	Description string `validate:"required"`
	StartDate   *time.Time
	EndDate     *time.Time `validate:"required"`
	Priority    Priority   `validate:"required,priority"`
	Completed   bool
}
