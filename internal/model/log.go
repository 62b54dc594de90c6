package model

import "time"

type LogType string

const (
	LogInsert LogType = "insert"
	LogUpdate LogType = "update"
	LogDelete LogType = "delete"
)

const (
	EntityTask  = "task"
	EntityImage = "image"
)

// Snapshot is the serialized before/after state stored with a log entry.
// Kept as a plain string-keyed map so it round-trips through jsonb.
type Snapshot map[string]any

// Log is an append-only audit record. Entries are never updated or
// deleted by the system.
type Log struct {
	ID        string    `json:"id"`
	Type      LogType   `json:"type"`
	UserID    string    `json:"user_id"`
	UserAddr  string    `json:"user_addr"`
	Entity    string    `json:"entity"`
	Previous  Snapshot  `json:"previous,omitempty"`
	Current   Snapshot  `json:"current,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskSnapshot captures a task's state for the audit trail.
func TaskSnapshot(t Task) Snapshot {
	s := Snapshot{
		"id":          t.ID,
		"owner":       t.Owner,
		"name":        t.Name,
		"description": t.Description,
		"end_date":    t.EndDate.Format(time.RFC3339),
		"priority":    string(t.Priority),
		"completed":   t.Completed,
		"image_ids":   append([]string(nil), t.ImageIDs...),
	}
	if t.StartDate != nil {
		s["start_date"] = t.StartDate.Format(time.RFC3339)
	}
	return s
}

// ImageSnapshot captures a registry entry's state for the audit trail.
func ImageSnapshot(img Image) Snapshot {
	return Snapshot{
		"id":   img.ID,
		"hash": img.Hash,
		"key":  img.Key,
		"url":  img.URL,
	}
}
