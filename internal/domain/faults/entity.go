package faults

import "time"

// Fault represents a persisted pipeline or persistence error entry
type Fault struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	RunID       string    `json:"run_id"`
	Stage       string    `json:"stage,omitempty"` // extract | analyze | rewrite | persist
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
