package analysis

import (
	"time"
)

// RunID identifies one analysis run
type RunID string

// Mode selects the prompt framing and table semantics
type Mode string

const (
	ModeBuyer  Mode = "buyer"
	ModeSeller Mode = "seller"
)

// Status enum for a run; Failed is terminal and reachable from any
// non-terminal status.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusExtracting Status = "extracting"
	StatusAnalyzing  Status = "analyzing"
	StatusRewriting  Status = "rewriting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Risk labels the analysis prompts are asked to use. The parser accepts any
// uppercase token because model output is not schema-constrained.
const (
	RiskFaible   = "FAIBLE"
	RiskModere   = "MODÉRÉ"
	RiskEleve    = "ÉLEVÉ"
	RiskCritique = "CRITIQUE"
)

// Entry is one persisted record of a completed analysis.
// Content holds the sealed report + revised contract; it is never stored in
// clear. Entries are immutable except for deletion.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"nom"`
	Score     string    `json:"score"`
	Content   string    `json:"content,omitempty"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryContent is the clear shape sealed into Entry.Content.
type EntryContent struct {
	Report          string `json:"report"`
	RevisedContract string `json:"revised_contract"`
}
