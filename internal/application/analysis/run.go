package analysis

import (
	"sync"
	"time"

	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/report"
)

// Run is the in-memory state of one analysis pipeline execution, from
// upload to completion. A run also owns the chat session scoped to its
// document: a new upload always starts with an empty conversation.
type Run struct {
	ID        domain.RunID
	UserID    string
	Name      string
	Mode      domain.Mode
	Codes     []string
	CreatedAt time.Time
	Chat      *chat.Session

	mu       sync.Mutex
	started  bool
	status   domain.Status
	failure  string
	document []byte
	text     string

	reportMarkdown  string
	parsed          report.Parsed
	revisedContract string

	progress *progressTracker
}

// View is the poll-friendly projection of a run.
type View struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Name     string `json:"nom"`
	Mode     string `json:"mode"`
	Score    string `json:"score,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the full outcome of a completed run.
type Result struct {
	Report          string       `json:"report"`
	RevisedContract string       `json:"revised_contract"`
	Score           string       `json:"score"`
	Alerts          []string     `json:"alerts"`
	Rows            []report.Row `json:"rows"`
}

func (r *Run) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return false
	}
	r.started = true
	return true
}

func (r *Run) setStatus(s domain.Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
	r.progress.enter(s)
}

func (r *Run) fail(msg string) {
	r.mu.Lock()
	r.status = domain.StatusFailed
	r.failure = msg
	r.mu.Unlock()
	r.progress.enter(domain.StatusFailed)
}

// Status returns the current pipeline status.
func (r *Run) Status() domain.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns the poll view of the run.
func (r *Run) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := View{
		ID:     string(r.ID),
		Status: string(r.status),
		Name:   r.Name,
		Mode:   string(r.Mode),
		Error:  r.failure,
	}
	if r.status == domain.StatusCompleted {
		v.Score = r.parsed.Score
	}
	v.Progress = r.progress.Percent()
	return v
}

// Result returns the completed outcome, or ErrNotCompleted while the
// pipeline is still moving or has failed.
func (r *Run) Result() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusCompleted {
		return Result{}, domain.ErrNotCompleted
	}
	return Result{
		Report:          r.reportMarkdown,
		RevisedContract: r.revisedContract,
		Score:           r.parsed.Score,
		Alerts:          r.parsed.Alerts,
		Rows:            r.parsed.Rows,
	}, nil
}

// Parsed returns the structured report of a completed run.
func (r *Run) Parsed() (report.Parsed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusCompleted {
		return report.Parsed{}, domain.ErrNotCompleted
	}
	return r.parsed, nil
}

// ContractText returns the extracted source text of the document.
func (r *Run) ContractText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// ReportMarkdown returns the raw analysis report.
func (r *Run) ReportMarkdown() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reportMarkdown
}

// RevisedContract returns the rewritten contract body.
func (r *Run) RevisedContract() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revisedContract
}
