package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	app "github.com/lexpacte/lexpacte/internal/application"
	"github.com/lexpacte/lexpacte/internal/domain/ai"
	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/domain/faults"
	"github.com/lexpacte/lexpacte/internal/report"
)

// Service runs the analysis pipeline for uploaded contracts.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Runs      *Registry
	Repo      domain.HistoryRepository
	Faults    faults.Repository
	AI        ai.Client
	Extractor domain.TextExtractor
	Sealer    domain.Sealer
	Clock     app.Clock

	// SecuringDelay is a short pause before extraction starts, so the
	// uploading stage is observable by a status poller.
	SecuringDelay time.Duration
}

// Create registers a new run for an uploaded document. The pipeline does
// not start until Execute is called.
func (s *Service) Create(userID, name string, document []byte, mode domain.Mode, codes []string) *Run {
	run := &Run{
		ID:        domain.RunID(uuid.New().String()),
		UserID:    userID,
		Name:      name,
		Mode:      mode,
		Codes:     codes,
		CreatedAt: s.Clock.Now(),
		Chat:      chat.NewSession(),
		status:    domain.StatusUploading,
		document:  document,
		progress:  newProgressTracker(s.Clock.Now),
	}
	s.Runs.Add(run)
	return run
}

// ExecuteUntilDone runs the pipeline with context.Background(), meant to
// be called from a goroutine in the router so it is not cut short when
// the upload request's context is canceled.
func (s *Service) ExecuteUntilDone(run *Run) error {
	return s.Execute(context.Background(), run)
}

// Execute drives the run through extraction, analysis and rewrite. A
// second call for the same run returns ErrAlreadyStarted without touching
// the pipeline.
func (s *Service) Execute(ctx context.Context, run *Run) error {
	if !run.begin() {
		return domain.ErrAlreadyStarted
	}

	if s.SecuringDelay > 0 {
		select {
		case <-time.After(s.SecuringDelay):
		case <-ctx.Done():
			s.abort(ctx, run, "extract", ctx.Err())
			return ctx.Err()
		}
	}

	run.setStatus(domain.StatusExtracting)
	text, err := s.Extractor.Extract(ctx, run.document)
	if err != nil {
		s.abort(ctx, run, "extract", err)
		return err
	}
	if strings.TrimSpace(text) == "" {
		s.abort(ctx, run, "extract", domain.ErrEmptyDocument)
		return domain.ErrEmptyDocument
	}
	run.mu.Lock()
	run.text = text
	run.document = nil // raw bytes no longer needed
	run.mu.Unlock()

	run.setStatus(domain.StatusAnalyzing)
	reportMarkdown, err := s.AI.Analyze(ctx, text, run.Mode, run.Codes)
	if err != nil {
		s.abort(ctx, run, "analyze", err)
		return err
	}

	run.setStatus(domain.StatusRewriting)
	revised, err := s.AI.Rewrite(ctx, text, reportMarkdown, run.Codes)
	if err != nil {
		s.abort(ctx, run, "rewrite", err)
		return err
	}

	parsed := report.Parse(reportMarkdown)

	run.mu.Lock()
	run.reportMarkdown = reportMarkdown
	run.revisedContract = revised
	run.parsed = parsed
	run.mu.Unlock()
	run.setStatus(domain.StatusCompleted)

	// Persistence is best effort: a storage fault must not undo a run the
	// user already paid model calls for.
	if err := s.persist(ctx, run, parsed); err != nil {
		slog.Error("history save failed", "run", run.ID, "error", err)
		s.recordFault(ctx, run, "persist", err)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, run *Run, parsed report.Parsed) error {
	sealed, err := s.Sealer.Seal(domain.EntryContent{
		Report:          run.ReportMarkdown(),
		RevisedContract: run.RevisedContract(),
	})
	if err != nil {
		return err
	}
	return s.Repo.Save(ctx, &domain.Entry{
		ID:        string(run.ID),
		UserID:    run.UserID,
		Name:      run.Name,
		Score:     parsed.Score,
		Content:   sealed,
		Mode:      run.Mode,
		CreatedAt: run.CreatedAt,
	})
}

func (s *Service) abort(ctx context.Context, run *Run, stage string, err error) {
	run.fail(err.Error())
	slog.Error("analysis pipeline failed", "run", run.ID, "stage", stage, "error", err)
	s.recordFault(ctx, run, stage, err)
}

func (s *Service) recordFault(ctx context.Context, run *Run, stage string, err error) {
	if s.Faults == nil {
		return
	}
	fault := &faults.Fault{
		UserID:    run.UserID,
		RunID:     string(run.ID),
		Stage:     stage,
		Message:   err.Error(),
		CreatedAt: s.Clock.Now(),
	}
	if serr := s.Faults.Save(context.WithoutCancel(ctx), fault); serr != nil {
		slog.Error("fault save failed", "run", run.ID, "error", serr)
	}
}

// Get returns the in-memory run for the id.
func (s *Service) Get(id domain.RunID) (*Run, error) {
	run, ok := s.Runs.Get(id)
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

// History lists persisted entries for the user, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*domain.Entry, error) {
	entries, err := s.Repo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	// sealed payloads stay server-side
	for _, e := range entries {
		e.Content = ""
	}
	return entries, nil
}

// HistoryContent opens one stored entry's sealed payload. ok is false when
// the entry cannot be decrypted under the current secret.
func (s *Service) HistoryContent(ctx context.Context, userID, id string) (*domain.Entry, *domain.EntryContent, error) {
	entry, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	var content domain.EntryContent
	if !s.Sealer.Open(entry.Content, &content) {
		entry.Content = ""
		return entry, nil, nil
	}
	entry.Content = ""
	return entry, &content, nil
}

// DeleteHistory removes one stored entry.
func (s *Service) DeleteHistory(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}

// Summary aggregates stored entries per score over the last N days.
func (s *Service) Summary(ctx context.Context, userID string, sinceDays int) (map[string]int, error) {
	return s.Repo.Summary(ctx, userID, sinceDays)
}

// FaultsByRun lists the persisted fault log for one run, newest first.
// Deployments without a fault store answer with an empty log.
func (s *Service) FaultsByRun(ctx context.Context, userID, runID string, limit int) ([]*faults.Fault, error) {
	if s.Faults == nil {
		return []*faults.Fault{}, nil
	}
	return s.Faults.ListByRun(ctx, userID, runID, limit)
}
