package analysis

import (
	"sync"
	"time"

	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
)

// stageSpan describes the progress band one status occupies and how long
// that stage typically takes. Within the band the percentage is
// interpolated from elapsed time, so a poller sees steady movement even
// while a remote call is pending.
type stageSpan struct {
	from, to int
	expect   time.Duration
}

var stageSpans = map[domain.Status]stageSpan{
	domain.StatusUploading:  {0, 10, 2 * time.Second},
	domain.StatusExtracting: {10, 35, 3 * time.Second},
	domain.StatusAnalyzing:  {35, 75, 60 * time.Second},
	domain.StatusRewriting:  {75, 95, 45 * time.Second},
}

// progressTracker converts the current stage and its age into a percentage.
// The reported value is monotonic: a stage change can only move it forward,
// and interpolation is clamped to the stage's upper bound.
type progressTracker struct {
	mu      sync.Mutex
	status  domain.Status
	entered time.Time
	now     func() time.Time
	lastPct int
}

func newProgressTracker(now func() time.Time) *progressTracker {
	t := &progressTracker{now: now}
	t.enter(domain.StatusUploading)
	return t
}

func (t *progressTracker) enter(s domain.Status) {
	t.mu.Lock()
	t.status = s
	t.entered = t.now()
	t.mu.Unlock()
}

// Percent returns the interpolated progress for the current stage.
func (t *progressTracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pct int
	switch t.status {
	case domain.StatusCompleted:
		pct = 100
	case domain.StatusFailed:
		pct = t.lastPct
	default:
		span, ok := stageSpans[t.status]
		if !ok {
			pct = t.lastPct
			break
		}
		elapsed := t.now().Sub(t.entered)
		frac := float64(elapsed) / float64(span.expect)
		if frac > 1 {
			frac = 1
		}
		pct = span.from + int(frac*float64(span.to-span.from))
	}

	if pct < t.lastPct {
		pct = t.lastPct
	}
	t.lastPct = pct
	return pct
}
