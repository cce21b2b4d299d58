package faults

import (
	"context"
)

// Repository defines persistence for pipeline faults
type Repository interface {
	Save(ctx context.Context, f *Fault) error
	ListByRun(ctx context.Context, userID string, runID string, limit int) ([]*Fault, error)
}
