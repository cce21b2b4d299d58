package ai

import (
	"context"

	"github.com/lexpacte/lexpacte/internal/domain/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/chat"
)

// Client is the port to the hosted model. Analyze and Rewrite convert remote
// call failures into user-facing fallback strings; callers must treat a
// placeholder as a soft failure, not crash the pipeline. Empty input text is
// the one hard error.
type Client interface {
	Analyze(ctx context.Context, text string, mode analysis.Mode, codes []string) (string, error)
	Rewrite(ctx context.Context, text, report string, codes []string) (string, error)
	Chat(ctx context.Context, system string, history []chat.Message, question string) (string, error)
}
