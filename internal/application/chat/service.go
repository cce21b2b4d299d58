package chat

import (
	"context"

	runs "github.com/lexpacte/lexpacte/internal/application/analysis"
	"github.com/lexpacte/lexpacte/internal/domain/ai"
	domain "github.com/lexpacte/lexpacte/internal/domain/chat"
	"github.com/lexpacte/lexpacte/internal/infra/ai/prompt"
)

// Service answers follow-up questions about a completed analysis run.
type Service struct {
	AI ai.Client

	// ContextLimit bounds how much of the contract text is replayed to
	// the model on every question.
	ContextLimit int
}

// Send records the user's question on the run's session and asks the
// model for a reply. Only one send may be in flight per session; a
// concurrent send returns ErrBusy and is dropped, not queued.
func (s *Service) Send(ctx context.Context, run *runs.Run, question string) (domain.Message, error) {
	if _, err := run.Result(); err != nil {
		return domain.Message{}, err
	}

	sess := run.Chat
	if !sess.Begin() {
		return domain.Message{}, domain.ErrBusy
	}
	defer sess.End()

	// The question stays in the transcript even when the model call
	// fails afterwards.
	history := sess.History()
	sess.Append(domain.Message{Role: domain.RoleUser, Content: question})

	system := prompt.ChatSystem(
		prompt.Truncate(run.ContractText(), s.ContextLimit),
		run.ReportMarkdown(),
	)
	reply, err := s.AI.Chat(ctx, system, history, question)
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{Role: domain.RoleAssistant, Content: reply}
	sess.Append(msg)
	return msg, nil
}

// History returns the transcript of the run's session.
func (s *Service) History(run *runs.Run) []domain.Message {
	return run.Chat.History()
}
