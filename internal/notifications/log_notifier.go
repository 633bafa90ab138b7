package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier is the default delivery backend: it just writes a structured
// log line. A mail or chat provider would replace it behind the same
// interface.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendExpenseReviewed(ctx context.Context, in ExpenseReviewedInput) error {
	n.log.InfoContext(ctx, "notification.expense_reviewed",
		"expense_id", in.ExpenseID,
		"submitter_id", in.SubmitterID,
		"reviewer_id", in.ReviewerID,
		"status", in.Status,
		"amount", in.Amount,
		"reason", in.Reason,
	)
	return nil
}
