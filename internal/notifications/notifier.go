package notifications

import "context"

type ExpenseReviewedInput struct {
	ExpenseID   string
	SubmitterID string
	ReviewerID  string
	Status      string
	Amount      float64
	Reason      string
}

// Notifier tells a submitter their expense was approved or rejected.
// Delivery is synchronous and best-effort; review outcomes are never
// rolled back over a failed notification.
type Notifier interface {
	SendExpenseReviewed(ctx context.Context, input ExpenseReviewedInput) error
}
