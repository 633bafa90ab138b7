package expense

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateExpenseRequest) Expense {
	now := time.Now().UTC()

	return Expense{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
		ReceiptDate: req.ReceiptDate,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
