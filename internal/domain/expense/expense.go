package expense

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s names one of the three lifecycle states.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// ReceiptDateLayout is the wire format for receipt dates.
const ReceiptDateLayout = "2006-01-02"

// Listing defaults and ceiling. Limit is always clamped to MaxListLimit,
// offset is passed through as-is.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Expense struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	CategoryID  string  `json:"category_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	// calendar date, YYYY-MM-DD
	ReceiptDate     string     `json:"receipt_date"`
	Status          Status     `json:"status"`
	ReviewedBy      *string    `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason *string    `json:"rejection_reason"`
	// denormalized read-side names, filled by the store on fetch
	CategoryName string  `json:"category_name,omitempty"`
	UserName     string  `json:"user_name,omitempty"`
	ReviewerName *string `json:"reviewer_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound = errors.New("expense not found")

	// guard outcomes, see Authorize
	ErrNotOwner   = errors.New("expense belongs to another user")
	ErrNotPending = errors.New("expense is not pending")
	ErrSelfReview = errors.New("cannot review own expense")

	// dangling category reference on create/update
	ErrCategoryNotFound = errors.New("invalid category")

	ErrFutureDate  = errors.New("receipt date cannot be in the future")
	ErrEmptyReason = errors.New("rejection reason is required")
)

type CreateExpenseRequest struct {
	UserID      string  `json:"-"`
	CategoryID  string  `json:"category_id" binding:"required,uuid"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,min=1,max=500"`
	ReceiptDate string  `json:"receipt_date" binding:"required,datetime=2006-01-02"`
}

// full replacement of the editable fields, pending expenses only
type UpdateExpenseRequest struct {
	CategoryID  string  `json:"category_id" binding:"required,uuid"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description" binding:"required,min=1,max=500"`
	ReceiptDate string  `json:"receipt_date" binding:"required,datetime=2006-01-02"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	UserID     *string
	Status     *Status
	CategoryID *string
	FromDate   *string
	ToDate     *string
	Limit      int
	Offset     int
}

// Normalize applies the listing defaults: limit defaults to 20, is clamped
// to 100, and a negative offset becomes 0.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ValidateReceiptDate parses a YYYY-MM-DD string and rejects dates after
// the end of the current day. The check happens at write time only; a
// stored date is never re-validated.
func ValidateReceiptDate(s string, now time.Time) error {
	d, err := time.Parse(ReceiptDateLayout, s)
	if err != nil {
		return err
	}

	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	if d.After(endOfToday) {
		return ErrFutureDate
	}

	return nil
}
