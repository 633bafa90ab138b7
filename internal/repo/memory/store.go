package memory

import (
	"sync"

	"github.com/fincrest/expensehub/internal/domain/category"
	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/google/uuid"
)

// Store is an in-process stand-in for the postgres repos. Categories and
// expenses share one lock because category deletion reassigns expenses.
// Used by tests and by local runs without a database.
type Store struct {
	mu         sync.Mutex
	categories map[string]category.Category
	expenses   map[string]expense.Expense
}

func NewStore() *Store {
	s := &Store{
		categories: make(map[string]category.Category),
		expenses:   make(map[string]expense.Expense),
	}

	// the system category always exists, same as the seeded database
	id := uuid.NewString()
	s.categories[id] = category.Category{
		ID:       id,
		Name:     category.SystemCategoryName,
		IsSystem: true,
	}

	return s
}

func (s *Store) Categories() *CategoriesRepo {
	return &CategoriesRepo{store: s}
}

func (s *Store) Expenses() *ExpensesRepo {
	return &ExpensesRepo{store: s}
}

func (s *Store) systemCategoryLocked() (category.Category, bool) {
	for _, c := range s.categories {
		if c.IsSystem {
			return c, true
		}
	}
	return category.Category{}, false
}
