package category

import "errors"

// SystemCategoryName is the single protected category every orphaned
// expense is reassigned to.
const SystemCategoryName = "Uncategorized"

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsSystem bool   `json:"is_system"`
}

var ErrNotFound = errors.New("category not found")

// duplicate name on create
var ErrNameTaken = errors.New("category already exists")

// attempting to delete the system category
var ErrSystemCategory = errors.New("cannot delete system category")

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=80"`
}
