package models

// SystemCategoryID is the reserved id of the built-in "Default" category.
// It always exists and is never reordered or deleted.
const SystemCategoryID int64 = 0

// Category is a user-defined shelf inside the library. Order is the position
// in the category list; Flags packs the per-category sort preference.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int64  `json:"order"`
	Flags int64  `json:"flags"`
}

func (c Category) IsSystem() bool {
	return c.ID == SystemCategoryID
}

// CategoryUpdate is a partial update: nil fields are left untouched.
type CategoryUpdate struct {
	ID    int64
	Name  *string
	Order *int64
	Flags *int64
}
