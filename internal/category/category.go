// Package category holds the fixed expense category list. Categories are
// deliberately static: approval rules reference them by name and free-form
// categories would silently bypass category-scoped rules.
package category

var categories = []string{
	"Travel",
	"Meals & Entertainment",
	"Office Supplies",
	"Equipment",
	"Software & Subscriptions",
	"Training & Development",
	"Marketing",
	"Utilities",
	"Other",
}

// All returns the category list in display order.
func All() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsValid reports whether name is a known category.
func IsValid(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
