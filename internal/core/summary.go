package core

// ExpenseList is an ordered result set together with the exact sum of the
// amounts over the same filtered rows.
type ExpenseList struct {
	Items []Expense
	Total float64
}

// CategorySummary reports how many expenses reference a category and their
// combined amount. Categories with no expenses report zero, not absence.
type CategorySummary struct {
	Category ExpenseCategory
	Count    int64
	Total    float64
}
