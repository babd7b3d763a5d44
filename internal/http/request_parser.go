package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
)

// parseListQuery builds a list query from the request's query string.
// Unknown sort fields and orders fall back to defaults rather than erroring.
func parseListQuery(r *http.Request) core.ListQuery {
	values := r.URL.Query()
	return core.NewListQuery(values.Get("search"), values.Get("sort_by"), values.Get("order"))
}

// parseIDParam extracts a positive integer path parameter.
func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: name, Message: "invalid id"}
	}
	return id, nil
}

// expenseForm holds the raw submitted values so a failed form can be
// re-rendered with the user's input intact.
type expenseForm struct {
	Title       string
	Description string
	Amount      string
	Date        string
	CategoryID  string
}

func readExpenseForm(r *http.Request) expenseForm {
	return expenseForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: r.PostFormValue("description"),
		Amount:      r.PostFormValue("amount"),
		Date:        r.PostFormValue("date"),
		CategoryID:  r.PostFormValue("category_id"),
	}
}

// parse validates the raw form and converts it into an expense. The zero
// expense and a validation error are returned on the first bad field.
func (f expenseForm) parse() (core.Expense, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Expense{}, err
	}

	date, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		return core.Expense{}, &core.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"}
	}

	categoryID, err := strconv.ParseInt(f.CategoryID, 10, 64)
	if err != nil || categoryID <= 0 {
		return core.Expense{}, &core.ValidationError{Field: "category_id", Message: "select a category"}
	}

	return core.Expense{
		Title:       f.Title,
		Description: f.Description,
		Amount:      amount,
		Date:        date,
		CategoryID:  categoryID,
	}, nil
}

// formFromExpense pre-fills the form for the edit view.
func formFromExpense(e core.Expense) expenseForm {
	return expenseForm{
		Title:       e.Title,
		Description: e.Description,
		Amount:      strconv.FormatFloat(e.Amount, 'f', 2, 64),
		Date:        e.Date.Format("2006-01-02"),
		CategoryID:  strconv.FormatInt(e.CategoryID, 10),
	}
}
