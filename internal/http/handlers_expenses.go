package http

import (
	"errors"
	"fmt"
	"net/http"

	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
)

type expenseListData struct {
	Items []core.Expense
	Total float64
	Query core.ListQuery
	Mine  bool
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r)

	list, err := s.repo.ListExpenses(r.Context(), q)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "expenses.html", expenseListData{
		Items: list.Items,
		Total: list.Total,
		Query: q,
	})
}

func (s *Server) handleMyExpenses(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)
	q := parseListQuery(r).ForOwner(id.Username)

	list, err := s.repo.ListExpenses(r.Context(), q)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "expenses.html", expenseListData{
		Items: list.Items,
		Total: list.Total,
		Query: q,
		Mine:  true,
	})
}

type expenseDetailData struct {
	Expense  core.Expense
	Category core.ExpenseCategory
	IsOwner  bool
}

func (s *Server) handleExpenseDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.renderError(w, r, core.ErrNotFound)
		return
	}

	expense, err := s.repo.GetExpense(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	category, err := s.repo.GetCategory(r.Context(), expense.CategoryID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	caller, _ := CurrentIdentity(r)
	s.render(w, r, http.StatusOK, "expense.html", expenseDetailData{
		Expense:  expense,
		Category: category,
		IsOwner:  core.CanMutate(caller.Username, expense),
	})
}

type expenseFormData struct {
	Form       expenseForm
	Categories []core.ExpenseCategory
	Error      string
	Editing    bool
	ExpenseID  int64
}

// loadExpenseForm gathers the categories the form's select box needs.
func (s *Server) loadExpenseForm(r *http.Request, data expenseFormData) (expenseFormData, error) {
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		return data, err
	}
	data.Categories = categories
	return data, nil
}

func (s *Server) handleExpenseNew(w http.ResponseWriter, r *http.Request) {
	data, err := s.loadExpenseForm(r, expenseFormData{})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if len(data.Categories) == 0 {
		data.Error = "Create a category before recording expenses."
	}
	s.render(w, r, http.StatusOK, "expense_form.html", data)
}

func (s *Server) handleExpenseCreate(w http.ResponseWriter, r *http.Request) {
	caller, _ := CurrentIdentity(r)
	form := readExpenseForm(r)

	retry := func(message string) {
		data, err := s.loadExpenseForm(r, expenseFormData{Form: form, Error: message})
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", data)
	}

	expense, err := form.parse()
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			retry(ve.Message)
			return
		}
		s.renderError(w, r, err)
		return
	}
	expense.OwnerUsername = caller.Username

	created, err := s.repo.CreateExpense(r.Context(), expense)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			retry(ve.Message)
			return
		}
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.FieldExpenseID, created.ID,
		applog.FieldUsername, caller.Username)
	http.Redirect(w, r, fmt.Sprintf("/expenses/%d", created.ID), http.StatusFound)
}

func (s *Server) handleExpenseEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.renderError(w, r, core.ErrNotFound)
		return
	}

	expense, err := s.repo.GetExpense(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	caller, _ := CurrentIdentity(r)
	if !core.CanMutate(caller.Username, expense) {
		s.renderError(w, r, core.ErrNotOwner)
		return
	}

	data, err := s.loadExpenseForm(r, expenseFormData{
		Form:      formFromExpense(expense),
		Editing:   true,
		ExpenseID: expense.ID,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "expense_form.html", data)
}

func (s *Server) handleExpenseEdit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.renderError(w, r, core.ErrNotFound)
		return
	}

	caller, _ := CurrentIdentity(r)
	form := readExpenseForm(r)

	retry := func(message string) {
		data, loadErr := s.loadExpenseForm(r, expenseFormData{
			Form:      form,
			Error:     message,
			Editing:   true,
			ExpenseID: id,
		})
		if loadErr != nil {
			s.renderError(w, r, loadErr)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", data)
	}

	expense, err := form.parse()
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			retry(ve.Message)
			return
		}
		s.renderError(w, r, err)
		return
	}
	expense.ID = id

	updated, err := s.repo.UpdateExpense(r.Context(), caller.Username, expense)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			retry(ve.Message)
			return
		}
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense updated",
		applog.FieldExpenseID, updated.ID,
		applog.FieldUsername, caller.Username)
	http.Redirect(w, r, fmt.Sprintf("/expenses/%d", updated.ID), http.StatusFound)
}

func (s *Server) handleExpenseDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.renderError(w, r, core.ErrNotFound)
		return
	}

	caller, _ := CurrentIdentity(r)
	if err := s.repo.DeleteExpense(r.Context(), caller.Username, id); err != nil {
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		applog.FieldExpenseID, id,
		applog.FieldUsername, caller.Username)
	http.Redirect(w, r, "/expenses", http.StatusFound)
}
