package http

import (
	"errors"
	"net/http"
	"strings"

	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
)

type categoryListData struct {
	Summaries []core.CategorySummary
	Error     string
	Name      string
}

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.repo.CategorySummaries(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "categories.html", categoryListData{Summaries: summaries})
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	description := r.PostFormValue("description")

	_, err := s.repo.CreateCategory(r.Context(), core.ExpenseCategory{
		Name:        name,
		Description: description,
	})
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			summaries, listErr := s.repo.CategorySummaries(r.Context())
			if listErr != nil {
				s.renderError(w, r, listErr)
				return
			}
			s.render(w, r, http.StatusUnprocessableEntity, "categories.html", categoryListData{
				Summaries: summaries,
				Error:     ve.Message,
				Name:      name,
			})
			return
		}
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category created", "name", name)
	http.Redirect(w, r, "/expenses/categories", http.StatusFound)
}

// Deleting a category removes every expense that references it in the same
// transaction.
func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		s.renderError(w, r, core.ErrNotFound)
		return
	}

	if err := s.repo.DeleteCategory(r.Context(), id); err != nil {
		s.renderError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted", "category_id", id)
	http.Redirect(w, r, "/expenses/categories", http.StatusFound)
}
