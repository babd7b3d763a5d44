package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TitleMinLen       = 3
	TitleMaxLen       = 200
	DescriptionMaxLen = 1000
	PasswordMinLen    = 6
)

type (
	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	ExpenseCategory struct {
		ID          int64
		Name        string
		Description string
	}

	Expense struct {
		ID            int64
		Title         string
		Description   string
		Amount        float64
		Date          time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
		CategoryID    int64
		OwnerUsername string
	}
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrDuplicateUsername  = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries field-level detail for a rejected input so
// handlers can report which field failed without leaking storage internals.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return invalidField("username", "username is required")
	}
	return nil
}

func (c ExpenseCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalidField("name", "category name is required")
	}
	return nil
}

func (e Expense) Validate() error {
	// Bounds count characters, not bytes, so multi-byte titles measure the
	// same as their ASCII equivalents.
	title := strings.TrimSpace(e.Title)
	if n := utf8.RuneCountInString(title); n < TitleMinLen || n > TitleMaxLen {
		return invalidField("title", fmt.Sprintf("title must be between %d and %d characters", TitleMinLen, TitleMaxLen))
	}
	if utf8.RuneCountInString(e.Description) > DescriptionMaxLen {
		return invalidField("description", fmt.Sprintf("description cannot exceed %d characters", DescriptionMaxLen))
	}
	if e.Amount <= 0 {
		return invalidField("amount", "amount must be greater than 0")
	}
	if e.Date.IsZero() {
		return invalidField("date", "date is required")
	}
	if e.CategoryID <= 0 {
		return invalidField("category_id", "select a category")
	}
	if strings.TrimSpace(e.OwnerUsername) == "" {
		return invalidField("owner_username", "owner is required")
	}
	return nil
}

// CanMutate reports whether caller may edit or delete the expense.
// Ownership is keyed by username, not user id: an expense keeps naming its
// creator even if the user row is later altered.
func CanMutate(caller string, e Expense) bool {
	return caller != "" && caller == e.OwnerUsername
}
