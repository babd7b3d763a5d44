package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/core"
	applog "spendtrack/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys must be on for the category cascade; busy_timeout covers
	// writer contention between the request pool and the cleanup loop.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: slog.Default().With("component", applog.ComponentStorage),
	}, nil
}

// Ping verifies the database connection, for readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error so every
// mutation stays all-or-nothing.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, indexName string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+indexName)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// CreateUser stores a user with an already-hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}

	r.logger.InfoContext(ctx, "User registered", "id", id, "username", username)
	return core.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expense_categories (name, description) VALUES (?, ?)`,
		c.Name, c.Description,
	)
	if err != nil {
		if isUniqueViolation(err, "expense_categories.name") {
			return core.ExpenseCategory{}, &core.ValidationError{Field: "name", Message: "a category with that name already exists"}
		}
		return core.ExpenseCategory{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("create category id: %w", err)
	}

	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.ExpenseCategory, error) {
	var c core.ExpenseCategory
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description FROM expense_categories WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseCategory{}, core.ErrNotFound
	}
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseCategory
	for rows.Next() {
		var c core.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category and, through the foreign key cascade, all
// expenses referencing it. The transaction keeps the cascade atomic: either
// the category and every dependent expense are removed, or neither is.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM expense_categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete category rows: %w", err)
		}
		if n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Category deleted with cascade", "id", id)
	return nil
}

// CategorySummaries reports count and total per category in a single grouped
// query, so no unrelated rows are ever materialized. Empty categories come
// back with explicit zeros.
func (r *SQLiteRepository) CategorySummaries(ctx context.Context) ([]core.CategorySummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, COUNT(e.id), COALESCE(SUM(e.amount), 0)
		FROM expense_categories c
		LEFT JOIN expenses e ON e.category_id = c.id
		GROUP BY c.id, c.name, c.description
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("category summaries: %w", err)
	}
	defer rows.Close()

	var out []core.CategorySummary
	for rows.Next() {
		var s core.CategorySummary
		if err := rows.Scan(&s.Category.ID, &s.Category.Name, &s.Category.Description, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("scan category summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (title, description, amount, date, created_at, updated_at, category_id, owner_username)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Amount, e.Date, e.CreatedAt, e.UpdatedAt, e.CategoryID, e.OwnerUsername,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Expense{}, &core.ValidationError{Field: "category_id", Message: "category does not exist"}
		}
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}
	e.ID = id

	r.logger.InfoContext(ctx, "Expense created",
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount,
		"owner", e.OwnerUsername)
	return e, nil
}

const expenseColumns = `id, title, description, amount, date, created_at, updated_at, category_id, owner_username`

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Amount, &e.Date,
		&e.CreatedAt, &e.UpdatedAt, &e.CategoryID, &e.OwnerUsername)
	return e, err
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses executes a validated query spec. Sort columns come from a
// closed mapping and the search term is bound as a parameter, so no raw
// request string reaches SQL. Equal sort keys tie-break on id ascending to
// keep the order total and stable.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, q core.ListQuery) (core.ExpenseList, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	var conds []string
	var args []any

	if q.Search != "" {
		conds = append(conds, `instr(lower(title), lower(?)) > 0`)
		args = append(args, q.Search)
	}
	if q.Scope == core.ScopeOwner {
		conds = append(conds, `owner_username = ?`)
		args = append(args, q.Owner)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderClause(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var list core.ExpenseList
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return core.ExpenseList{}, fmt.Errorf("scan expense: %w", err)
		}
		list.Items = append(list.Items, e)
		list.Total += e.Amount
	}
	if err := rows.Err(); err != nil {
		return core.ExpenseList{}, fmt.Errorf("list expenses rows: %w", err)
	}
	return list, nil
}

func orderClause(q core.ListQuery) string {
	col := "date"
	switch q.SortBy {
	case core.SortByAmount:
		col = "amount"
	case core.SortByTitle:
		col = "title"
	}
	dir := "DESC"
	if q.Order == core.OrderAsc {
		dir = "ASC"
	}
	return col + " " + dir + ", id ASC"
}

// UpdateExpense rewrites the mutable fields of an expense after checking that
// caller owns it. The ownership check runs inside the same transaction as the
// write: a refused caller leaves the row untouched. owner_username and
// created_at are never rewritten.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, caller string, e core.Expense) (core.Expense, error) {
	var updated core.Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanExpense(tx.QueryRowContext(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, e.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load expense for update: %w", err)
		}
		if !core.CanMutate(caller, current) {
			return core.ErrNotOwner
		}

		e.OwnerUsername = current.OwnerUsername
		e.CreatedAt = current.CreatedAt
		e.UpdatedAt = time.Now().UTC()
		if err := e.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE expenses
			SET title = ?, description = ?, amount = ?, date = ?, category_id = ?, updated_at = ?
			WHERE id = ?`,
			e.Title, e.Description, e.Amount, e.Date, e.CategoryID, e.UpdatedAt, e.ID,
		)
		if isForeignKeyViolation(err) {
			return &core.ValidationError{Field: "category_id", Message: "category does not exist"}
		}
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}

	r.logger.InfoContext(ctx, "Expense updated", "id", updated.ID, "owner", updated.OwnerUsername)
	return updated, nil
}

// DeleteExpense removes an expense after the in-transaction ownership check.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, caller string, id int64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanExpense(tx.QueryRowContext(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load expense for delete: %w", err)
		}
		if !core.CanMutate(caller, current) {
			return core.ErrNotOwner
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "Expense deleted", "id", id, "caller", caller)
	return nil
}
