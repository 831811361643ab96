package category

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mangashelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// GetAll returns every category, system one included, in persisted order.
func (r *Repo) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, sort_order, flags
		FROM categories
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Order, &c.Flags); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows categories: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, sort_order, flags
		FROM categories
		WHERE id = ?
	`, id)

	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Order, &c.Flags); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, name string) (models.Category, error) {
	var maxOrder sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories`).Scan(&maxOrder); err != nil {
		return models.Category{}, fmt.Errorf("max order: %w", err)
	}

	c := models.Category{Name: name, Order: maxOrder.Int64 + 1}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO categories (name, sort_order, flags) VALUES (?, ?, 0)
	`, c.Name, c.Order)
	if err != nil {
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return c, nil
}

// GetByEntry returns the ids of the categories an entry belongs to.
func (r *Repo) GetByEntry(ctx context.Context, entryID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT category_id FROM entry_categories WHERE entry_id = ?
		ORDER BY category_id
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("list entry categories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan entry category: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows entry categories: %w", err)
	}
	return ids, nil
}

// SetForEntry replaces the entry's memberships wholesale.
func (r *Repo) SetForEntry(ctx context.Context, entryID int64, categoryIDs []int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_categories WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear entry categories: %w", err)
	}
	for _, id := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO entry_categories (entry_id, category_id) VALUES (?, ?)
		`, entryID, id); err != nil {
			return fmt.Errorf("set entry category %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpdatePartial applies partial updates in one transaction.
func (r *Repo) UpdatePartial(ctx context.Context, updates []models.CategoryUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		var set []string
		var args []any
		if u.Name != nil {
			set = append(set, "name = ?")
			args = append(args, *u.Name)
		}
		if u.Order != nil {
			set = append(set, "sort_order = ?")
			args = append(args, *u.Order)
		}
		if u.Flags != nil {
			set = append(set, "flags = ?")
			args = append(args, *u.Flags)
		}
		if len(set) == 0 {
			continue
		}
		args = append(args, u.ID)
		query := "UPDATE categories SET " + strings.Join(set, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update category %d: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
