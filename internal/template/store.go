package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/sherifkozman/red-council/internal/types"
)

// SQLiteRegistry is a Registry backed by a SQLite table, for installs that
// keep their catalog alongside campaign history.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry creates the registry on an existing connection, creating
// the templates table if needed.
func NewSQLiteRegistry(ctx context.Context, db *sql.DB) (*SQLiteRegistry, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS templates (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL,
			severity    TEXT NOT NULL DEFAULT '',
			prompt      TEXT NOT NULL,
			tags        TEXT NOT NULL DEFAULT '[]',
			indicators  TEXT NOT NULL DEFAULT '[]',
			built_in    INTEGER NOT NULL DEFAULT 0,
			enabled     INTEGER NOT NULL DEFAULT 1,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to create templates table", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// SeedBuiltins inserts the built-in templates that are not already present.
// Existing rows are left untouched so local edits survive restarts.
func (r *SQLiteRegistry) SeedBuiltins(ctx context.Context) error {
	for _, tmpl := range Builtins() {
		t := tmpl
		existing, err := r.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		t.CreatedAt = time.Now()
		t.UpdatedAt = t.CreatedAt
		if err := r.Register(ctx, &t); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRegistry) Register(ctx context.Context, tmpl *Template) error {
	if tmpl == nil {
		return types.NewError(types.TEMPLATE_INVALID, "template cannot be nil")
	}
	if err := tmpl.Validate(); err != nil {
		return types.WrapError(types.TEMPLATE_INVALID, "template validation failed", err)
	}

	tags, err := json.Marshal(tmpl.Tags)
	if err != nil {
		return types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to marshal tags", err)
	}
	indicators, err := json.Marshal(tmpl.Indicators)
	if err != nil {
		return types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to marshal indicators", err)
	}

	createdAt := tmpl.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, category, severity, prompt, tags, indicators, built_in, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			severity = excluded.severity,
			prompt = excluded.prompt,
			tags = excluded.tags,
			indicators = excluded.indicators,
			built_in = excluded.built_in,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		tmpl.ID, tmpl.Name, tmpl.Description, string(tmpl.Category), string(tmpl.Severity),
		tmpl.Prompt, string(tags), string(indicators),
		boolToInt(tmpl.BuiltIn), boolToInt(tmpl.Enabled), createdAt, time.Now())
	if err != nil {
		return types.WrapError(types.TEMPLATE_STORE_FAILED,
			fmt.Sprintf("failed to save template %q", tmpl.ID), err)
	}
	return nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (*Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, severity, prompt, tags, indicators, built_in, enabled, created_at, updated_at
		FROM templates WHERE id = ?`, id)

	tmpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapError(types.TEMPLATE_STORE_FAILED,
			fmt.Sprintf("failed to load template %q", id), err)
	}
	return tmpl, nil
}

func (r *SQLiteRegistry) List(ctx context.Context, filter *Filter) ([]*Template, error) {
	query := `
		SELECT id, name, description, category, severity, prompt, tags, indicators, built_in, enabled, created_at, updated_at
		FROM templates WHERE 1=1`
	var args []any

	if filter != nil {
		if filter.Category != "" {
			query += " AND category = ?"
			args = append(args, string(filter.Category))
		}
		if filter.Severity != "" {
			query += " AND severity = ?"
			args = append(args, string(filter.Severity))
		}
		if filter.OnlyEnabled {
			query += " AND enabled = 1"
		}
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to list templates", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to scan template", err)
		}
		out = append(out, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to iterate templates", err)
	}
	return out, nil
}

func (r *SQLiteRegistry) Disable(ctx context.Context, id string) error {
	return r.setEnabled(ctx, id, false)
}

func (r *SQLiteRegistry) Enable(ctx context.Context, id string) error {
	return r.setEnabled(ctx, id, true)
}

func (r *SQLiteRegistry) setEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE templates SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now(), id)
	if err != nil {
		return types.WrapError(types.TEMPLATE_STORE_FAILED,
			fmt.Sprintf("failed to update template %q", id), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.WrapError(types.TEMPLATE_STORE_FAILED, "failed to check update result", err)
	}
	if affected == 0 {
		return types.NewError(types.TEMPLATE_NOT_FOUND, fmt.Sprintf("template %q not found", id))
	}
	return nil
}

func (r *SQLiteRegistry) Count(ctx context.Context, filter *Filter) (int, error) {
	templates, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(templates), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var tmpl Template
	var category, severity, tags, indicators string
	var builtIn, enabled int

	err := row.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Description, &category, &severity,
		&tmpl.Prompt, &tags, &indicators, &builtIn, &enabled, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		return nil, err
	}

	tmpl.Category = Category(category)
	tmpl.Severity = Severity(severity)
	tmpl.BuiltIn = builtIn != 0
	tmpl.Enabled = enabled != 0

	if err := json.Unmarshal([]byte(tags), &tmpl.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(indicators), &tmpl.Indicators); err != nil {
		return nil, fmt.Errorf("failed to unmarshal indicators: %w", err)
	}
	return &tmpl, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Registry = (*SQLiteRegistry)(nil)
