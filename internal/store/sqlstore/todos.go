package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasklane.org/internal/todos"
)

// TodoStore implements todos.Store.
type TodoStore struct {
	db *sql.DB
}

var _ todos.Store = (*TodoStore)(nil)

const todoColumns = `id, account_id, title, note, completed, created_at, updated_at`

func scanTodo(row rowScanner) (todos.Todo, error) {
	var t todos.Todo
	err := row.Scan(&t.ID, &t.AccountID, &t.Title, &t.Note, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return todos.Todo{}, todos.ErrNotFound
	}
	return t, err
}

func (s *TodoStore) Create(ctx context.Context, t *todos.Todo) error {
	err := s.db.QueryRowContext(ctx, `
		insert into todos(account_id, title, note, completed, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id`,
		t.AccountID, t.Title, t.Note, t.Completed, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("insert todo: %w", todos.ErrUnknownOwner)
	}
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (s *TodoStore) Get(ctx context.Context, id int64) (todos.Todo, error) {
	return scanTodo(s.db.QueryRowContext(ctx, `select `+todoColumns+` from todos where id = $1`, id))
}

func (s *TodoStore) ListByAccount(ctx context.Context, accountID int64) ([]todos.Todo, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+todoColumns+` from todos where account_id = $1 order by id asc`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]todos.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TodoStore) Update(ctx context.Context, id int64, p todos.Patch, updatedAt time.Time) (todos.Todo, error) {
	return scanTodo(s.db.QueryRowContext(ctx, `
		update todos set
			title = coalesce($2, title),
			note = coalesce($3, note),
			completed = coalesce($4, completed),
			updated_at = $5
		where id = $1
		returning `+todoColumns,
		id, p.Title, p.Note, p.Completed, updatedAt,
	))
}

func (s *TodoStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from todos where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return todos.ErrNotFound
	}
	return nil
}

func (s *TodoStore) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from todos where account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
