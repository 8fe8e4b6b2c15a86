package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tasklane.org/internal/accounts"
)

// AccountStore implements accounts.Store.
type AccountStore struct {
	db *sql.DB
}

var _ accounts.Store = (*AccountStore)(nil)

const accountColumns = `id, username, email, password_hash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return a, err
}

func (s *AccountStore) Create(ctx context.Context, a *accounts.Account) error {
	err := s.db.QueryRowContext(ctx, `
		insert into accounts(username, email, password_hash, created_at, updated_at)
		values ($1, $2, $3, $4, $5)
		returning id`,
		a.Username, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return accounts.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id int64) (accounts.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id = $1`, id))
}

func (s *AccountStore) GetByUsername(ctx context.Context, username string) (accounts.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where username = $1`, username))
}

func (s *AccountStore) List(ctx context.Context) ([]accounts.Account, error) {
	rows, err := s.db.QueryContext(ctx, `select `+accountColumns+` from accounts order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]accounts.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AccountStore) Update(ctx context.Context, id int64, c accounts.Changes) (accounts.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `
		update accounts set
			username = coalesce($2, username),
			email = coalesce($3, email),
			password_hash = coalesce($4, password_hash),
			updated_at = $5
		where id = $1
		returning `+accountColumns,
		id, c.Username, c.Email, c.PasswordHash, c.UpdatedAt,
	))
	if isUniqueViolation(err) {
		return accounts.Account{}, accounts.ErrConflict
	}
	return a, err
}

func (s *AccountStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return accounts.ErrNotFound
	}
	return nil
}
