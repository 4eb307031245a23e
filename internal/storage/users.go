package storage

import (
	"context"
	"database/sql"
	"errors"
)

// UserRepo persists broadcast recipients and their preferences.
type UserRepo struct {
	db *sql.DB
}

// Create registers a user id if it is new; existing rows are left alone
// (new users start opted out).
func (r *UserRepo) Create(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("storage: empty user id")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(id, enabled) VALUES(?, 0) ON CONFLICT(id) DO NOTHING`,
		userID)
	return err
}

func (r *UserRepo) Remove(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

// ToggleEnabled flips the opt-in flag and returns the new state.
func (r *UserRepo) ToggleEnabled(ctx context.Context, userID string) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET enabled = NOT enabled WHERE id = ? RETURNING enabled`,
		userID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, errors.New("storage: unknown user")
	}
	return enabled, err
}

// Lang returns the stored language code, or "" when the user is unknown.
func (r *UserRepo) Lang(ctx context.Context, userID string) (string, error) {
	var lang string
	err := r.db.QueryRowContext(ctx, `SELECT lang FROM users WHERE id = ?`, userID).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return lang, err
}

func (r *UserRepo) SetLang(ctx context.Context, userID, lang string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET lang = ? WHERE id = ?`, lang, userID)
	return err
}

// EnabledByLang groups opted-in recipient ids by their stored language.
func (r *UserRepo) EnabledByLang(ctx context.Context) (map[string][]string, error) {
	return r.groupByLang(ctx, `SELECT id, lang FROM users WHERE enabled = 1`)
}

// AllByLang groups every known recipient id by language.
func (r *UserRepo) AllByLang(ctx context.Context) (map[string][]string, error) {
	return r.groupByLang(ctx, `SELECT id, lang FROM users`)
}

func (r *UserRepo) groupByLang(ctx context.Context, query string) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := map[string][]string{}
	for rows.Next() {
		var id, lang string
		if err := rows.Scan(&id, &lang); err != nil {
			return nil, err
		}
		users[lang] = append(users[lang], id)
	}
	return users, rows.Err()
}
