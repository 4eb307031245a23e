package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Question is one quiz entry.
type Question struct {
	ID          int64
	Subject     string
	Description string
	Opts        string
	Ans         string
	Explanation string
	Details     string
}

// Prompt renders the daily question text.
func (q *Question) Prompt() string {
	return q.Description + "\n\n" + q.Opts
}

// Answer renders the answer text sent later in the day.
func (q *Question) Answer() string {
	return "Ans:" + q.Ans + "\n\n" + q.Explanation
}

// Full renders prompt, answer and extra details in one message.
func (q *Question) Full() string {
	return q.Prompt() + "\n\n" + q.Answer() + "\n\n" + q.Details
}

// VerifyAnswer reports whether answer matches, ignoring surrounding space
// and case.
func (q *Question) VerifyAnswer(answer string) bool {
	return strings.TrimSpace(strings.ToLower(answer)) == strings.ToLower(q.Ans)
}

// QuestionRepo persists quiz questions and tracks which ones the daily
// rotation has already served. The seen set lives on the repo instance, not
// in the database: rotation restarts with the process.
type QuestionRepo struct {
	db *sql.DB

	mu   sync.Mutex
	seen map[int64]struct{}
}

func (r *QuestionRepo) Create(ctx context.Context, q Question) (int64, error) {
	if q.Subject == "" || q.Description == "" || q.Opts == "" || q.Ans == "" {
		return 0, errors.New("storage: question requires subject, description, opts and ans")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO questions(subject, description, opts, ans, explanation, details)
		 VALUES(?,?,?,?,?,?)`,
		q.Subject, q.Description, q.Opts, q.Ans, nullStr(q.Explanation), nullStr(q.Details))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *QuestionRepo) Get(ctx context.Context, id int64) (*Question, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, subject, description, opts, ans, explanation, details FROM questions WHERE id = ?`, id)
	return scanQuestion(row)
}

func (r *QuestionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	return err
}

// BySubject lists every question filed under one subject.
func (r *QuestionRepo) BySubject(ctx context.Context, subject string) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject, description, opts, ans, explanation, details
		 FROM questions WHERE subject = ? ORDER BY id`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var explanation, details sql.NullString
		if err := rows.Scan(&q.ID, &q.Subject, &q.Description, &q.Opts, &q.Ans, &explanation, &details); err != nil {
			return nil, err
		}
		q.Explanation = explanation.String
		q.Details = details.String
		out = append(out, q)
	}
	return out, rows.Err()
}

// Subjects lists the distinct subjects present.
func (r *QuestionRepo) Subjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT subject FROM questions ORDER BY subject`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RandomUnseen picks a random question not yet served by this instance and
// marks it seen. Once every question has been served: with resetIfExhausted
// the rotation starts over, otherwise (nil, nil) is returned.
func (r *QuestionRepo) RandomUnseen(ctx context.Context, resetIfExhausted bool) (*Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&total); err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}
	if len(r.seen) >= total {
		if !resetIfExhausted {
			return nil, nil
		}
		r.seen = map[int64]struct{}{}
	}

	query := `SELECT id, subject, description, opts, ans, explanation, details FROM questions`
	args := make([]any, 0, len(r.seen))
	if len(r.seen) > 0 {
		ph := make([]string, 0, len(r.seen))
		for id := range r.seen {
			ph = append(ph, "?")
			args = append(args, id)
		}
		query += fmt.Sprintf(" WHERE id NOT IN (%s)", strings.Join(ph, ","))
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil || q == nil {
		return nil, err
	}
	r.seen[q.ID] = struct{}{}
	return q, nil
}

// ResetSeen clears the rotation so every question is eligible again.
func (r *QuestionRepo) ResetSeen() {
	r.mu.Lock()
	r.seen = map[int64]struct{}{}
	r.mu.Unlock()
}

func scanQuestion(row *sql.Row) (*Question, error) {
	var q Question
	var explanation, details sql.NullString
	err := row.Scan(&q.ID, &q.Subject, &q.Description, &q.Opts, &q.Ans, &explanation, &details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.Explanation = explanation.String
	q.Details = details.String
	return &q, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
