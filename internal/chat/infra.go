package chat

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"garagist/internal/ai"
)

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

const sessionColumns = `id, public_id, complaint_id, title, is_active, created_at, updated_at, closed_at`

func (r *repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO chat_sessions (public_id, complaint_id, title, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.PublicID, s.ComplaintID, s.Title, s.Active).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *repo) GetSession(ctx context.Context, id int64) (*Session, error) {
	var s Session
	err := scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions WHERE id = $1
	`, id), &s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) ListSessions(ctx context.Context, f SessionFilter) ([]Session, error) {
	query := `SELECT ` + qualifiedSessionColumns + ` FROM chat_sessions s`
	var (
		where []string
		args  []any
	)
	if f.CustomerID > 0 {
		query += `
			JOIN complaints ON complaints.id = s.complaint_id
			JOIN cars ON cars.id = complaints.car_id`
		where = append(where, "cars.customer_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.CustomerID)
	}
	if f.ComplaintID > 0 {
		where = append(where, "s.complaint_id = $"+strconv.Itoa(len(args)+1))
		args = append(args, f.ComplaintID)
	}
	if f.Active != nil {
		where = append(where, "s.is_active = $"+strconv.Itoa(len(args)+1))
		args = append(args, *f.Active)
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY s.updated_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) SetSessionActive(ctx context.Context, id int64, active bool) error {
	var res sql.Result
	var err error
	if active {
		res, err = r.db.ExecContext(ctx, `
			UPDATE chat_sessions
			SET is_active = TRUE, closed_at = NULL, updated_at = now()
			WHERE id = $1
		`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE chat_sessions
			SET is_active = FALSE, closed_at = now(), updated_at = now()
			WHERE id = $1
		`, id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) AppendTurn(ctx context.Context, sessionID int64, role ai.Role, text string) (*Turn, error) {
	t := Turn{SessionID: sessionID, Role: role, Text: text}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO chat_turns (session_id, role, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, sessionID, string(role), text).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) ListTurns(ctx context.Context, sessionID int64, limit int) ([]Turn, error) {
	query := `
		SELECT id, session_id, role, message, created_at
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`
	args := []any{sessionID}
	if limit > 0 {
		// keep only the most recent turns, still oldest-first
		query = `
			SELECT id, session_id, role, message, created_at FROM (
				SELECT id, session_id, role, message, created_at
				FROM chat_turns
				WHERE session_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			) recent
			ORDER BY created_at ASC, id ASC`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = ai.Role(role)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repo) CountTurns(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chat_turns WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

const qualifiedSessionColumns = `s.id, s.public_id, s.complaint_id, s.title, s.is_active,
	s.created_at, s.updated_at, s.closed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner, s *Session) error {
	return sc.Scan(&s.ID, &s.PublicID, &s.ComplaintID, &s.Title, &s.Active,
		&s.CreatedAt, &s.UpdatedAt, &s.ClosedAt)
}
