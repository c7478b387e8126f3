package store

import (
	"database/sql"
	"fmt"
	"time"
)

const sessionColumns = `session_id, start_ts, end_ts, duration_sec, process_name, exe_path, window_title, category, intent_tag`

// AddSession inserts a session row and returns its assigned id.
func (s *Store) AddSession(sess Session) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO sessions (start_ts, end_ts, duration_sec, process_name, exe_path, window_title, category, intent_tag)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.Start.UTC().Format(time.RFC3339),
		sess.End.UTC().Format(time.RFC3339),
		sess.DurationSec,
		sess.ProcessName,
		sess.ExePath,
		sess.WindowTitle,
		sess.Category,
		sess.IntentTag,
	)
	if err != nil {
		return 0, fmt.Errorf("add session: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// UpdateSessionEnd rewrites a session's end timestamp and duration.
// Updating an id that no longer exists (retention cleanup races) is a
// silent no-op.
func (s *Store) UpdateSessionEnd(id int64, end time.Time, durationSec int64) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET end_ts = ?, duration_sec = ? WHERE session_id = ?`,
		end.UTC().Format(time.RFC3339), durationSec, id,
	)
	if err != nil {
		return fmt.Errorf("update session end %d: %w", id, err)
	}
	return nil
}

// UpdateSessionIntent sets the intent tag for a session. Missing ids are
// a silent no-op.
func (s *Store) UpdateSessionIntent(id int64, intent string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET intent_tag = ? WHERE session_id = ?`,
		intent, id,
	)
	if err != nil {
		return fmt.Errorf("update session intent %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

func (s *Store) ListSessions(f SessionFilter) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND start_ts >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND end_ts <= ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	if f.Category != nil {
		query += ` AND category = ?`
		args = append(args, *f.Category)
	}
	query += ` ORDER BY start_ts DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// SummarizeByCategory totals tracked seconds per category over a range.
func (s *Store) SummarizeByCategory(from, to time.Time) ([]CategorySummary, error) {
	rows, err := s.db.Query(`
		SELECT category, COALESCE(SUM(duration_sec), 0) AS total
		FROM sessions
		WHERE start_ts >= ? AND end_ts <= ?
		GROUP BY category
		ORDER BY total DESC`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("summarize by category: %w", err)
	}
	defer rows.Close()

	var summaries []CategorySummary
	for rows.Next() {
		var cs CategorySummary
		if err := rows.Scan(&cs.Category, &cs.TotalSeconds); err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

// TopApps returns the processes with the most tracked seconds in a range.
func (s *Store) TopApps(from, to time.Time, limit int) ([]AppSummary, error) {
	rows, err := s.db.Query(`
		SELECT process_name, COALESCE(SUM(duration_sec), 0) AS total
		FROM sessions
		WHERE start_ts >= ? AND end_ts <= ? AND category != 'Idle'
		GROUP BY process_name
		ORDER BY total DESC
		LIMIT ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top apps: %w", err)
	}
	defer rows.Close()

	var apps []AppSummary
	for rows.Next() {
		var a AppSummary
		if err := rows.Scan(&a.ProcessName, &a.TotalSeconds); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// TotalIdle sums idle seconds recorded in a range.
func (s *Store) TotalIdle(from, to time.Time) (int64, error) {
	return s.totalForRange(from, to, `AND category = 'Idle'`)
}

// TotalActive sums non-idle seconds recorded in a range.
func (s *Store) TotalActive(from, to time.Time) (int64, error) {
	return s.totalForRange(from, to, `AND category != 'Idle'`)
}

func (s *Store) totalForRange(from, to time.Time, cond string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(duration_sec), 0)
		FROM sessions
		WHERE start_ts >= ? AND end_ts <= ? `+cond,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// CleanupRetention deletes sessions whose end precedes now minus the
// retention horizon. days <= 0 disables cleanup and deletes nothing.
func (s *Store) CleanupRetention(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res, err := s.db.Exec(
		`DELETE FROM sessions WHERE end_ts < ?`,
		cutoff.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup retention: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var startTS, endTS string
	var intent sql.NullString

	err := row.Scan(
		&sess.ID, &startTS, &endTS, &sess.DurationSec,
		&sess.ProcessName, &sess.ExePath, &sess.WindowTitle,
		&sess.Category, &intent,
	)
	if err != nil {
		return nil, err
	}
	if intent.Valid {
		sess.IntentTag = &intent.String
	}
	sess.Start, _ = time.Parse(time.RFC3339, startTS)
	sess.End, _ = time.Parse(time.RFC3339, endTS)
	return sess, nil
}
