package store

import (
	"database/sql"
	"fmt"

	"github.com/sadopc/timesink/internal/rules"
)

// AddRule inserts a classification rule and returns its assigned id.
func (s *Store) AddRule(r rules.Rule) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO rules (enabled, match_type, process_pattern, title_pattern, category, priority)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		boolToInt(r.Enabled), r.MatchType,
		nullIfEmpty(r.ProcessPattern), nullIfEmpty(r.TitlePattern),
		r.Category, r.Priority,
	)
	if err != nil {
		return 0, fmt.Errorf("add rule: %w", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (s *Store) UpdateRule(r rules.Rule) error {
	_, err := s.db.Exec(
		`UPDATE rules
		 SET enabled = ?, match_type = ?, process_pattern = ?, title_pattern = ?, category = ?, priority = ?
		 WHERE rule_id = ?`,
		boolToInt(r.Enabled), r.MatchType,
		nullIfEmpty(r.ProcessPattern), nullIfEmpty(r.TitlePattern),
		r.Category, r.Priority, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule %d: %w", r.ID, err)
	}
	return nil
}

func (s *Store) DeleteRule(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rules WHERE rule_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	return nil
}

// ListRules returns every rule, enabled or not, ordered by
// (priority ASC, rule_id ASC) — the classifier's evaluation order.
func (s *Store) ListRules() ([]rules.Rule, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, enabled, match_type, process_pattern, title_pattern, category, priority
		 FROM rules ORDER BY priority ASC, rule_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rs []rules.Rule
	for rows.Next() {
		var r rules.Rule
		var enabled int
		var procPat, titlePat sql.NullString
		if err := rows.Scan(&r.ID, &enabled, &r.MatchType, &procPat, &titlePat, &r.Category, &r.Priority); err != nil {
			return nil, err
		}
		r.Enabled = enabled != 0
		r.ProcessPattern = procPat.String
		r.TitlePattern = titlePat.String
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

// EnsureDefaultRules seeds a starter rule set the first time the
// database is used. Existing rules are left alone.
func (s *Store) EnsureDefaultRules() error {
	existing, err := s.ListRules()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []rules.Rule{
		{Enabled: true, MatchType: rules.MatchSubstring, ProcessPattern: "chrome.exe", TitlePattern: "YouTube", Category: "Video", Priority: 1},
		{Enabled: true, MatchType: rules.MatchSubstring, ProcessPattern: "spotify.exe", Category: "Social", Priority: 2},
	}
	for _, r := range defaults {
		if _, err := s.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
