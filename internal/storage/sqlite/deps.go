package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

// AddDependency records a directed edge. Edges may reference issues that do
// not exist yet (tolerant linking). Re-adding an existing edge replaces its
// type.
func (s *Store) AddDependency(ctx context.Context, dep *types.Dependency, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !dep.Type.IsValid() {
		return fmt.Errorf("invalid dependency type: %s", dep.Type)
	}
	if dep.IssueID == "" || dep.DependsOnID == "" {
		return fmt.Errorf("dependency endpoints are required")
	}
	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = time.Now()
	}
	if dep.CreatedBy == "" {
		dep.CreatedBy = actor
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(issue_id, depends_on_id) DO UPDATE SET
				type = excluded.type,
				created_at = excluded.created_at,
				created_by = excluded.created_by`,
			dep.IssueID,
			dep.DependsOnID,
			string(dep.Type),
			dep.CreatedAt.Format(time.RFC3339Nano),
			dep.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert dependency %s -> %s: %w", dep.IssueID, dep.DependsOnID, err)
		}
		if err := insertEvent(ctx, tx, dep.IssueID, string(types.EventDependencyAdded), actor, nil, &dep.DependsOnID, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, dep.IssueID)
	})
}

// ImportDependency upserts an edge without an event or dirty mark.
func (s *Store) ImportDependency(ctx context.Context, dep *types.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !dep.Type.IsValid() {
		return fmt.Errorf("invalid dependency type: %s", dep.Type)
	}
	if dep.IssueID == "" || dep.DependsOnID == "" {
		return fmt.Errorf("dependency endpoints are required")
	}
	if dep.CreatedAt.IsZero() {
		dep.CreatedAt = time.Now()
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO dependencies (issue_id, depends_on_id, type, created_at, created_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(issue_id, depends_on_id) DO UPDATE SET
			type = excluded.type,
			created_at = excluded.created_at,
			created_by = excluded.created_by`,
		dep.IssueID,
		dep.DependsOnID,
		string(dep.Type),
		dep.CreatedAt.Format(time.RFC3339Nano),
		dep.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to import dependency %s -> %s: %w", dep.IssueID, dep.DependsOnID, err)
	}
	return nil
}

// RemoveDependency deletes the edge issueID -> dependsOnID.
func (s *Store) RemoveDependency(ctx context.Context, issueID, dependsOnID string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ?`,
			issueID, dependsOnID)
		if err != nil {
			return fmt.Errorf("failed to delete dependency %s -> %s: %w", issueID, dependsOnID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("dependency %s -> %s: %w", issueID, dependsOnID, storage.ErrNotFound)
		}
		if err := insertEvent(ctx, tx, issueID, string(types.EventDependencyRemoved), actor, &dependsOnID, nil, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, issueID)
	})
}

// GetDependencyRecords returns the outgoing edges of issueID in insertion order.
func (s *Store) GetDependencyRecords(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryDeps(ctx, `issue_id = ?`, issueID)
}

// GetDependentRecords returns the incoming edges of issueID in insertion order.
func (s *Store) GetDependentRecords(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryDeps(ctx, `depends_on_id = ?`, issueID)
}

// GetAllDependencyRecords returns the full edge set in insertion order.
// Graph algorithms run over this one-time snapshot.
func (s *Store) GetAllDependencyRecords(ctx context.Context) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryDeps(ctx, "")
}

// queryDeps runs a dependency query ordered by rowid (insertion order).
// Caller holds s.mu.
func (s *Store) queryDeps(ctx context.Context, where string, args ...interface{}) ([]*types.Dependency, error) {
	query := `SELECT issue_id, depends_on_id, type, created_at, created_by FROM dependencies`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []*types.Dependency
	for rows.Next() {
		var dep types.Dependency
		var typ, createdAt string
		if err := rows.Scan(&dep.IssueID, &dep.DependsOnID, &typ, &createdAt, &dep.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		dep.Type = types.DependencyType(typ)
		if t, err := parseTime(createdAt); err == nil {
			dep.CreatedAt = t
		}
		deps = append(deps, &dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

// AddLabel attaches a label to an issue. Adding an existing label is a no-op.
func (s *Store) AddLabel(ctx context.Context, issueID, label, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssue(ctx, issueID); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`,
			issueID, label)
		if err != nil {
			return fmt.Errorf("failed to add label %s to %s: %w", label, issueID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check label insert: %w", err)
		}
		if n == 0 {
			return nil
		}
		if err := insertEvent(ctx, tx, issueID, string(types.EventLabelAdded), actor, nil, &label, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, issueID)
	})
}

// RemoveLabel detaches a label from an issue.
func (s *Store) RemoveLabel(ctx context.Context, issueID, label, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM labels WHERE issue_id = ? AND label = ?`,
			issueID, label)
		if err != nil {
			return fmt.Errorf("failed to remove label %s from %s: %w", label, issueID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check label delete: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("label %s on %s: %w", label, issueID, storage.ErrNotFound)
		}
		if err := insertEvent(ctx, tx, issueID, string(types.EventLabelRemoved), actor, &label, nil, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, issueID)
	})
}

// GetLabels returns the issue's labels, sorted.
func (s *Store) GetLabels(ctx context.Context, issueID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT label FROM labels WHERE issue_id = ? ORDER BY label ASC`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}
	return labels, nil
}

// GetLabelsForIssues returns labels for a batch of issues in one query.
func (s *Store) GetLabelsForIssues(ctx context.Context, issueIDs []string) (map[string][]string, error) {
	if len(issueIDs) == 0 {
		return map[string][]string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.Repeat("?,", len(issueIDs)-1) + "?"
	args := make([]interface{}, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT issue_id, label FROM labels WHERE issue_id IN (`+placeholders+`) ORDER BY issue_id, label ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var issueID, label string
		if err := rows.Scan(&issueID, &label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		out[issueID] = append(out[issueID], label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}
	return out, nil
}

// requireIssue checks existence. Caller holds s.mu.
func (s *Store) requireIssue(ctx context.Context, issueID string) error {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM issues WHERE id = ?`, issueID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("issue %s: %w", issueID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check issue %s: %w", issueID, err)
	}
	return nil
}
