package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

const issueColumns = `id, content_hash, title, description, design, acceptance_criteria, notes,
	status, priority, issue_type, assignee, created_at, updated_at, closed_at, close_reason,
	external_ref, compaction_level, compacted_at, compacted_at_commit, original_size`

// CreateIssue validates and inserts a new issue, appending a created event
// and marking the issue dirty in the same transaction.
func (s *Store) CreateIssue(ctx context.Context, issue *types.Issue, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID == "" {
		return fmt.Errorf("issue ID is required")
	}
	issue.SetDefaults()
	if err := issue.Validate(); err != nil {
		return err
	}
	issue.ContentHash = issue.ComputeContentHash()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO issues (
				id, content_hash, title, description, design, acceptance_criteria, notes,
				status, priority, issue_type, assignee, created_at, updated_at, closed_at,
				close_reason, external_ref, compaction_level, compacted_at,
				compacted_at_commit, original_size
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			issue.ID,
			issue.ContentHash,
			issue.Title,
			issue.Description,
			issue.Design,
			issue.AcceptanceCriteria,
			issue.Notes,
			string(issue.Status),
			issue.Priority,
			string(issue.IssueType),
			issue.Assignee,
			issue.CreatedAt.Format(time.RFC3339Nano),
			issue.UpdatedAt.Format(time.RFC3339Nano),
			timeToNullString(issue.ClosedAt),
			issue.CloseReason,
			ptrToNullString(issue.ExternalRef),
			issue.CompactionLevel,
			timeToNullString(issue.CompactedAt),
			ptrToNullString(issue.CompactedAtCommit),
			issue.OriginalSize,
		)
		if err != nil {
			return fmt.Errorf("failed to insert issue %s: %w", issue.ID, err)
		}
		if err := insertEvent(ctx, tx, issue.ID, string(types.EventCreated), actor, nil, nil, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, issue.ID)
	})
}

// GetIssue retrieves a single issue by ID.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// GetIssues retrieves the issues that exist among ids, preserving id order.
// Missing IDs are skipped, not errors.
func (s *Store) GetIssues(ctx context.Context, ids []string) ([]*types.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*types.Issue, len(ids))
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		byID[issue.ID] = issue
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	var out []*types.Issue
	for _, id := range ids {
		if issue, ok := byID[id]; ok {
			out = append(out, issue)
		}
	}
	return out, nil
}

// GetIssueByExternalRef looks up an issue by its foreign-system reference.
func (s *Store) GetIssueByExternalRef(ctx context.Context, externalRef string) (*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE external_ref = ?`, externalRef)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("external ref %s: %w", externalRef, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// ImportIssue upserts an issue preserving its timestamps, without appending
// an event or marking the issue dirty. Used by journal import so
// re-importing the same file is a no-op.
func (s *Store) ImportIssue(ctx context.Context, issue *types.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if issue.ID == "" {
		return fmt.Errorf("issue ID is required")
	}
	issue.SetDefaults()
	if err := issue.Validate(); err != nil {
		return err
	}
	issue.ContentHash = issue.ComputeContentHash()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO issues (
				id, content_hash, title, description, design, acceptance_criteria, notes,
				status, priority, issue_type, assignee, created_at, updated_at, closed_at,
				close_reason, external_ref, compaction_level, compacted_at,
				compacted_at_commit, original_size
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				content_hash = excluded.content_hash,
				title = excluded.title,
				description = excluded.description,
				design = excluded.design,
				acceptance_criteria = excluded.acceptance_criteria,
				notes = excluded.notes,
				status = excluded.status,
				priority = excluded.priority,
				issue_type = excluded.issue_type,
				assignee = excluded.assignee,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				closed_at = excluded.closed_at,
				close_reason = excluded.close_reason,
				external_ref = excluded.external_ref,
				compaction_level = excluded.compaction_level,
				compacted_at = excluded.compacted_at,
				compacted_at_commit = excluded.compacted_at_commit,
				original_size = excluded.original_size`,
			issue.ID,
			issue.ContentHash,
			issue.Title,
			issue.Description,
			issue.Design,
			issue.AcceptanceCriteria,
			issue.Notes,
			string(issue.Status),
			issue.Priority,
			string(issue.IssueType),
			issue.Assignee,
			issue.CreatedAt.Format(time.RFC3339Nano),
			issue.UpdatedAt.Format(time.RFC3339Nano),
			timeToNullString(issue.ClosedAt),
			issue.CloseReason,
			ptrToNullString(issue.ExternalRef),
			issue.CompactionLevel,
			timeToNullString(issue.CompactedAt),
			ptrToNullString(issue.CompactedAtCommit),
			issue.OriginalSize,
		)
		if err != nil {
			return fmt.Errorf("failed to import issue %s: %w", issue.ID, err)
		}
		return nil
	})
}

// UpdateIssue applies field updates, re-validates, recomputes the content
// hash, and commits the update, its event, and the dirty mark atomically.
func (s *Store) UpdateIssue(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
		issue, err := scanIssue(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}

		oldStatus := issue.Status
		for field, value := range updates {
			switch field {
			case "title":
				issue.Title = value.(string)
			case "description":
				issue.Description = value.(string)
			case "design":
				issue.Design = value.(string)
			case "acceptance_criteria":
				issue.AcceptanceCriteria = value.(string)
			case "notes":
				issue.Notes = value.(string)
			case "assignee":
				issue.Assignee = value.(string)
			case "priority":
				issue.Priority = value.(int)
			case "issue_type":
				issue.IssueType = types.IssueType(fmt.Sprint(value))
			case "status":
				issue.Status = types.Status(fmt.Sprint(value))
			case "external_ref":
				if value == nil {
					issue.ExternalRef = nil
				} else {
					ref := value.(string)
					issue.ExternalRef = &ref
				}
			default:
				return fmt.Errorf("unknown field: %s", field)
			}
		}

		// Maintain the closed_at invariant across the closed boundary.
		if issue.Status == types.StatusClosed && issue.ClosedAt == nil {
			now := time.Now()
			issue.ClosedAt = &now
		}
		if issue.Status != types.StatusClosed {
			issue.ClosedAt = nil
			issue.CloseReason = ""
		}

		if err := issue.Validate(); err != nil {
			return err
		}
		issue.UpdatedAt = time.Now()
		issue.ContentHash = issue.ComputeContentHash()

		if err := updateIssueRow(ctx, tx, issue); err != nil {
			return err
		}

		if issue.Status != oldStatus {
			old := string(oldStatus)
			nw := string(issue.Status)
			if err := insertEvent(ctx, tx, id, string(types.EventStatusChanged), actor, &old, &nw, nil); err != nil {
				return err
			}
		} else {
			if err := insertEvent(ctx, tx, id, string(types.EventUpdated), actor, nil, nil, nil); err != nil {
				return err
			}
		}
		return markDirty(ctx, tx, id)
	})
}

// CloseIssue transitions an issue to closed, setting closed_at and the
// close reason.
func (s *Store) CloseIssue(ctx context.Context, id string, reason string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
		issue, err := scanIssue(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if issue.Status == types.StatusClosed {
			return fmt.Errorf("issue %s is already closed", id)
		}

		oldStatus := string(issue.Status)
		now := time.Now()
		issue.Status = types.StatusClosed
		issue.ClosedAt = &now
		issue.CloseReason = reason
		issue.UpdatedAt = now
		issue.ContentHash = issue.ComputeContentHash()

		if err := updateIssueRow(ctx, tx, issue); err != nil {
			return err
		}

		nw := string(types.StatusClosed)
		var comment *string
		if reason != "" {
			comment = &reason
		}
		if err := insertEvent(ctx, tx, id, string(types.EventClosed), actor, &oldStatus, &nw, comment); err != nil {
			return err
		}
		return markDirty(ctx, tx, id)
	})
}

// ReopenIssue transitions a closed issue back to open.
func (s *Store) ReopenIssue(ctx context.Context, id string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
		issue, err := scanIssue(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if issue.Status != types.StatusClosed {
			return fmt.Errorf("issue %s is not closed", id)
		}

		issue.Status = types.StatusOpen
		issue.ClosedAt = nil
		issue.CloseReason = ""
		issue.UpdatedAt = time.Now()
		issue.ContentHash = issue.ComputeContentHash()

		if err := updateIssueRow(ctx, tx, issue); err != nil {
			return err
		}

		old := string(types.StatusClosed)
		nw := string(types.StatusOpen)
		if err := insertEvent(ctx, tx, id, string(types.EventReopened), actor, &old, &nw, nil); err != nil {
			return err
		}
		return markDirty(ctx, tx, id)
	})
}

// DeleteIssue removes an issue and cascades removal of its edges, labels,
// comments, events, and export hash. The ID stays dirty so the next export
// drops the record from the journal.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete issue %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
		}

		cascades := []string{
			`DELETE FROM dependencies WHERE issue_id = ? OR depends_on_id = ?`,
			`DELETE FROM labels WHERE issue_id = ?`,
			`DELETE FROM comments WHERE issue_id = ?`,
			`DELETE FROM events WHERE issue_id = ?`,
			`DELETE FROM export_hashes WHERE issue_id = ?`,
		}
		for _, q := range cascades {
			args := []interface{}{id}
			if strings.Contains(q, "depends_on_id") {
				args = append(args, id)
			}
			if _, err := tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("failed to cascade delete for %s: %w", id, err)
			}
		}
		return markDirty(ctx, tx, id)
	})
}

// SearchIssues retrieves issues matching the filter, ordered by priority
// ascending then creation time ascending (ID as final tie-break).
func (s *Store) SearchIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.IssueType != nil {
		conditions = append(conditions, "issue_type = ?")
		args = append(args, string(*filter.IssueType))
	}
	if filter.Assignee != nil {
		conditions = append(conditions, "assignee = ?")
		args = append(args, *filter.Assignee)
	}
	for _, label := range filter.Labels {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM labels l WHERE l.issue_id = issues.id AND l.label = ?)")
		args = append(args, label)
	}
	if len(filter.LabelsAny) > 0 {
		placeholders := strings.Repeat("?,", len(filter.LabelsAny)-1) + "?"
		conditions = append(conditions, "EXISTS (SELECT 1 FROM labels l WHERE l.issue_id = issues.id AND l.label IN ("+placeholders+"))")
		for _, label := range filter.LabelsAny {
			args = append(args, label)
		}
	}
	if len(filter.IDs) > 0 {
		placeholders := strings.Repeat("?,", len(filter.IDs)-1) + "?"
		conditions = append(conditions, "id IN ("+placeholders+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search issues: %w", err)
	}
	defer rows.Close()

	issues, err := scanIssues(rows)
	if err != nil {
		return nil, err
	}

	// Sort in Go: text timestamps with variable fractional precision don't
	// collate correctly in SQL.
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Priority != issues[j].Priority {
			return issues[i].Priority < issues[j].Priority
		}
		if !issues[i].CreatedAt.Equal(issues[j].CreatedAt) {
			return issues[i].CreatedAt.Before(issues[j].CreatedAt)
		}
		return issues[i].ID < issues[j].ID
	})

	if filter.Limit > 0 && len(issues) > filter.Limit {
		issues = issues[:filter.Limit]
	}
	return issues, nil
}

// updateIssueRow writes every mutable column of an issue.
func updateIssueRow(ctx context.Context, tx *sql.Tx, issue *types.Issue) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE issues SET
			content_hash = ?,
			title = ?,
			description = ?,
			design = ?,
			acceptance_criteria = ?,
			notes = ?,
			status = ?,
			priority = ?,
			issue_type = ?,
			assignee = ?,
			updated_at = ?,
			closed_at = ?,
			close_reason = ?,
			external_ref = ?
		WHERE id = ?`,
		issue.ContentHash,
		issue.Title,
		issue.Description,
		issue.Design,
		issue.AcceptanceCriteria,
		issue.Notes,
		string(issue.Status),
		issue.Priority,
		string(issue.IssueType),
		issue.Assignee,
		issue.UpdatedAt.Format(time.RFC3339Nano),
		timeToNullString(issue.ClosedAt),
		issue.CloseReason,
		ptrToNullString(issue.ExternalRef),
		issue.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue %s: %w", issue.ID, err)
	}
	return nil
}

// rowScanner lets scanIssue work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanIssue reads one issue row.
func scanIssue(row rowScanner) (*types.Issue, error) {
	var issue types.Issue
	var status, issueType string
	var createdAt, updatedAt string
	var closedAt, externalRef, compactedAt, compactedAtCommit sql.NullString

	err := row.Scan(
		&issue.ID,
		&issue.ContentHash,
		&issue.Title,
		&issue.Description,
		&issue.Design,
		&issue.AcceptanceCriteria,
		&issue.Notes,
		&status,
		&issue.Priority,
		&issueType,
		&issue.Assignee,
		&createdAt,
		&updatedAt,
		&closedAt,
		&issue.CloseReason,
		&externalRef,
		&issue.CompactionLevel,
		&compactedAt,
		&compactedAtCommit,
		&issue.OriginalSize,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	issue.Status = types.Status(status)
	issue.IssueType = types.IssueType(issueType)

	if t, err := parseTime(createdAt); err == nil {
		issue.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		issue.UpdatedAt = t
	}
	issue.ClosedAt = nullStringToTime(closedAt)
	issue.ExternalRef = nullStringToPtr(externalRef)
	issue.CompactedAt = nullStringToTime(compactedAt)
	issue.CompactedAtCommit = nullStringToPtr(compactedAtCommit)

	return &issue, nil
}

// scanIssues reads all issue rows from a query result.
func scanIssues(rows *sql.Rows) ([]*types.Issue, error) {
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return issues, nil
}
