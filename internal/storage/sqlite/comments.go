package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/spoolworks/spool/internal/types"
)

// AddComment appends a comment and a commented event.
func (s *Store) AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssue(ctx, issueID); err != nil {
		return nil, err
	}

	comment := &types.Comment{
		IssueID:   issueID,
		Author:    author,
		Text:      text,
		CreatedAt: time.Now(),
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := insertComment(ctx, tx, comment)
		if err != nil {
			return err
		}
		comment.ID = id
		if err := insertEvent(ctx, tx, issueID, string(types.EventCommented), author, nil, nil, &text); err != nil {
			return err
		}
		return markDirty(ctx, tx, issueID)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ImportComment appends a comment preserving its original timestamp, so
// comments don't drift across sync cycles. Re-importing an identical comment
// is a no-op. No event or dirty mark: an import must not re-dirty the issue.
func (s *Store) ImportComment(ctx context.Context, issueID, author, text string, createdAt time.Time) (*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssue(ctx, issueID); err != nil {
		return nil, err
	}

	var existingID int64
	err := s.conn.QueryRowContext(ctx,
		`SELECT id FROM comments WHERE issue_id = ? AND author = ? AND text = ? AND created_at = ?`,
		issueID, author, text, createdAt.Format(time.RFC3339Nano)).Scan(&existingID)
	if err == nil {
		return &types.Comment{ID: existingID, IssueID: issueID, Author: author, Text: text, CreatedAt: createdAt}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing comment: %w", err)
	}

	comment := &types.Comment{
		IssueID:   issueID,
		Author:    author,
		Text:      text,
		CreatedAt: createdAt,
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := insertComment(ctx, tx, comment)
		if err != nil {
			return err
		}
		comment.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func insertComment(ctx context.Context, tx *sql.Tx, comment *types.Comment) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (issue_id, author, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.IssueID, comment.Author, comment.Text, comment.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert comment on %s: %w", comment.IssueID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get comment id: %w", err)
	}
	return id, nil
}

// GetComments returns an issue's comments in creation order.
func (s *Store) GetComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, issue_id, author, text, created_at FROM comments WHERE issue_id = ? ORDER BY id ASC`,
		issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// GetCommentsForIssues returns comments for a batch of issues in one query.
func (s *Store) GetCommentsForIssues(ctx context.Context, issueIDs []string) (map[string][]*types.Comment, error) {
	if len(issueIDs) == 0 {
		return map[string][]*types.Comment{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := strings.Repeat("?,", len(issueIDs)-1) + "?"
	args := make([]interface{}, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, issue_id, author, text, created_at FROM comments WHERE issue_id IN (`+placeholders+`) ORDER BY id ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]*types.Comment)
	for _, c := range comments {
		out[c.IssueID] = append(out[c.IssueID], c)
	}
	return out, nil
}

func scanComments(rows *sql.Rows) ([]*types.Comment, error) {
	var comments []*types.Comment
	for rows.Next() {
		var c types.Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Author, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			c.CreatedAt = t
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

// GetEvents returns an issue's audit events, newest first.
// limit <= 0 means unbounded.
func (s *Store) GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, issue_id, event_type, actor, old_value, new_value, comment, created_at
		FROM events WHERE issue_id = ? ORDER BY id DESC`
	args := []interface{}{issueID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		var e types.Event
		var eventType, createdAt string
		var oldValue, newValue, comment sql.NullString
		if err := rows.Scan(&e.ID, &e.IssueID, &eventType, &e.Actor, &oldValue, &newValue, &comment, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.EventType = types.EventType(eventType)
		e.OldValue = nullStringToPtr(oldValue)
		e.NewValue = nullStringToPtr(newValue)
		e.Comment = nullStringToPtr(comment)
		if t, err := parseTime(createdAt); err == nil {
			e.CreatedAt = t
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
