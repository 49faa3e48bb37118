package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// GetDirtyIssues returns the IDs mutated since the last export, sorted.
func (s *Store) GetDirtyIssues(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT issue_id FROM dirty_issues ORDER BY issue_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty issues: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan dirty issue: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dirty issues: %w", err)
	}
	return ids, nil
}

// ClearDirtyIssues removes dirty marks for the given IDs in one transaction.
func (s *Store) ClearDirtyIssues(ctx context.Context, issueIDs []string) error {
	if len(issueIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range issueIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM dirty_issues WHERE issue_id = ?`, id); err != nil {
				return fmt.Errorf("failed to clear dirty mark for %s: %w", id, err)
			}
		}
		return nil
	})
}

// MarkDirty flags an issue as needing export. Re-marking is a no-op.
func (s *Store) MarkDirty(ctx context.Context, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return markDirty(ctx, tx, issueID)
	})
}

// GetExportHash returns the last content hash exported for issueID, or "".
func (s *Store) GetExportHash(ctx context.Context, issueID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash string
	err := s.conn.QueryRowContext(ctx,
		`SELECT content_hash FROM export_hashes WHERE issue_id = ?`, issueID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query export hash for %s: %w", issueID, err)
	}
	return hash, nil
}

// SetExportHash records the content hash just written to the journal.
func (s *Store) SetExportHash(ctx context.Context, issueID, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO export_hashes (issue_id, content_hash)
		VALUES (?, ?)
		ON CONFLICT(issue_id) DO UPDATE SET content_hash = excluded.content_hash`,
		issueID, contentHash)
	if err != nil {
		return fmt.Errorf("failed to set export hash for %s: %w", issueID, err)
	}
	return nil
}

// ClearAllExportHashes drops all export hashes, forcing a full export.
func (s *Store) ClearAllExportHashes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.ExecContext(ctx, `DELETE FROM export_hashes`); err != nil {
		return fmt.Errorf("failed to clear export hashes: %w", err)
	}
	return nil
}

// GetJournalFileHash returns the stored whole-file integrity hash, or "".
func (s *Store) GetJournalFileHash(ctx context.Context) (string, error) {
	return s.GetMetadata(ctx, "journal_file_hash")
}

// SetJournalFileHash stores the whole-file integrity hash.
func (s *Store) SetJournalFileHash(ctx context.Context, fileHash string) error {
	return s.SetMetadata(ctx, "journal_file_hash", fileHash)
}

// NextID allocates the next top-level ID for the given prefix: prefix-N.
// The counter increment commits immediately, so IDs are never reused even
// when the caller's create fails.
func (s *Store) NextID(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.bumpCounter(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d", prefix, n), nil
}

// NextChildID allocates the next hierarchical child ID: parentID.N.
func (s *Store) NextChildID(ctx context.Context, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireIssue(ctx, parentID); err != nil {
		return "", err
	}
	n, err := s.bumpCounter(ctx, "child."+parentID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%d", parentID, n), nil
}

// bumpCounter increments a named counter and returns the new value.
// Caller holds s.mu.
func (s *Store) bumpCounter(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.conn.QueryRowContext(ctx, `
		INSERT INTO counters (name, value)
		VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to bump counter %s: %w", name, err)
	}
	return value, nil
}

// SetConfig stores a config key.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertKV(ctx, "config", key, value)
}

// GetConfig returns a config value, or "" when unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getKV(ctx, "config", key)
}

// DeleteConfig removes a config key.
func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete config %s: %w", key, err)
	}
	return nil
}

// SetMetadata stores an internal bookkeeping key.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertKV(ctx, "metadata", key, value)
}

// GetMetadata returns a bookkeeping value, or "" when unset.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getKV(ctx, "metadata", key)
}

// upsertKV writes into one of the two key-value tables. Caller holds s.mu.
func (s *Store) upsertKV(ctx context.Context, table, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, table)
	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s key %s: %w", table, key, err)
	}
	return nil
}

// getKV reads from one of the two key-value tables. Caller holds s.mu.
func (s *Store) getKV(ctx context.Context, table, key string) (string, error) {
	var value string
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table)
	err := s.conn.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s key %s: %w", table, key, err)
	}
	return value, nil
}
