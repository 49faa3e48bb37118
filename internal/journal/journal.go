// Package journal implements content-addressed sync between the store and a
// JSONL journal file.
//
// The journal is the git-friendly interchange format: one self-contained
// issue record per line, sorted by ID, with stable field order so diffs stay
// minimal. Export is incremental over the dirty set with per-issue export
// hashes, import is a full parse with three-way conflict detection.
package journal

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

// ErrJournalModified is returned by Export when the journal file on disk no
// longer matches the hash recorded at the last sync. Someone edited the file
// (or git merged it) behind the engine's back: import it first so those
// changes aren't silently overwritten.
var ErrJournalModified = errors.New("journal file modified externally, import it before exporting")

// maxLineSize bounds one journal record. Descriptions and design docs can be
// long, so this is generous.
const maxLineSize = 16 * 1024 * 1024

// Engine syncs a store with a journal file.
type Engine struct {
	store storage.Storage
}

// New creates a sync engine over the given store.
func New(store storage.Storage) *Engine {
	return &Engine{store: store}
}

// ExportResult reports what one export pass did.
type ExportResult struct {
	Path     string `json:"path"`
	Exported int    `json:"exported"` // records written with changed content
	Skipped  int    `json:"skipped"`  // dirty but content unchanged since last export
	Deleted  int    `json:"deleted"`  // records dropped for deleted issues
	FileHash string `json:"file_hash"`
}

// ImportResult reports what one import pass did.
type ImportResult struct {
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Conflict describes a record that was locally modified and remotely
// modified since the last sync. The local version is kept; the incoming
// version is reported, never silently applied.
type Conflict struct {
	ID           string `json:"id"`
	LocalHash    string `json:"local_hash"`
	IncomingHash string `json:"incoming_hash"`
	BaseHash     string `json:"base_hash"`
}

// Export writes dirty issues into the journal at path. When full is true
// every issue is rewritten and deleted issues are dropped regardless of the
// dirty set.
//
// The write is atomic: records go to a temp file in the same directory which
// is renamed over the journal only after everything is written.
func (e *Engine) Export(ctx context.Context, path string, full bool) (*ExportResult, error) {
	if err := e.checkIntegrity(ctx, path); err != nil {
		return nil, err
	}

	var pending []string
	if full {
		issues, err := e.store.SearchIssues(ctx, types.IssueFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}
		for _, issue := range issues {
			pending = append(pending, issue.ID)
		}
		// Still drain the dirty set so deletions are noticed.
		dirty, err := e.store.GetDirtyIssues(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get dirty issues: %w", err)
		}
		pending = mergeIDs(pending, dirty)
	} else {
		dirty, err := e.store.GetDirtyIssues(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get dirty issues: %w", err)
		}
		pending = dirty
	}

	result := &ExportResult{Path: path}
	if len(pending) == 0 {
		if _, err := os.Stat(path); err == nil {
			return result, nil // nothing to do
		}
		// No journal yet: fall through and write an empty one.
	}

	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if full {
		// Drop records whose issues no longer exist.
		for id := range records {
			if !containsID(pending, id) {
				delete(records, id)
				result.Deleted++
			}
		}
	}

	var exportedHashes = make(map[string]string)
	for _, id := range pending {
		issue, err := e.store.GetIssue(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			if _, had := records[id]; had {
				delete(records, id)
				result.Deleted++
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		record, err := e.buildRecord(ctx, issue)
		if err != nil {
			return nil, err
		}

		lastExported, err := e.store.GetExportHash(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, inFile := records[id]; inFile && lastExported == issue.ContentHash {
			result.Skipped++
			continue
		}

		records[id] = record
		exportedHashes[id] = issue.ContentHash
		result.Exported++
	}

	fileHash, err := writeRecords(path, records)
	if err != nil {
		return nil, err
	}
	result.FileHash = fileHash

	for id, hash := range exportedHashes {
		if err := e.store.SetExportHash(ctx, id, hash); err != nil {
			return nil, err
		}
	}
	if err := e.store.SetJournalFileHash(ctx, fileHash); err != nil {
		return nil, err
	}

	// Clear dirty marks only where the stored content still matches the
	// export hash. An issue mutated while this pass ran re-marked itself
	// dirty with content the journal hasn't seen; that mark must survive
	// so the next export picks it up.
	var synced []string
	for _, id := range pending {
		issue, err := e.store.GetIssue(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			synced = append(synced, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		exported, err := e.store.GetExportHash(ctx, id)
		if err != nil {
			return nil, err
		}
		if issue.ContentHash == exported {
			synced = append(synced, id)
		}
	}
	if err := e.store.ClearDirtyIssues(ctx, synced); err != nil {
		return nil, err
	}
	return result, nil
}

// Stale reports whether the journal on disk differs from the hash recorded
// at the last sync, meaning it holds changes the store hasn't seen. A
// missing journal is never stale.
func (e *Engine) Stale(ctx context.Context, path string) (bool, error) {
	current, err := hashFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	stored, err := e.store.GetJournalFileHash(ctx)
	if err != nil {
		return false, err
	}
	return stored != current, nil
}

// checkIntegrity compares the journal on disk against the hash recorded at
// the last sync.
func (e *Engine) checkIntegrity(ctx context.Context, path string) error {
	current, err := hashFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	stored, err := e.store.GetJournalFileHash(ctx)
	if err != nil {
		return err
	}
	if stored == "" {
		// First sync against a pre-existing file: refuse to clobber it.
		info, err := os.Stat(path)
		if err == nil && info.Size() > 0 {
			return fmt.Errorf("%s exists but was never imported: %w", path, ErrJournalModified)
		}
		return nil
	}
	if stored != current {
		return fmt.Errorf("%s: %w", path, ErrJournalModified)
	}
	return nil
}

// buildRecord assembles a self-contained journal record: the issue plus its
// labels, outgoing edges, and comments.
func (e *Engine) buildRecord(ctx context.Context, issue *types.Issue) (*types.Issue, error) {
	record := *issue

	labels, err := e.store.GetLabels(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	record.Labels = labels

	deps, err := e.store.GetDependencyRecords(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	record.Dependencies = deps

	comments, err := e.store.GetComments(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	record.Comments = comments

	return &record, nil
}

// Import reads the journal at path and applies it to the store.
//
// For each record a three-way comparison decides the outcome: the incoming
// content hash, the local content hash, and the export hash recorded at the
// last sync (the base). Local-only changes win, remote-only changes apply,
// both-changed is a conflict that is reported and left alone.
func (e *Engine) Import(ctx context.Context, path string) (*ImportResult, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &ImportResult{}
	for _, id := range ids {
		record := records[id]
		record.SetDefaults()
		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record %s: %w", id, err)
		}
		incomingHash := record.ComputeContentHash()

		local, err := e.store.GetIssue(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			if err := e.applyRecord(ctx, record, incomingHash); err != nil {
				return nil, err
			}
			result.Created++

		case err != nil:
			return nil, err

		default:
			base, err := e.store.GetExportHash(ctx, id)
			if err != nil {
				return nil, err
			}
			switch {
			case incomingHash == local.ContentHash:
				// Same content both sides; still merge edges and comments.
				if err := e.applyAttachments(ctx, record); err != nil {
					return nil, err
				}
				result.Unchanged++
			case local.ContentHash == base:
				// Only the journal changed: apply it.
				if err := e.applyRecord(ctx, record, incomingHash); err != nil {
					return nil, err
				}
				result.Updated++
			case incomingHash == base:
				// Only the store changed: local wins.
				result.Unchanged++
			default:
				result.Conflicts = append(result.Conflicts, Conflict{
					ID:           id,
					LocalHash:    local.ContentHash,
					IncomingHash: incomingHash,
					BaseHash:     base,
				})
			}
		}
	}

	// Remember what we synced against so the next export's integrity check
	// passes.
	fileHash, err := hashFile(path)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetJournalFileHash(ctx, fileHash); err != nil {
		return nil, err
	}
	return result, nil
}

// applyRecord upserts one journal record and records it as cleanly synced.
func (e *Engine) applyRecord(ctx context.Context, record *types.Issue, incomingHash string) error {
	issue := *record
	issue.Labels = nil
	issue.Dependencies = nil
	issue.Comments = nil
	if err := e.store.ImportIssue(ctx, &issue); err != nil {
		return fmt.Errorf("failed to import %s: %w", record.ID, err)
	}
	if err := e.applyAttachments(ctx, record); err != nil {
		return err
	}
	if err := e.store.SetExportHash(ctx, record.ID, incomingHash); err != nil {
		return err
	}
	return e.store.ClearDirtyIssues(ctx, []string{record.ID})
}

// applyAttachments merges a record's labels, edges, and comments additively.
func (e *Engine) applyAttachments(ctx context.Context, record *types.Issue) error {
	for _, label := range record.Labels {
		if err := e.store.AddLabel(ctx, record.ID, label, "import"); err != nil {
			return fmt.Errorf("failed to import label %s on %s: %w", label, record.ID, err)
		}
	}
	for _, dep := range record.Dependencies {
		cp := *dep
		cp.IssueID = record.ID
		if err := e.store.ImportDependency(ctx, &cp); err != nil {
			return err
		}
	}
	for _, comment := range record.Comments {
		if _, err := e.store.ImportComment(ctx, record.ID, comment.Author, comment.Text, comment.CreatedAt); err != nil {
			return fmt.Errorf("failed to import comment on %s: %w", record.ID, err)
		}
	}
	return nil
}

// readRecords parses the journal into a map keyed by issue ID. A missing
// file yields an empty map. Blank lines are skipped.
func readRecords(path string) (map[string]*types.Issue, error) {
	records := make(map[string]*types.Issue)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record types.Issue
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("failed to parse journal line %d: %w", lineNo, err)
		}
		if record.ID == "" {
			return nil, fmt.Errorf("journal line %d: record has no id", lineNo)
		}
		records[record.ID] = &record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

// writeRecords atomically replaces the journal with the given records,
// sorted by ID, returning the SHA-256 of the written file.
func writeRecords(path string, records map[string]*types.Issue) (string, error) {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp journal: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(tmp, h))
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, id := range ids {
		if err := enc.Encode(records[id]); err != nil {
			_ = tmp.Close()
			return "", fmt.Errorf("failed to encode record %s: %w", id, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to flush journal: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp journal: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to replace journal: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// hashFile returns the SHA-256 of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func mergeIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, id := range append(a, b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
