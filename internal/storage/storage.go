// Package storage defines the capability boundary the graph engine, work
// classifier, and journal sync engine require of an issue store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/spoolworks/spool/internal/types"
)

// ErrNotFound is returned when an issue or dependency edge does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface implemented by issue store backends.
//
// There are exactly two implementations: the SQLite backend (production) and
// the in-memory backend (tests). Both serialize all operations behind a
// single lock scoped to the store handle, and both guarantee that a mutation,
// its audit event, and its dirty mark commit atomically as one unit.
type Storage interface {
	// Issues
	CreateIssue(ctx context.Context, issue *types.Issue, actor string) error
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	GetIssues(ctx context.Context, ids []string) ([]*types.Issue, error)
	GetIssueByExternalRef(ctx context.Context, externalRef string) (*types.Issue, error)
	UpdateIssue(ctx context.Context, id string, updates map[string]interface{}, actor string) error
	CloseIssue(ctx context.Context, id string, reason string, actor string) error
	ReopenIssue(ctx context.Context, id string, actor string) error
	// DeleteIssue removes an issue and cascades removal of its edges,
	// labels, comments, and events. The ID stays dirty so the next export
	// drops the record from the journal.
	DeleteIssue(ctx context.Context, id string) error
	SearchIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error)
	// ImportIssue upserts an issue preserving its timestamps, without
	// appending an event or marking the issue dirty. Used by journal
	// import so re-importing the same file is a no-op.
	ImportIssue(ctx context.Context, issue *types.Issue) error

	// Dependencies. Edges are not required to reference existing issues
	// at write time; dangling endpoints are tolerated.
	AddDependency(ctx context.Context, dep *types.Dependency, actor string) error
	// ImportDependency upserts an edge without an event or dirty mark.
	ImportDependency(ctx context.Context, dep *types.Dependency) error
	RemoveDependency(ctx context.Context, issueID, dependsOnID string, actor string) error
	GetDependencyRecords(ctx context.Context, issueID string) ([]*types.Dependency, error)
	GetDependentRecords(ctx context.Context, issueID string) ([]*types.Dependency, error)
	// GetAllDependencyRecords returns the full edge set in insertion order.
	// Graph algorithms run over this one-time snapshot rather than
	// re-querying per node.
	GetAllDependencyRecords(ctx context.Context) ([]*types.Dependency, error)

	// Labels
	AddLabel(ctx context.Context, issueID, label, actor string) error
	RemoveLabel(ctx context.Context, issueID, label, actor string) error
	GetLabels(ctx context.Context, issueID string) ([]string, error)
	GetLabelsForIssues(ctx context.Context, issueIDs []string) (map[string][]string, error)

	// Comments
	AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error)
	// ImportComment adds a comment while preserving the original timestamp.
	// Used during journal import to avoid timestamp drift across sync cycles.
	ImportComment(ctx context.Context, issueID, author, text string, createdAt time.Time) (*types.Comment, error)
	GetComments(ctx context.Context, issueID string) ([]*types.Comment, error)
	GetCommentsForIssues(ctx context.Context, issueIDs []string) (map[string][]*types.Comment, error)

	// Events
	GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error)

	// Dirty tracking (unit of incremental journal export)
	GetDirtyIssues(ctx context.Context) ([]string, error)
	ClearDirtyIssues(ctx context.Context, issueIDs []string) error
	MarkDirty(ctx context.Context, issueID string) error

	// Export hash tracking (last content hash written to the journal)
	GetExportHash(ctx context.Context, issueID string) (string, error)
	SetExportHash(ctx context.Context, issueID, contentHash string) error
	ClearAllExportHashes(ctx context.Context) error

	// Journal file integrity
	GetJournalFileHash(ctx context.Context) (string, error)
	SetJournalFileHash(ctx context.Context, fileHash string) error

	// ID generation. NextID issues "<prefix>-N"; NextChildID issues
	// hierarchical "<parentID>.N" identifiers.
	NextID(ctx context.Context, prefix string) (string, error)
	NextChildID(ctx context.Context, parentID string) (string, error)

	// Config and metadata key-value storage (engine bookkeeping)
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)
	DeleteConfig(ctx context.Context, key string) error
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)

	// Lifecycle
	Close() error
	Path() string
}
