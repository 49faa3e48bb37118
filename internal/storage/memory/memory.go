// Package memory provides an in-memory Storage backend for tests.
//
// It mirrors the SQLite backend's observable behavior: one lock per store
// handle, atomic mutation+event+dirty-mark units, and insertion-ordered
// dependency snapshots.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

// Store is an in-memory issue store.
type Store struct {
	mu sync.Mutex

	issues       map[string]*types.Issue
	deps         []*types.Dependency // insertion order
	labels       map[string]map[string]bool
	comments     map[string][]*types.Comment
	events       map[string][]*types.Event
	dirty        map[string]time.Time
	exportHashes map[string]string
	config       map[string]string
	metadata     map[string]string
	counters     map[string]int

	nextEventID   int64
	nextCommentID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		issues:       make(map[string]*types.Issue),
		labels:       make(map[string]map[string]bool),
		comments:     make(map[string][]*types.Comment),
		events:       make(map[string][]*types.Event),
		dirty:        make(map[string]time.Time),
		exportHashes: make(map[string]string),
		config:       make(map[string]string),
		metadata:     make(map[string]string),
		counters:     make(map[string]int),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) appendEvent(issueID string, et types.EventType, actor string, oldValue, newValue, comment *string) {
	s.nextEventID++
	s.events[issueID] = append(s.events[issueID], &types.Event{
		ID:        s.nextEventID,
		IssueID:   issueID,
		EventType: et,
		Actor:     actor,
		OldValue:  oldValue,
		NewValue:  newValue,
		Comment:   comment,
		CreatedAt: time.Now(),
	})
}

func (s *Store) markDirty(issueID string) {
	s.dirty[issueID] = time.Now()
}

// CreateIssue validates and stores a new issue, appending a created event
// and marking the issue dirty.
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
	if _, exists := s.issues[issue.ID]; exists {
		return fmt.Errorf("issue %s already exists", issue.ID)
	}
	if issue.ExternalRef != nil {
		for _, other := range s.issues {
			if other.ExternalRef != nil && *other.ExternalRef == *issue.ExternalRef {
				return fmt.Errorf("external ref %s already used by %s", *issue.ExternalRef, other.ID)
			}
		}
	}

	stored := *issue
	stored.ContentHash = stored.ComputeContentHash()
	stored.Labels = nil
	stored.Dependencies = nil
	stored.Comments = nil
	s.issues[stored.ID] = &stored
	issue.ContentHash = stored.ContentHash

	s.appendEvent(stored.ID, types.EventCreated, actor, nil, nil, nil)
	s.markDirty(stored.ID)
	return nil
}

// GetIssue returns a copy of the issue, or storage.ErrNotFound.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	cp := *issue
	return &cp, nil
}

// GetIssues returns the issues that exist among ids, preserving id order.
// Missing IDs are skipped, not errors.
func (s *Store) GetIssues(ctx context.Context, ids []string) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Issue
	for _, id := range ids {
		if issue, ok := s.issues[id]; ok {
			cp := *issue
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetIssueByExternalRef looks up an issue by its foreign-system reference.
func (s *Store) GetIssueByExternalRef(ctx context.Context, externalRef string) (*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, issue := range s.issues {
		if issue.ExternalRef != nil && *issue.ExternalRef == externalRef {
			cp := *issue
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("external ref %s: %w", externalRef, storage.ErrNotFound)
}

// UpdateIssue applies field updates, re-validates, recomputes the content
// hash, appends an event, and marks the issue dirty - atomically under the
// store lock.
func (s *Store) UpdateIssue(ctx context.Context, id string, updates map[string]interface{}, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}

	updated := *issue
	statusChanged := false
	for field, value := range updates {
		switch field {
		case "title":
			updated.Title = value.(string)
		case "description":
			updated.Description = value.(string)
		case "design":
			updated.Design = value.(string)
		case "acceptance_criteria":
			updated.AcceptanceCriteria = value.(string)
		case "notes":
			updated.Notes = value.(string)
		case "assignee":
			updated.Assignee = value.(string)
		case "priority":
			updated.Priority = value.(int)
		case "issue_type":
			updated.IssueType = types.IssueType(fmt.Sprint(value))
		case "status":
			newStatus := types.Status(fmt.Sprint(value))
			statusChanged = newStatus != issue.Status
			updated.Status = newStatus
		case "external_ref":
			if value == nil {
				updated.ExternalRef = nil
			} else {
				ref := value.(string)
				updated.ExternalRef = &ref
			}
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
	}

	// Maintain the closed_at invariant when status moves across the
	// closed boundary.
	if updated.Status == types.StatusClosed && updated.ClosedAt == nil {
		now := time.Now()
		updated.ClosedAt = &now
	}
	if updated.Status != types.StatusClosed {
		updated.ClosedAt = nil
		updated.CloseReason = ""
	}

	if err := updated.Validate(); err != nil {
		return err
	}
	updated.UpdatedAt = time.Now()
	updated.ContentHash = updated.ComputeContentHash()
	s.issues[id] = &updated

	eventType := types.EventUpdated
	if statusChanged {
		eventType = types.EventStatusChanged
		old := string(issue.Status)
		nw := string(updated.Status)
		s.appendEvent(id, eventType, actor, &old, &nw, nil)
	} else {
		s.appendEvent(id, eventType, actor, nil, nil, nil)
	}
	s.markDirty(id)
	return nil
}

// CloseIssue transitions an issue to closed, setting closed_at and the
// close reason.
func (s *Store) CloseIssue(ctx context.Context, id string, reason string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	if issue.Status == types.StatusClosed {
		return fmt.Errorf("issue %s is already closed", id)
	}

	now := time.Now()
	updated := *issue
	updated.Status = types.StatusClosed
	updated.ClosedAt = &now
	updated.CloseReason = reason
	updated.UpdatedAt = now
	updated.ContentHash = updated.ComputeContentHash()
	s.issues[id] = &updated

	old := string(issue.Status)
	nw := string(types.StatusClosed)
	var comment *string
	if reason != "" {
		comment = &reason
	}
	s.appendEvent(id, types.EventClosed, actor, &old, &nw, comment)
	s.markDirty(id)
	return nil
}

// ReopenIssue transitions a closed issue back to open.
func (s *Store) ReopenIssue(ctx context.Context, id string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	if issue.Status != types.StatusClosed {
		return fmt.Errorf("issue %s is not closed", id)
	}

	updated := *issue
	updated.Status = types.StatusOpen
	updated.ClosedAt = nil
	updated.CloseReason = ""
	updated.UpdatedAt = time.Now()
	updated.ContentHash = updated.ComputeContentHash()
	s.issues[id] = &updated

	old := string(types.StatusClosed)
	nw := string(types.StatusOpen)
	s.appendEvent(id, types.EventReopened, actor, &old, &nw, nil)
	s.markDirty(id)
	return nil
}

// DeleteIssue removes an issue and cascades removal of its edges, labels,
// comments, and events. The ID stays dirty so export drops the record.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[id]; !ok {
		return fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	delete(s.issues, id)

	kept := s.deps[:0]
	for _, d := range s.deps {
		if d.IssueID != id && d.DependsOnID != id {
			kept = append(kept, d)
		}
	}
	s.deps = kept

	delete(s.labels, id)
	delete(s.comments, id)
	delete(s.events, id)
	delete(s.exportHashes, id)
	s.markDirty(id)
	return nil
}

// SearchIssues returns issues matching the filter, ordered by priority
// ascending then creation time ascending (ID as final tie-break).
func (s *Store) SearchIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := map[string]bool{}
	for _, id := range filter.IDs {
		idSet[id] = true
	}

	var out []*types.Issue
	for _, issue := range s.issues {
		if len(idSet) > 0 && !idSet[issue.ID] {
			continue
		}
		if filter.Status != nil && issue.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && issue.Priority != *filter.Priority {
			continue
		}
		if filter.IssueType != nil && issue.IssueType != *filter.IssueType {
			continue
		}
		if filter.Assignee != nil && issue.Assignee != *filter.Assignee {
			continue
		}
		if !s.matchLabels(issue.ID, filter.Labels, filter.LabelsAny) {
			continue
		}
		cp := *issue
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// matchLabels applies AND-semantics Labels and OR-semantics LabelsAny.
// Caller holds the lock.
func (s *Store) matchLabels(issueID string, all, any []string) bool {
	have := s.labels[issueID]
	for _, label := range all {
		if !have[label] {
			return false
		}
	}
	if len(any) > 0 {
		found := false
		for _, label := range any {
			if have[label] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ImportIssue upserts an issue preserving its timestamps, without appending
// an event or marking the issue dirty.
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

	stored := *issue
	stored.ContentHash = stored.ComputeContentHash()
	stored.Labels = nil
	stored.Dependencies = nil
	stored.Comments = nil
	s.issues[stored.ID] = &stored
	issue.ContentHash = stored.ContentHash
	return nil
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
	for i, existing := range s.deps {
		if existing.IssueID == dep.IssueID && existing.DependsOnID == dep.DependsOnID {
			cp := *dep
			s.deps[i] = &cp
			return nil
		}
	}
	cp := *dep
	s.deps = append(s.deps, &cp)
	return nil
}

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

	for i, existing := range s.deps {
		if existing.IssueID == dep.IssueID && existing.DependsOnID == dep.DependsOnID {
			cp := *dep
			s.deps[i] = &cp
			s.appendEvent(dep.IssueID, types.EventDependencyAdded, actor, nil, &dep.DependsOnID, nil)
			s.markDirty(dep.IssueID)
			return nil
		}
	}

	cp := *dep
	s.deps = append(s.deps, &cp)
	s.appendEvent(dep.IssueID, types.EventDependencyAdded, actor, nil, &dep.DependsOnID, nil)
	s.markDirty(dep.IssueID)
	return nil
}

// RemoveDependency deletes the edge issueID -> dependsOnID.
func (s *Store) RemoveDependency(ctx context.Context, issueID, dependsOnID string, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.deps {
		if d.IssueID == issueID && d.DependsOnID == dependsOnID {
			s.deps = append(s.deps[:i], s.deps[i+1:]...)
			s.appendEvent(issueID, types.EventDependencyRemoved, actor, &dependsOnID, nil, nil)
			s.markDirty(issueID)
			return nil
		}
	}
	return fmt.Errorf("dependency %s -> %s: %w", issueID, dependsOnID, storage.ErrNotFound)
}

// GetDependencyRecords returns the outgoing edges of issueID in insertion order.
func (s *Store) GetDependencyRecords(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Dependency
	for _, d := range s.deps {
		if d.IssueID == issueID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetDependentRecords returns the incoming edges of issueID in insertion order.
func (s *Store) GetDependentRecords(ctx context.Context, issueID string) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Dependency
	for _, d := range s.deps {
		if d.DependsOnID == issueID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetAllDependencyRecords returns the full edge set in insertion order.
func (s *Store) GetAllDependencyRecords(ctx context.Context) ([]*types.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Dependency, 0, len(s.deps))
	for _, d := range s.deps {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// AddLabel attaches a label to an issue. Adding an existing label is a no-op.
func (s *Store) AddLabel(ctx context.Context, issueID, label, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[issueID]; !ok {
		return fmt.Errorf("issue %s: %w", issueID, storage.ErrNotFound)
	}
	if s.labels[issueID] == nil {
		s.labels[issueID] = make(map[string]bool)
	}
	if s.labels[issueID][label] {
		return nil
	}
	s.labels[issueID][label] = true
	s.appendEvent(issueID, types.EventLabelAdded, actor, nil, &label, nil)
	s.markDirty(issueID)
	return nil
}

// RemoveLabel detaches a label from an issue.
func (s *Store) RemoveLabel(ctx context.Context, issueID, label, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.labels[issueID][label] {
		return fmt.Errorf("label %s on %s: %w", label, issueID, storage.ErrNotFound)
	}
	delete(s.labels[issueID], label)
	s.appendEvent(issueID, types.EventLabelRemoved, actor, &label, nil, nil)
	s.markDirty(issueID)
	return nil
}

// GetLabels returns the issue's labels, sorted.
func (s *Store) GetLabels(ctx context.Context, issueID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelsLocked(issueID), nil
}

func (s *Store) labelsLocked(issueID string) []string {
	var out []string
	for label := range s.labels[issueID] {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// GetLabelsForIssues returns labels for a batch of issues.
func (s *Store) GetLabelsForIssues(ctx context.Context, issueIDs []string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(issueIDs))
	for _, id := range issueIDs {
		if labels := s.labelsLocked(id); len(labels) > 0 {
			out[id] = labels
		}
	}
	return out, nil
}

// AddComment appends a comment and a commented event.
func (s *Store) AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCommentLocked(issueID, author, text, time.Now(), true)
}

// ImportComment appends a comment preserving its original timestamp.
// Re-importing an identical comment is a no-op.
func (s *Store) ImportComment(ctx context.Context, issueID, author, text string, createdAt time.Time) (*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments[issueID] {
		if c.Author == author && c.Text == text && c.CreatedAt.Equal(createdAt) {
			cp := *c
			return &cp, nil
		}
	}
	return s.addCommentLocked(issueID, author, text, createdAt, false)
}

func (s *Store) addCommentLocked(issueID, author, text string, createdAt time.Time, markDirty bool) (*types.Comment, error) {
	if _, ok := s.issues[issueID]; !ok {
		return nil, fmt.Errorf("issue %s: %w", issueID, storage.ErrNotFound)
	}
	s.nextCommentID++
	comment := &types.Comment{
		ID:        s.nextCommentID,
		IssueID:   issueID,
		Author:    author,
		Text:      text,
		CreatedAt: createdAt,
	}
	s.comments[issueID] = append(s.comments[issueID], comment)
	if markDirty {
		s.appendEvent(issueID, types.EventCommented, author, nil, nil, &text)
		s.markDirty(issueID)
	}
	cp := *comment
	return &cp, nil
}

// GetComments returns an issue's comments in creation order.
func (s *Store) GetComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Comment
	for _, c := range s.comments[issueID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// GetCommentsForIssues returns comments for a batch of issues.
func (s *Store) GetCommentsForIssues(ctx context.Context, issueIDs []string) (map[string][]*types.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]*types.Comment, len(issueIDs))
	for _, id := range issueIDs {
		for _, c := range s.comments[id] {
			cp := *c
			out[id] = append(out[id], &cp)
		}
	}
	return out, nil
}

// GetEvents returns an issue's audit events, newest first.
func (s *Store) GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events[issueID]
	var out []*types.Event
	for i := len(events) - 1; i >= 0; i-- {
		cp := *events[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetDirtyIssues returns the IDs mutated since the last export, sorted.
func (s *Store) GetDirtyIssues(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// ClearDirtyIssues removes dirty marks for the given IDs.
func (s *Store) ClearDirtyIssues(ctx context.Context, issueIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range issueIDs {
		delete(s.dirty, id)
	}
	return nil
}

// MarkDirty flags an issue as needing export. Re-marking is a no-op.
func (s *Store) MarkDirty(ctx context.Context, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markDirty(issueID)
	return nil
}

// GetExportHash returns the last content hash exported for issueID, or "".
func (s *Store) GetExportHash(ctx context.Context, issueID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportHashes[issueID], nil
}

// SetExportHash records the content hash just written to the journal.
func (s *Store) SetExportHash(ctx context.Context, issueID, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportHashes[issueID] = contentHash
	return nil
}

// ClearAllExportHashes drops all export hashes, forcing a full export.
func (s *Store) ClearAllExportHashes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportHashes = make(map[string]string)
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
func (s *Store) NextID(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[prefix]++
	return fmt.Sprintf("%s-%d", prefix, s.counters[prefix]), nil
}

// NextChildID allocates the next hierarchical child ID: parentID.N.
func (s *Store) NextChildID(ctx context.Context, parentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[parentID]; !ok {
		return "", fmt.Errorf("issue %s: %w", parentID, storage.ErrNotFound)
	}
	key := "child." + parentID
	s.counters[key]++
	return fmt.Sprintf("%s.%d", parentID, s.counters[key]), nil
}

// SetConfig stores a config key.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

// GetConfig returns a config value, or "" when unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config[key], nil
}

// DeleteConfig removes a config key.
func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.config, key)
	return nil
}

// SetMetadata stores an internal bookkeeping key.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
	return nil
}

// GetMetadata returns a bookkeeping value, or "" when unset.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata[key], nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Path identifies the store for diagnostics.
func (s *Store) Path() string { return ":memory:" }
