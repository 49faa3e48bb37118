// Package work classifies issues into ready, blocked, stale, and
// epic-closure sets.
//
// Classification is derived, never stored: an issue's stored status is not
// rewritten when its blockers change. The classifier reads one consistent
// snapshot of issues and edges per call and computes the answer in memory.
package work

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spoolworks/spool/internal/storage"
	"github.com/spoolworks/spool/internal/types"
)

// recencyWindow is the hybrid sort policy's cutoff: issues created within
// this window sort by priority, older issues sort by age.
const recencyWindow = 48 * time.Hour

// Classifier computes derived work sets over a store.
type Classifier struct {
	store storage.Storage
}

// New creates a classifier backed by the given store.
func New(store storage.Storage) *Classifier {
	return &Classifier{store: store}
}

// snapshot is one consistent read of everything classification needs.
type snapshot struct {
	issues []*types.Issue
	byID   map[string]*types.Issue
	deps   []*types.Dependency

	// blocking edges by source issue, built once per load
	blocking map[string][]*types.Dependency
}

func (c *Classifier) load(ctx context.Context) (*snapshot, error) {
	issues, err := c.store.SearchIssues(ctx, types.IssueFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load issues: %w", err)
	}
	deps, err := c.store.GetAllDependencyRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	byID := make(map[string]*types.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	blocking := make(map[string][]*types.Dependency)
	for _, dep := range deps {
		if dep.Type == types.DepBlocks {
			blocking[dep.IssueID] = append(blocking[dep.IssueID], dep)
		}
	}
	return &snapshot{issues: issues, byID: byID, deps: deps, blocking: blocking}, nil
}

// openBlockers returns the IDs of issues that currently block issueID:
// targets of its blocks edges that exist and are not closed. Only blocks
// edges gate work; parent-child edges constrain the graph (cycles, epic
// closure) but a child is workable while its epic is open. A dangling
// endpoint imposes no constraint.
func (s *snapshot) openBlockers(issueID string) []string {
	var blockers []string
	for _, dep := range s.blocking[issueID] {
		target, ok := s.byID[dep.DependsOnID]
		if !ok {
			continue
		}
		if target.Status != types.StatusClosed {
			blockers = append(blockers, target.ID)
		}
	}
	return blockers
}

// Ready returns open issues with no open blockers, matching the filter,
// ordered by the filter's sort policy (hybrid by default).
func (c *Classifier) Ready(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error) {
	if !filter.SortPolicy.IsValid() {
		return nil, fmt.Errorf("invalid sort policy: %s", filter.SortPolicy)
	}

	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	labels, err := c.labelsFor(ctx, snap.issues, len(filter.Labels) > 0 || len(filter.LabelsAny) > 0)
	if err != nil {
		return nil, err
	}

	var ready []*types.Issue
	for _, issue := range snap.issues {
		if issue.Status != types.StatusOpen {
			continue
		}
		if len(snap.openBlockers(issue.ID)) > 0 {
			continue
		}
		if filter.Priority != nil && issue.Priority != *filter.Priority {
			continue
		}
		if filter.Unassigned && issue.Assignee != "" {
			continue
		}
		if filter.Assignee != nil && issue.Assignee != *filter.Assignee {
			continue
		}
		if !matchLabels(labels[issue.ID], filter.Labels, filter.LabelsAny) {
			continue
		}
		ready = append(ready, issue)
	}

	sortReady(ready, filter.SortPolicy)

	if filter.Limit > 0 && len(ready) > filter.Limit {
		ready = ready[:filter.Limit]
	}
	return ready, nil
}

// sortReady orders ready issues by policy.
//
// hybrid: issues created within the last 48 hours first, by priority then
// creation time, followed by older issues oldest first. Recent triage gets
// priority ordering without letting old issues vanish from the list.
func sortReady(issues []*types.Issue, policy types.SortPolicy) {
	switch policy {
	case types.SortPolicyPriority:
		sort.SliceStable(issues, func(i, j int) bool {
			if issues[i].Priority != issues[j].Priority {
				return issues[i].Priority < issues[j].Priority
			}
			return issues[i].CreatedAt.Before(issues[j].CreatedAt)
		})
	case types.SortPolicyOldest:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].CreatedAt.Before(issues[j].CreatedAt)
		})
	default: // hybrid
		cutoff := time.Now().Add(-recencyWindow)
		recent := func(issue *types.Issue) bool {
			return issue.CreatedAt.After(cutoff)
		}
		sort.SliceStable(issues, func(i, j int) bool {
			ri, rj := recent(issues[i]), recent(issues[j])
			if ri != rj {
				return ri
			}
			if ri {
				if issues[i].Priority != issues[j].Priority {
					return issues[i].Priority < issues[j].Priority
				}
			}
			return issues[i].CreatedAt.Before(issues[j].CreatedAt)
		})
	}
}

// labelsFor batches label lookup, skipped when no label filter is active.
func (c *Classifier) labelsFor(ctx context.Context, issues []*types.Issue, needed bool) (map[string][]string, error) {
	if !needed {
		return nil, nil
	}
	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	labels, err := c.store.GetLabelsForIssues(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	return labels, nil
}

func matchLabels(have []string, all, any []string) bool {
	set := make(map[string]bool, len(have))
	for _, label := range have {
		set[label] = true
	}
	for _, label := range all {
		if !set[label] {
			return false
		}
	}
	if len(any) > 0 {
		found := false
		for _, label := range any {
			if set[label] {
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

// Blocked returns non-closed issues that have at least one open blocker,
// with the blocker IDs attached, ordered by priority then creation time.
func (c *Classifier) Blocked(ctx context.Context) ([]*types.BlockedIssue, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	var blocked []*types.BlockedIssue
	for _, issue := range snap.issues {
		if issue.Status == types.StatusClosed {
			continue
		}
		blockers := snap.openBlockers(issue.ID)
		if len(blockers) == 0 {
			continue
		}
		blocked = append(blocked, &types.BlockedIssue{
			Issue:          *issue,
			BlockedByCount: len(blockers),
			BlockedBy:      blockers,
		})
	}
	return blocked, nil
}

// EligibleEpics returns open epics with their child completion status. An
// epic is eligible for closure when it has at least one child and every
// child is closed. Children are the issues whose parent-child edge points
// at the epic; dangling child references are ignored.
func (c *Classifier) EligibleEpics(ctx context.Context) ([]*types.EpicStatus, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	// epic ID -> child issues
	children := make(map[string][]*types.Issue)
	for _, dep := range snap.deps {
		if dep.Type != types.DepParentChild {
			continue
		}
		child, ok := snap.byID[dep.IssueID]
		if !ok {
			continue
		}
		children[dep.DependsOnID] = append(children[dep.DependsOnID], child)
	}

	var epics []*types.EpicStatus
	for _, issue := range snap.issues {
		if issue.IssueType != types.TypeEpic || issue.Status == types.StatusClosed {
			continue
		}
		kids := children[issue.ID]
		closed := 0
		for _, kid := range kids {
			if kid.Status == types.StatusClosed {
				closed++
			}
		}
		epics = append(epics, &types.EpicStatus{
			Epic:             issue,
			TotalChildren:    len(kids),
			ClosedChildren:   closed,
			EligibleForClose: len(kids) > 0 && closed == len(kids),
		})
	}
	return epics, nil
}

// Stale returns non-closed issues not updated within filter.Days days,
// oldest update first. An empty Status matches all non-closed statuses.
func (c *Classifier) Stale(ctx context.Context, filter types.StaleFilter) ([]*types.Issue, error) {
	if filter.Days < 0 {
		return nil, fmt.Errorf("days must be non-negative (got %d)", filter.Days)
	}
	if filter.Status != "" {
		status := types.Status(filter.Status)
		if !status.IsValid() || status == types.StatusClosed {
			return nil, fmt.Errorf("invalid stale status filter: %s", filter.Status)
		}
	}

	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -filter.Days)
	var stale []*types.Issue
	for _, issue := range snap.issues {
		if issue.Status == types.StatusClosed {
			continue
		}
		if filter.Status != "" && issue.Status != types.Status(filter.Status) {
			continue
		}
		if issue.UpdatedAt.After(cutoff) {
			continue
		}
		stale = append(stale, issue)
	}

	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})

	if filter.Limit > 0 && len(stale) > filter.Limit {
		stale = stale[:filter.Limit]
	}
	return stale, nil
}

// Statistics computes aggregate project metrics in one pass.
func (c *Classifier) Statistics(ctx context.Context) (*types.Statistics, error) {
	snap, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	stats := &types.Statistics{TotalIssues: len(snap.issues)}
	var leadTime time.Duration
	closedWithTimes := 0

	for _, issue := range snap.issues {
		switch issue.Status {
		case types.StatusOpen:
			stats.OpenIssues++
		case types.StatusInProgress:
			stats.InProgressIssues++
		case types.StatusClosed:
			stats.ClosedIssues++
			if issue.ClosedAt != nil {
				leadTime += issue.ClosedAt.Sub(issue.CreatedAt)
				closedWithTimes++
			}
		}

		if issue.Status != types.StatusClosed {
			if len(snap.openBlockers(issue.ID)) > 0 {
				stats.BlockedIssues++
			} else if issue.Status == types.StatusOpen {
				stats.ReadyIssues++
			}
		}
	}

	if closedWithTimes > 0 {
		stats.AverageLeadTime = leadTime.Hours() / float64(closedWithTimes)
	}

	epics, err := c.EligibleEpics(ctx)
	if err != nil {
		return nil, err
	}
	for _, epic := range epics {
		if epic.EligibleForClose {
			stats.EpicsEligibleForClosure++
		}
	}

	return stats, nil
}
