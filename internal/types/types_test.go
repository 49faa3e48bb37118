package types

import (
	"strings"
	"testing"
	"time"
)

func validIssue() *Issue {
	now := time.Now()
	return &Issue{
		ID:        "spool-1",
		Title:     "Test issue",
		Status:    StatusOpen,
		Priority:  2,
		IssueType: TypeTask,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestComputeContentHash_Deterministic verifies identical content hashes
// identically regardless of ID and timestamps.
func TestComputeContentHash_Deterministic(t *testing.T) {
	a := validIssue()
	b := validIssue()
	b.ID = "other-99"
	b.CreatedAt = a.CreatedAt.Add(24 * time.Hour)
	b.UpdatedAt = b.CreatedAt

	if a.ComputeContentHash() != b.ComputeContentHash() {
		t.Error("hash should not depend on ID or timestamps")
	}
}

// TestComputeContentHash_FieldChanges verifies each substantive field
// changes the hash.
func TestComputeContentHash_FieldChanges(t *testing.T) {
	base := validIssue().ComputeContentHash()

	tests := []struct {
		name   string
		mutate func(*Issue)
	}{
		{"title", func(i *Issue) { i.Title = "Changed" }},
		{"description", func(i *Issue) { i.Description = "d" }},
		{"design", func(i *Issue) { i.Design = "d" }},
		{"acceptance_criteria", func(i *Issue) { i.AcceptanceCriteria = "a" }},
		{"notes", func(i *Issue) { i.Notes = "n" }},
		{"status", func(i *Issue) { i.Status = StatusInProgress }},
		{"priority", func(i *Issue) { i.Priority = 0 }},
		{"issue_type", func(i *Issue) { i.IssueType = TypeBug }},
		{"assignee", func(i *Issue) { i.Assignee = "alex" }},
		{"external_ref", func(i *Issue) { ref := "gh-9"; i.ExternalRef = &ref }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := validIssue()
			tt.mutate(issue)
			if issue.ComputeContentHash() == base {
				t.Errorf("changing %s did not change the hash", tt.name)
			}
		})
	}
}

// TestComputeContentHash_SeparatorAmbiguity verifies field boundaries are
// unambiguous: shifting text between adjacent fields changes the hash.
func TestComputeContentHash_SeparatorAmbiguity(t *testing.T) {
	a := validIssue()
	a.Title = "ab"
	a.Description = "c"

	b := validIssue()
	b.Title = "a"
	b.Description = "bc"

	if a.ComputeContentHash() == b.ComputeContentHash() {
		t.Error("field boundary shift produced the same hash")
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		mutate  func(*Issue)
		wantErr bool
	}{
		{"valid", func(i *Issue) {}, false},
		{"empty title", func(i *Issue) { i.Title = "" }, true},
		{"title too long", func(i *Issue) { i.Title = strings.Repeat("x", 501) }, true},
		{"title at limit", func(i *Issue) { i.Title = strings.Repeat("x", 500) }, false},
		{"priority too low", func(i *Issue) { i.Priority = -1 }, true},
		{"priority too high", func(i *Issue) { i.Priority = 5 }, true},
		{"bad status", func(i *Issue) { i.Status = "done" }, true},
		{"bad type", func(i *Issue) { i.IssueType = "story" }, true},
		{"closed without closed_at", func(i *Issue) { i.Status = StatusClosed }, true},
		{"closed with closed_at", func(i *Issue) { i.Status = StatusClosed; i.ClosedAt = &now }, false},
		{"open with closed_at", func(i *Issue) { i.ClosedAt = &now }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := validIssue()
			tt.mutate(issue)
			err := issue.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	issue := &Issue{ID: "spool-1", Title: "t"}
	issue.SetDefaults()

	if issue.Status != StatusOpen {
		t.Errorf("Status = %s, want open", issue.Status)
	}
	if issue.IssueType != TypeTask {
		t.Errorf("IssueType = %s, want task", issue.IssueType)
	}
	if issue.CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
	if !issue.UpdatedAt.Equal(issue.CreatedAt) {
		t.Error("UpdatedAt should default to CreatedAt")
	}
}

// TestSetDefaults_PreservesExisting verifies journal timestamps survive.
func TestSetDefaults_PreservesExisting(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issue := &Issue{ID: "spool-1", Title: "t", Status: StatusInProgress, CreatedAt: created}
	issue.SetDefaults()

	if issue.Status != StatusInProgress {
		t.Errorf("Status = %s, want in_progress", issue.Status)
	}
	if !issue.CreatedAt.Equal(created) {
		t.Error("CreatedAt was overwritten")
	}
}

func TestDependencyType_Constrains(t *testing.T) {
	tests := []struct {
		typ  DependencyType
		want bool
	}{
		{DepBlocks, true},
		{DepParentChild, true},
		{DepRelated, false},
		{DepDiscoveredFrom, false},
	}
	for _, tt := range tests {
		if got := tt.typ.Constrains(); got != tt.want {
			t.Errorf("%s.Constrains() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestSortPolicy_IsValid(t *testing.T) {
	for _, policy := range []SortPolicy{SortPolicyHybrid, SortPolicyPriority, SortPolicyOldest, ""} {
		if !policy.IsValid() {
			t.Errorf("%q should be valid", policy)
		}
	}
	if SortPolicy("newest").IsValid() {
		t.Error("unknown policy should be invalid")
	}
}
