package store

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/tracetower/pkg/metadata"
)

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.PutArtifactType(metadata.ArtifactType{ID: 10, Name: "Dataset"})
	s.PutArtifactType(metadata.ArtifactType{ID: 11, Name: "Model"})
	s.PutExecutionType(metadata.ExecutionType{ID: 20, Name: "Train"})
	s.PutContextType(metadata.ContextType{ID: 30, Name: "Pipeline"})

	s.PutArtifact(metadata.Artifact{
		ID: 1, TypeID: 10, Name: "train-split", URI: "s3://data/train.csv",
		CreateTime: time.UnixMilli(1000), UpdateTime: time.UnixMilli(1000),
	})
	s.PutArtifact(metadata.Artifact{
		ID: 2, TypeID: 10, Name: "test-split", URI: "s3://data/test.csv",
		CreateTime: time.UnixMilli(2000), UpdateTime: time.UnixMilli(5000),
	})
	s.PutArtifact(metadata.Artifact{
		ID: 3, TypeID: 11, Name: "model-v1",
		CreateTime: time.UnixMilli(3000), UpdateTime: time.UnixMilli(3000),
	})

	s.PutExecution(metadata.Execution{ID: 1, TypeID: 20, Name: "train-run", CreateTime: time.UnixMilli(1500)})
	s.PutContext(metadata.Context{ID: 1, TypeID: 30, Name: "run-2024-01"})
	s.Attribute(1, 3)
	s.Associate(1, 1)

	s.PutEvent(metadata.Event{ArtifactID: 1, ExecutionID: 1, Type: metadata.EventTypeInput, CreateTime: time.UnixMilli(1600)})
	s.PutEvent(metadata.Event{ArtifactID: 3, ExecutionID: 1, Type: metadata.EventTypeOutput, CreateTime: time.UnixMilli(1700)})
	return s
}

func TestMemoryStore_GetArtifactsFilters(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		query   ArtifactQuery
		wantIDs []metadata.ArtifactID
	}{
		{"all", ArtifactQuery{Ascending: true}, []metadata.ArtifactID{1, 2, 3}},
		{"by id", ArtifactQuery{IDs: []metadata.ArtifactID{2}}, []metadata.ArtifactID{2}},
		{"by type", ArtifactQuery{TypeName: "Model"}, []metadata.ArtifactID{3}},
		{"by name", ArtifactQuery{Name: "train-split"}, []metadata.ArtifactID{1}},
		{"by pattern", ArtifactQuery{TypeName: "Dataset", NamePattern: "%-split", Ascending: true}, []metadata.ArtifactID{1, 2}},
		{"by uri", ArtifactQuery{URI: "s3://data/test.csv"}, []metadata.ArtifactID{2}},
		{"by context", ArtifactQuery{ContextID: 1}, []metadata.ArtifactID{3}},
		{"by ctime", ArtifactQuery{CreateTime: TimeRange{Start: time.UnixMilli(1500), End: time.UnixMilli(2500)}}, []metadata.ArtifactID{2}},
		{"no match", ArtifactQuery{Name: "missing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetArtifacts(ctx, tt.query)
			if err != nil {
				t.Fatalf("GetArtifacts() error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("GetArtifacts() returned %d artifacts, want %d", len(got), len(tt.wantIDs))
			}
			for i, a := range got {
				if a.ID != tt.wantIDs[i] {
					t.Errorf("artifact[%d].ID = %d, want %d", i, a.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestMemoryStore_Ordering(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	got, err := s.GetArtifacts(ctx, ArtifactQuery{OrderBy: OrderByUpdateTime, Ascending: false})
	if err != nil {
		t.Fatalf("GetArtifacts() error: %v", err)
	}
	want := []metadata.ArtifactID{2, 3, 1}
	for i, a := range got {
		if a.ID != want[i] {
			t.Errorf("artifact[%d].ID = %d, want %d", i, a.ID, want[i])
		}
	}

	got, err = s.GetArtifacts(ctx, ArtifactQuery{OrderBy: OrderByName, Ascending: true})
	if err != nil {
		t.Fatalf("GetArtifacts() error: %v", err)
	}
	want = []metadata.ArtifactID{3, 2, 1} // model-v1, test-split, train-split
	for i, a := range got {
		if a.ID != want[i] {
			t.Errorf("artifact[%d].ID = %d, want %d", i, a.ID, want[i])
		}
	}
}

func TestMemoryStore_Paging(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	tests := []struct {
		name    string
		paging  Paging
		wantIDs []metadata.ArtifactID
	}{
		{"limit", Paging{Limit: 2}, []metadata.ArtifactID{1, 2}},
		{"offset", Paging{Offset: 1}, []metadata.ArtifactID{2, 3}},
		{"both", Paging{Limit: 1, Offset: 1}, []metadata.ArtifactID{2}},
		{"offset past end", Paging{Offset: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetArtifacts(ctx, ArtifactQuery{Ascending: true, Paging: tt.paging})
			if err != nil {
				t.Fatalf("GetArtifacts() error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("GetArtifacts() returned %d artifacts, want %d", len(got), len(tt.wantIDs))
			}
			for i, a := range got {
				if a.ID != tt.wantIDs[i] {
					t.Errorf("artifact[%d].ID = %d, want %d", i, a.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestMemoryStore_CountIgnoresPaging(t *testing.T) {
	s := seededStore()
	n, err := s.CountArtifacts(context.Background(), ArtifactQuery{Paging: Paging{Limit: 1}})
	if err != nil {
		t.Fatalf("CountArtifacts() error: %v", err)
	}
	if n != 3 {
		t.Errorf("CountArtifacts() = %d, want 3", n)
	}
}

func TestMemoryStore_GetExecutionsByContext(t *testing.T) {
	s := seededStore()
	got, err := s.GetExecutions(context.Background(), ExecutionQuery{ContextID: 1})
	if err != nil {
		t.Fatalf("GetExecutions() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("GetExecutions(context=1) = %v, want execution 1", got)
	}
}

func TestMemoryStore_GetContextsByMember(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	byArtifact, err := s.GetContexts(ctx, ContextQuery{ArtifactID: 3})
	if err != nil {
		t.Fatalf("GetContexts() error: %v", err)
	}
	if len(byArtifact) != 1 || byArtifact[0].ID != 1 {
		t.Errorf("GetContexts(artifact=3) = %v, want context 1", byArtifact)
	}

	byExecution, err := s.GetContexts(ctx, ContextQuery{ExecutionID: 1})
	if err != nil {
		t.Fatalf("GetContexts() error: %v", err)
	}
	if len(byExecution) != 1 || byExecution[0].ID != 1 {
		t.Errorf("GetContexts(execution=1) = %v, want context 1", byExecution)
	}

	none, err := s.GetContexts(ctx, ContextQuery{ArtifactID: 1})
	if err != nil {
		t.Fatalf("GetContexts() error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("GetContexts(artifact=1) = %v, want none", none)
	}
}

func TestMemoryStore_GetEvents(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	asc, err := s.GetEvents(ctx, EventQuery{ExecutionID: 1, Ascending: true})
	if err != nil {
		t.Fatalf("GetEvents() error: %v", err)
	}
	if len(asc) != 2 || asc[0].ArtifactID != 1 || asc[1].ArtifactID != 3 {
		t.Errorf("GetEvents(asc) = %v, want input then output", asc)
	}

	desc, err := s.GetEvents(ctx, EventQuery{ExecutionID: 1})
	if err != nil {
		t.Fatalf("GetEvents() error: %v", err)
	}
	if len(desc) != 2 || desc[0].ArtifactID != 3 {
		t.Errorf("GetEvents(desc) = %v, want newest first", desc)
	}

	byArtifact, err := s.GetEvents(ctx, EventQuery{ArtifactID: 1})
	if err != nil {
		t.Fatalf("GetEvents() error: %v", err)
	}
	if len(byArtifact) != 1 {
		t.Errorf("GetEvents(artifact=1) returned %d events, want 1", len(byArtifact))
	}
}

func TestMemoryStore_GetTypes(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	all, err := s.GetArtifactTypes(ctx, nil)
	if err != nil {
		t.Fatalf("GetArtifactTypes() error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetArtifactTypes(nil) returned %d types, want 2", len(all))
	}

	// Unknown IDs are skipped, not errors.
	some, err := s.GetArtifactTypes(ctx, []metadata.TypeID{11, 99})
	if err != nil {
		t.Fatalf("GetArtifactTypes() error: %v", err)
	}
	if len(some) != 1 || some[0].Name != "Model" {
		t.Errorf("GetArtifactTypes([11,99]) = %v, want just Model", some)
	}
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"%", "anything", true},
		{"%", "", true},
		{"train%", "train-split", true},
		{"train%", "test-split", false},
		{"%split", "train-split", true},
		{"%-s%", "train-split", true},
		{"t_ain-split", "train-split", true},
		{"t_ain-split", "taain-split", true},
		{"t_ain-split", "tain-split", false},
		{"exact", "exact", true},
		{"exact", "exact!", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tt := range tests {
		if got := likeMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}
