package lineage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// trainingStore builds a minimal two-step pipeline:
//
//	artifact 1 (Dataset) -> execution 1 (Train) -> artifact 2 (Model)
func trainingStore() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.PutArtifactType(metadata.ArtifactType{ID: 10, Name: "Dataset"})
	s.PutArtifactType(metadata.ArtifactType{ID: 11, Name: "Model"})
	s.PutExecutionType(metadata.ExecutionType{ID: 20, Name: "Train"})

	s.PutArtifact(metadata.Artifact{ID: 1, TypeID: 10, URI: "s3://data/train.csv"})
	s.PutArtifact(metadata.Artifact{ID: 2, TypeID: 11, URI: "s3://models/m1"})
	s.PutExecution(metadata.Execution{ID: 1, TypeID: 20, LastKnownState: metadata.ExecutionStateComplete})

	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 1,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(100),
	})
	s.PutEvent(metadata.Event{
		ArtifactID: 2, ExecutionID: 1,
		Type:       metadata.EventTypeOutput,
		Path:       []metadata.EventStep{metadata.KeyStep("model")},
		CreateTime: time.UnixMilli(200),
	})
	return s
}

func TestDiscover_LineageFromArtifact(t *testing.T) {
	s := trainingStore()

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	want := []NodeID{ArtifactNodeID(1), ArtifactNodeID(2), ExecutionNodeID(1)}
	if len(nodes) != len(want) {
		t.Fatalf("Discover() found %d nodes, want %d", len(nodes), len(want))
	}
	for _, id := range want {
		if _, ok := nodes[id]; !ok {
			t.Errorf("Discover() missing node %s", id)
		}
	}
	if len(edges) != 2 {
		t.Errorf("Discover() found %d edges, want 2", len(edges))
	}
}

func TestDiscover_EdgeEndpointsPresent(t *testing.T) {
	s := trainingStore()

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(edges) == 0 {
		t.Fatal("Discover() found no edges")
	}
	for _, e := range edges {
		if _, ok := nodes[e.From()]; !ok {
			t.Errorf("edge %s -> %s: source not in node set", e.From(), e.To())
		}
		if _, ok := nodes[e.To()]; !ok {
			t.Errorf("edge %s -> %s: target not in node set", e.From(), e.To())
		}
	}
}

func TestDiscover_EdgeDirection(t *testing.T) {
	s := trainingStore()

	_, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	for _, e := range edges {
		if e.Event.Type.IsInput() {
			if e.From().Kind != KindArtifact || e.To().Kind != KindExecution {
				t.Errorf("input edge %s -> %s, want artifact -> execution", e.From(), e.To())
			}
		} else {
			if e.From().Kind != KindExecution || e.To().Kind != KindArtifact {
				t.Errorf("output edge %s -> %s, want execution -> artifact", e.From(), e.To())
			}
		}
	}
}

func TestDiscover_TerminatesOnCycle(t *testing.T) {
	// Retraining loop: model 2 feeds execution 2, which rewrites dataset 1.
	s := trainingStore()
	s.PutExecution(metadata.Execution{ID: 2, TypeID: 20})
	s.PutEvent(metadata.Event{
		ArtifactID: 2, ExecutionID: 2,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(300),
	})
	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 2,
		Type:       metadata.EventTypeOutput,
		CreateTime: time.UnixMilli(400),
	})

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(nodes) != 4 {
		t.Errorf("Discover() found %d nodes, want 4", len(nodes))
	}
	if len(edges) != 4 {
		t.Errorf("Discover() found %d edges, want 4", len(edges))
	}
}

func TestDiscover_DuplicateEventsCollapse(t *testing.T) {
	s := trainingStore()
	// Same tuple twice: identical artifact, execution, type, time, path.
	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 1,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(100),
	})

	_, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(edges) != 2 {
		t.Errorf("Discover() found %d edges, want 2 after dedup", len(edges))
	}
}

func TestDiscover_UnknownEventsExcluded(t *testing.T) {
	s := trainingStore()
	s.PutArtifact(metadata.Artifact{ID: 3, TypeID: 10})
	s.PutEvent(metadata.Event{
		ArtifactID: 3, ExecutionID: 1,
		Type:       metadata.EventTypeUnknown,
		CreateTime: time.UnixMilli(500),
	})

	nodes, _, err := Discover(context.Background(), s, ExecutionNodeID(1), PolicyIO)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if _, ok := nodes[ArtifactNodeID(3)]; ok {
		t.Error("artifact linked only by an unknown event should not be reachable")
	}
}

func TestDiscover_IOBoundsToOneHop(t *testing.T) {
	// Chain two executions: under I/O only the origin execution expands.
	s := trainingStore()
	s.PutArtifact(metadata.Artifact{ID: 3, TypeID: 11})
	s.PutExecution(metadata.Execution{ID: 2, TypeID: 20})
	s.PutEvent(metadata.Event{
		ArtifactID: 2, ExecutionID: 2,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(300),
	})
	s.PutEvent(metadata.Event{
		ArtifactID: 3, ExecutionID: 2,
		Type:       metadata.EventTypeOutput,
		CreateTime: time.UnixMilli(400),
	})

	nodes, edges, err := Discover(context.Background(), s, ExecutionNodeID(1), PolicyIO)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	want := []NodeID{ArtifactNodeID(1), ArtifactNodeID(2), ExecutionNodeID(1)}
	if len(nodes) != len(want) {
		t.Fatalf("Discover() found %d nodes, want %d", len(nodes), len(want))
	}
	for _, id := range want {
		if _, ok := nodes[id]; !ok {
			t.Errorf("Discover() missing node %s", id)
		}
	}
	if _, ok := nodes[ExecutionNodeID(2)]; ok {
		t.Error("I/O discovery crossed an artifact into a second execution")
	}
	if len(edges) != 2 {
		t.Errorf("Discover() found %d edges, want 2", len(edges))
	}
}

func TestDiscover_LineageFromLeafArtifact(t *testing.T) {
	// The model was only ever produced, never consumed. Around artifacts
	// lineage expands input-class events only, so the model's output event
	// does not lead back to the training run.
	s := trainingStore()

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(2), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("Discover() found %d nodes, want just the origin", len(nodes))
	}
	if len(edges) != 0 {
		t.Errorf("Discover() found %d edges, want 0", len(edges))
	}
}

func TestDiscover_LineageFansOutToAllConsumers(t *testing.T) {
	// Dataset 1 feeds a second training run. Lineage from the dataset must
	// reach both runs and everything they produced.
	s := trainingStore()
	s.PutArtifact(metadata.Artifact{ID: 3, TypeID: 11})
	s.PutExecution(metadata.Execution{ID: 2, TypeID: 20})
	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 2,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(300),
	})
	s.PutEvent(metadata.Event{
		ArtifactID: 3, ExecutionID: 2,
		Type:       metadata.EventTypeOutput,
		CreateTime: time.UnixMilli(400),
	})

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(nodes) != 5 {
		t.Errorf("Discover() found %d nodes, want 5", len(nodes))
	}
	if len(edges) != 4 {
		t.Errorf("Discover() found %d edges, want 4", len(edges))
	}
}

func TestDiscover_OriginNotFound(t *testing.T) {
	s := trainingStore()

	_, _, err := Discover(context.Background(), s, ArtifactNodeID(99), PolicyLineage)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Discover() error = %v, want ErrNotFound", err)
	}

	_, _, err = Discover(context.Background(), s, ExecutionNodeID(99), PolicyIO)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Discover() error = %v, want ErrNotFound", err)
	}
}

func TestDiscover_SingleNodeGraph(t *testing.T) {
	s := store.NewMemoryStore()
	s.PutArtifactType(metadata.ArtifactType{ID: 10, Name: "Dataset"})
	s.PutArtifact(metadata.Artifact{ID: 1, TypeID: 10})

	nodes, edges, err := Discover(context.Background(), s, ArtifactNodeID(1), PolicyLineage)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(nodes) != 1 || len(edges) != 0 {
		t.Errorf("Discover() = %d nodes, %d edges, want 1 node and no edges", len(nodes), len(edges))
	}
}
