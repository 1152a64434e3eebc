package lineage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

func buildTrainingGraph(t *testing.T, urlTemplate string) *Graph {
	t.Helper()
	g, err := Build(context.Background(), trainingStore(), ArtifactNodeID(1), PolicyLineage, Options{
		URLTemplate: urlTemplate,
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return g
}

func TestWriteDOT_Structure(t *testing.T) {
	g := buildTrainingGraph(t, "")
	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}

	for _, want := range []string{
		"digraph lineage {",
		"concentrate=true;",
		`"1@artifact" [label="1",shape="ellipse",style="bold,dashed,filled"`,
		`"2@artifact" [label="2",shape="ellipse",style="solid,filled"`,
		`"1@execution" [label="1",shape="box",style="solid,filled"`,
		`"1@artifact" -> "1@execution" [label=""];`,
		`"1@execution" -> "2@artifact" [label="[\"model\"]"];`,
		"subgraph cluster_artifact_legend {",
		`label = "Artifact Legend";`,
		"subgraph cluster_execution_legend {",
		`label = "Execution Legend";`,
		`"Dataset"[shape="ellipse",style=filled`,
		`"Model"[shape="ellipse",style=filled`,
		`"Train"[shape="box",style=filled`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestWriteDOT_LegendChainInvisible(t *testing.T) {
	g := buildTrainingGraph(t, "")
	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}
	if !strings.Contains(dot, `"Dataset" -> "Model"[penwidth=0,arrowhead=none];`) {
		t.Errorf("DOT() missing invisible legend chain:\n%s", dot)
	}
	// The lone execution type has nothing to chain to.
	if strings.Contains(dot, `"Train" ->`) {
		t.Errorf("DOT() chained a single-entry legend:\n%s", dot)
	}
}

func TestWriteDOT_URLTemplate(t *testing.T) {
	g := buildTrainingGraph(t, "https://mlmd.example.com/{{.node_type}}/{{.id}}")
	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}
	for _, want := range []string{
		`URL="https://mlmd.example.com/artifact/1"`,
		`URL="https://mlmd.example.com/artifact/2"`,
		`URL="https://mlmd.example.com/execution/1"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestWriteDOT_NoTemplateEmptyURL(t *testing.T) {
	g := buildTrainingGraph(t, "")
	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}
	if !strings.Contains(dot, `URL=""`) {
		t.Errorf("DOT() without a template should emit empty URLs:\n%s", dot)
	}
}

func TestWriteDOT_Deterministic(t *testing.T) {
	first, err := buildTrainingGraph(t, "").DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := buildTrainingGraph(t, "").DOT()
		if err != nil {
			t.Fatalf("DOT() error: %v", err)
		}
		if got != first {
			t.Fatal("DOT() output varies across identical builds")
		}
	}
}

func TestWriteDOT_FeedbackPair(t *testing.T) {
	// One artifact both consumed and produced by the same execution. The two
	// events differ by type, so both survive dedup and render as two edges.
	s := store.NewMemoryStore()
	s.PutArtifactType(metadata.ArtifactType{ID: 10, Name: "Dataset"})
	s.PutExecutionType(metadata.ExecutionType{ID: 20, Name: "Train"})
	s.PutArtifact(metadata.Artifact{ID: 1, TypeID: 10})
	s.PutExecution(metadata.Execution{ID: 10, TypeID: 20})
	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 10,
		Type:       metadata.EventTypeInput,
		CreateTime: time.UnixMilli(100),
	})
	s.PutEvent(metadata.Event{
		ArtifactID: 1, ExecutionID: 10,
		Type:       metadata.EventTypeOutput,
		CreateTime: time.UnixMilli(100),
	})

	g, err := Build(context.Background(), s, ArtifactNodeID(1), PolicyLineage, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(g.Nodes()) != 2 || len(g.Edges()) != 2 {
		t.Fatalf("Build() = %d nodes, %d edges, want 2 and 2", len(g.Nodes()), len(g.Edges()))
	}

	dot, err := g.DOT()
	if err != nil {
		t.Fatalf("DOT() error: %v", err)
	}
	if got := strings.Count(dot, `@artifact" [label=`) + strings.Count(dot, `@execution" [label=`); got != 2 {
		t.Errorf("DOT() has %d node statements, want 2:\n%s", got, dot)
	}
	if !strings.Contains(dot, `"1@artifact" -> "10@execution" [label=""];`) {
		t.Errorf("DOT() missing the input edge:\n%s", dot)
	}
	if !strings.Contains(dot, `"10@execution" -> "1@artifact" [label=""];`) {
		t.Errorf("DOT() missing the output edge:\n%s", dot)
	}
	if got := strings.Count(dot, `"Dataset"[shape=`) + strings.Count(dot, `"Train"[shape=`); got != 2 {
		t.Errorf("DOT() has %d legend entries, want one per kind:\n%s", got, dot)
	}
	if strings.Contains(dot, "penwidth=0") {
		t.Errorf("DOT() chained single-entry legends:\n%s", dot)
	}
}

func TestGraph_TypesSorted(t *testing.T) {
	g := buildTrainingGraph(t, "")
	types := g.Types()
	for i := 1; i < len(types); i++ {
		if types[i-1].ID() >= types[i].ID() {
			t.Errorf("Types() not in ascending ID order: %d before %d", types[i-1].ID(), types[i].ID())
		}
	}
}
