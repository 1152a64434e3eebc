// Package lineage builds and renders lineage graphs over an ML metadata
// store: the transitive closure of artifacts and executions reachable from
// an origin record through event edges, colored by type and serialized as
// a Graphviz DOT document with per-kind legends.
package lineage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/matzehuels/tracetower/pkg/metadata"
)

// NodeKind distinguishes the two vertex spaces of the lineage graph.
// Artifact and execution IDs are only unique within their own kind, so a
// bare integer can never serve as a graph key.
type NodeKind int

const (
	KindArtifact NodeKind = iota
	KindExecution
)

// String returns "artifact" or "execution".
func (k NodeKind) String() string {
	if k == KindExecution {
		return "execution"
	}
	return "artifact"
}

// NodeID is the graph vertex key: a record kind plus its numeric ID.
// NodeID is comparable and usable as a map key.
type NodeID struct {
	Kind NodeKind
	ID   int64
}

// ArtifactNodeID returns the NodeID of an artifact.
func ArtifactNodeID(id metadata.ArtifactID) NodeID {
	return NodeID{Kind: KindArtifact, ID: int64(id)}
}

// ExecutionNodeID returns the NodeID of an execution.
func ExecutionNodeID(id metadata.ExecutionID) NodeID {
	return NodeID{Kind: KindExecution, ID: int64(id)}
}

// String returns the DOT identifier of the node, e.g. "7@artifact".
func (id NodeID) String() string {
	return fmt.Sprintf("%d@%s", id.ID, id.Kind)
}

// Compare orders NodeIDs by kind, then numeric ID.
func (id NodeID) Compare(other NodeID) int {
	if id.Kind != other.Kind {
		if id.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch {
	case id.ID < other.ID:
		return -1
	case id.ID > other.ID:
		return 1
	default:
		return 0
	}
}

// Node wraps exactly one artifact or execution record fetched from the
// store. Exactly one of the two fields is non-nil.
type Node struct {
	Artifact  *metadata.Artifact
	Execution *metadata.Execution
}

// ID returns the node's graph key.
func (n Node) ID() NodeID {
	if n.Execution != nil {
		return ExecutionNodeID(n.Execution.ID)
	}
	return ArtifactNodeID(n.Artifact.ID)
}

// Label returns the stringified numeric ID shown inside the node.
func (n Node) Label() string {
	return strconv.FormatInt(n.ID().ID, 10)
}

// Shape returns the DOT shape distinguishing the node kind at a glance:
// ellipse for artifacts, box for executions.
func (n Node) Shape() string {
	if n.Execution != nil {
		return "box"
	}
	return "ellipse"
}

// Style returns the DOT style attribute, highlighting the origin node.
func (n Node) Style(origin NodeID) string {
	if n.ID() == origin {
		return "bold,dashed,filled"
	}
	return "solid,filled"
}

// TypeID returns the type of the wrapped record.
func (n Node) TypeID() metadata.TypeID {
	if n.Execution != nil {
		return n.Execution.TypeID
	}
	return n.Artifact.TypeID
}

// Tooltip returns the pretty-printed JSON projection of the wrapped record,
// with the type name resolved through types.
func (n Node) Tooltip(types map[metadata.TypeID]Type) (string, error) {
	var record any
	if n.Execution != nil {
		record = metadata.NewExecutionRecord(types[n.Execution.TypeID].Name(), *n.Execution)
	} else {
		record = metadata.NewArtifactRecord(types[n.Artifact.TypeID].Name(), *n.Artifact)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode tooltip for %s: %w", n.ID(), err)
	}
	return string(data), nil
}

// Edge wraps exactly one event record. Direction is derived from the event
// type, not stored: input-class events flow artifact → execution and
// output-class events flow execution → artifact.
type Edge struct {
	Event metadata.Event
}

// From returns the source endpoint per the event-class direction rule.
func (e Edge) From() NodeID {
	if e.Event.Type.IsInput() {
		return ArtifactNodeID(e.Event.ArtifactID)
	}
	return ExecutionNodeID(e.Event.ExecutionID)
}

// To returns the target endpoint per the event-class direction rule.
func (e Edge) To() NodeID {
	if e.Event.Type.IsInput() {
		return ExecutionNodeID(e.Event.ExecutionID)
	}
	return ArtifactNodeID(e.Event.ArtifactID)
}

// Label returns the JSON-encoded event path ("" when the path is empty).
// Steps encode as bare integers or strings, e.g. `[0,"model"]`.
func (e Edge) Label() (string, error) {
	if len(e.Event.Path) == 0 {
		return "", nil
	}
	data, err := json.Marshal(e.Event.Path)
	if err != nil {
		return "", fmt.Errorf("encode path of event %s -> %s: %w", e.From(), e.To(), err)
	}
	return string(data), nil
}

// key returns the deduplication identity of the edge: the full event tuple.
// Two events with identical fields collapse into one edge.
func (e Edge) key() string {
	path, _ := json.Marshal(e.Event.Path)
	return fmt.Sprintf("%d|%d|%d|%d|%s",
		e.Event.ArtifactID, e.Event.ExecutionID, e.Event.Type,
		e.Event.CreateTime.UnixMilli(), path)
}

// Type is the tagged union over artifact and execution type records,
// keyed by TypeID in the graph's type table. Exactly one field is non-nil.
type Type struct {
	Artifact  *metadata.ArtifactType
	Execution *metadata.ExecutionType
}

// ID returns the type's ID.
func (t Type) ID() metadata.TypeID {
	if t.Execution != nil {
		return t.Execution.ID
	}
	if t.Artifact != nil {
		return t.Artifact.ID
	}
	return 0
}

// Name returns the type's name, or "" for the zero Type.
func (t Type) Name() string {
	if t.Execution != nil {
		return t.Execution.Name
	}
	if t.Artifact != nil {
		return t.Artifact.Name
	}
	return ""
}

// Shape returns the legend shape of the type's kind: ellipse for artifact
// types, box for execution types.
func (t Type) Shape() string {
	if t.Execution != nil {
		return "box"
	}
	return "ellipse"
}
