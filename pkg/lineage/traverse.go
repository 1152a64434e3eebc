package lineage

import (
	"context"
	"fmt"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// Policy selects which events count as adjacent during discovery.
type Policy int

const (
	// PolicyLineage expands the full ancestry of the origin: input-class
	// events around artifacts, output-class events around executions,
	// recursing arbitrarily deep in both directions.
	PolicyLineage Policy = iota

	// PolicyIO bounds the result to the one-hop inputs and outputs of a
	// single execution: every event touching an execution is adjacent,
	// and artifacts are leaves.
	PolicyIO
)

// Discover performs a worklist reachability search from origin, returning
// every reachable node keyed by ID and the deduplicated set of edges
// connecting them. Both endpoints of every kept edge are guaranteed to be
// present in the node map.
//
// The search is strictly sequential: the visited guard doubles as the
// termination proof on cyclic stores, so each node is fetched at most once.
// A missing record anywhere aborts the whole discovery with a not-found
// error; no partial result is returned.
func Discover(ctx context.Context, s store.Store, origin NodeID, policy Policy) (map[NodeID]Node, []Edge, error) {
	worklist := []NodeID{origin}
	nodes := make(map[NodeID]Node)
	edges := make(map[string]Edge)

	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if _, ok := nodes[id]; ok {
			continue
		}

		node, err := fetchNode(ctx, s, id)
		if err != nil {
			return nil, nil, err
		}
		nodes[id] = node

		adjacent, err := adjacentEdges(ctx, s, id, policy)
		if err != nil {
			return nil, nil, err
		}
		for _, edge := range adjacent {
			worklist = append(worklist, edge.From(), edge.To())
			edges[edge.key()] = edge
		}
	}

	return nodes, sortedEdges(edges), nil
}

// fetchNode resolves id to exactly one record.
func fetchNode(ctx context.Context, s store.Store, id NodeID) (Node, error) {
	switch id.Kind {
	case KindArtifact:
		artifacts, err := s.GetArtifacts(ctx, store.ArtifactQuery{
			IDs: []metadata.ArtifactID{metadata.ArtifactID(id.ID)},
		})
		if err != nil {
			return Node{}, fmt.Errorf("get artifact %d: %w", id.ID, err)
		}
		if len(artifacts) != 1 {
			return Node{}, fmt.Errorf("no such artifact: %d: %w", id.ID, store.ErrNotFound)
		}
		return Node{Artifact: &artifacts[0]}, nil
	case KindExecution:
		executions, err := s.GetExecutions(ctx, store.ExecutionQuery{
			IDs: []metadata.ExecutionID{metadata.ExecutionID(id.ID)},
		})
		if err != nil {
			return Node{}, fmt.Errorf("get execution %d: %w", id.ID, err)
		}
		if len(executions) != 1 {
			return Node{}, fmt.Errorf("no such execution: %d: %w", id.ID, store.ErrNotFound)
		}
		return Node{Execution: &executions[0]}, nil
	default:
		return Node{}, fmt.Errorf("unknown node kind %d", id.Kind)
	}
}

// adjacentEdges returns the events treated as edges around id under the
// given policy. Events of unknown type carry no direction and are never
// edges.
func adjacentEdges(ctx context.Context, s store.Store, id NodeID, policy Policy) ([]Edge, error) {
	switch policy {
	case PolicyLineage:
		return lineageEdges(ctx, s, id)
	case PolicyIO:
		return ioEdges(ctx, s, id)
	default:
		return nil, fmt.Errorf("unknown traversal policy %d", policy)
	}
}

func lineageEdges(ctx context.Context, s store.Store, id NodeID) ([]Edge, error) {
	switch id.Kind {
	case KindArtifact:
		events, err := s.GetEvents(ctx, store.EventQuery{ArtifactID: metadata.ArtifactID(id.ID)})
		if err != nil {
			return nil, fmt.Errorf("get events of artifact %d: %w", id.ID, err)
		}
		return filterEdges(events, metadata.EventType.IsInput), nil
	case KindExecution:
		events, err := s.GetEvents(ctx, store.EventQuery{ExecutionID: metadata.ExecutionID(id.ID)})
		if err != nil {
			return nil, fmt.Errorf("get events of execution %d: %w", id.ID, err)
		}
		return filterEdges(events, metadata.EventType.IsOutput), nil
	default:
		return nil, fmt.Errorf("unknown node kind %d", id.Kind)
	}
}

func ioEdges(ctx context.Context, s store.Store, id NodeID) ([]Edge, error) {
	// Artifacts are leaves under the I/O policy.
	if id.Kind != KindExecution {
		return nil, nil
	}
	events, err := s.GetEvents(ctx, store.EventQuery{ExecutionID: metadata.ExecutionID(id.ID)})
	if err != nil {
		return nil, fmt.Errorf("get events of execution %d: %w", id.ID, err)
	}
	return filterEdges(events, func(t metadata.EventType) bool {
		return t.IsInput() || t.IsOutput()
	}), nil
}

func filterEdges(events []metadata.Event, keep func(metadata.EventType) bool) []Edge {
	var edges []Edge
	for _, ev := range events {
		if keep(ev.Type) {
			edges = append(edges, Edge{Event: ev})
		}
	}
	return edges
}
