package lineage

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// Graph is the one-shot result of a discovery: the origin, every reachable
// node and edge, the type table of all node types present, and the color
// assigned to each type. A Graph is built once, rendered, and discarded;
// it is never mutated after Build returns.
type Graph struct {
	origin NodeID
	nodes  map[NodeID]Node
	edges  []Edge
	types  map[metadata.TypeID]Type
	colors map[metadata.TypeID]Color

	urlTemplate *URLTemplate
}

// Options configures graph construction.
type Options struct {
	// URLTemplate, when non-empty, is compiled once and rendered per node
	// into the DOT URL attribute. See [ParseURLTemplate] for the variables.
	URLTemplate string
}

// Build discovers the graph reachable from origin under policy and resolves
// its type table and colors. Types are fetched with two batch queries (one
// per node kind), never per node.
func Build(ctx context.Context, s store.Store, origin NodeID, policy Policy, opts Options) (*Graph, error) {
	nodes, edges, err := Discover(ctx, s, origin, policy)
	if err != nil {
		return nil, err
	}
	return newGraph(ctx, s, origin, nodes, edges, opts)
}

func newGraph(ctx context.Context, s store.Store, origin NodeID, nodes map[NodeID]Node, edges []Edge, opts Options) (*Graph, error) {
	types, err := resolveTypes(ctx, s, nodes)
	if err != nil {
		return nil, err
	}

	var urlTemplate *URLTemplate
	if opts.URLTemplate != "" {
		urlTemplate, err = ParseURLTemplate(opts.URLTemplate)
		if err != nil {
			return nil, err
		}
	}

	return &Graph{
		origin:      origin,
		nodes:       nodes,
		edges:       edges,
		types:       types,
		colors:      assignColors(types),
		urlTemplate: urlTemplate,
	}, nil
}

// resolveTypes batch-fetches the type records for the distinct type IDs of
// all discovered nodes, partitioned by kind.
func resolveTypes(ctx context.Context, s store.Store, nodes map[NodeID]Node) (map[metadata.TypeID]Type, error) {
	var artifactTypeIDs, executionTypeIDs []metadata.TypeID
	for _, node := range nodes {
		if node.Artifact != nil {
			artifactTypeIDs = appendUnique(artifactTypeIDs, node.Artifact.TypeID)
		} else {
			executionTypeIDs = appendUnique(executionTypeIDs, node.Execution.TypeID)
		}
	}

	types := make(map[metadata.TypeID]Type, len(artifactTypeIDs)+len(executionTypeIDs))
	if len(artifactTypeIDs) > 0 {
		artifactTypes, err := s.GetArtifactTypes(ctx, artifactTypeIDs)
		if err != nil {
			return nil, fmt.Errorf("get artifact types: %w", err)
		}
		for i := range artifactTypes {
			types[artifactTypes[i].ID] = Type{Artifact: &artifactTypes[i]}
		}
	}
	if len(executionTypeIDs) > 0 {
		executionTypes, err := s.GetExecutionTypes(ctx, executionTypeIDs)
		if err != nil {
			return nil, fmt.Errorf("get execution types: %w", err)
		}
		for i := range executionTypes {
			types[executionTypes[i].ID] = Type{Execution: &executionTypes[i]}
		}
	}
	return types, nil
}

// Origin returns the NodeID discovery started from.
func (g *Graph) Origin() NodeID { return g.origin }

// Nodes returns the discovered nodes sorted by NodeID.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b Node) int { return a.ID().Compare(b.ID()) })
	return nodes
}

// Edges returns the discovered edges in deterministic order.
func (g *Graph) Edges() []Edge { return g.edges }

// Types returns the type records present in the graph, sorted by type ID.
func (g *Graph) Types() []Type {
	ids := make([]metadata.TypeID, 0, len(g.types))
	for id := range g.types {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	types := make([]Type, 0, len(ids))
	for _, id := range ids {
		types = append(types, g.types[id])
	}
	return types
}

// Color returns the fill color assigned to a type.
func (g *Graph) Color(id metadata.TypeID) Color { return g.colors[id] }

// sortedEdges flattens the deduplicated edge set into a stable order.
func sortedEdges(edges map[string]Edge) []Edge {
	keys := make([]string, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, edges[k])
	}
	return out
}

func appendUnique(ids []metadata.TypeID, id metadata.TypeID) []metadata.TypeID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
