package lineage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
)

// WriteDOT serializes the graph as a Graphviz DOT document: one statement
// per node and edge, plus one legend subgraph per node kind listing every
// type present with its fill color. All attribute values are quoted with
// Go string-literal escaping, which covers DOT's quote and backslash rules.
//
// Legend entries are chained with invisible arrowless edges in ascending
// type-ID order to force a linear layout; the chain has no semantic
// meaning.
func (g *Graph) WriteDOT(w io.Writer) error {
	d := &dotWriter{w: w}

	d.printf("digraph lineage {\n")
	d.printf("  concentrate=true;\n")

	for _, node := range g.Nodes() {
		tooltip, err := node.Tooltip(g.types)
		if err != nil {
			return err
		}
		url, err := g.urlTemplate.Render(node.ID())
		if err != nil {
			return err
		}
		d.printf("  %q [label=%q,shape=%q,style=%q,tooltip=%q,fillcolor=%q,URL=%q];\n",
			node.ID().String(), node.Label(), node.Shape(), node.Style(g.origin),
			tooltip, g.Color(node.TypeID()).Hex(), url)
	}

	for _, edge := range g.edges {
		label, err := edge.Label()
		if err != nil {
			return err
		}
		d.printf("  %q -> %q [label=%q];\n", edge.From().String(), edge.To().String(), label)
	}

	g.writeLegend(d, "Artifact Legend", "cluster_artifact_legend", func(t Type) bool { return t.Artifact != nil })
	g.writeLegend(d, "Execution Legend", "cluster_execution_legend", func(t Type) bool { return t.Execution != nil })

	d.printf("}\n")
	return d.err
}

// writeLegend emits one legend subgraph for the types matched by keep.
// Types() is already in ascending type-ID order, so the invisible chain
// follows it.
func (g *Graph) writeLegend(d *dotWriter, title, cluster string, keep func(Type) bool) {
	d.printf("  subgraph %s {\n", cluster)
	d.printf("    label = %q;\n", title)
	prev := ""
	for _, t := range g.Types() {
		if !keep(t) {
			continue
		}
		d.printf("    %q[shape=%q,style=filled,fillcolor=%q];\n",
			t.Name(), t.Shape(), g.Color(t.ID()).Hex())
		if prev != "" {
			d.printf("    %q -> %q[penwidth=0,arrowhead=none];\n", prev, t.Name())
		}
		prev = t.Name()
	}
	d.printf("  }\n")
}

// DOT returns the document as a string.
func (g *Graph) DOT() (string, error) {
	var buf bytes.Buffer
	if err := g.WriteDOT(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// dotWriter accumulates the first write error so emission code stays flat.
type dotWriter struct {
	w   io.Writer
	err error
}

func (d *dotWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

// RenderSVG renders a DOT document to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
