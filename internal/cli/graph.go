package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracetower/pkg/lineage"
	"github.com/matzehuels/tracetower/pkg/metadata"
)

// graphOptions holds the flags shared by the graph subcommands.
type graphOptions struct {
	db          string
	urlTemplate string
	format      string
	output      string
}

func (o *graphOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.db, "db", "", "path to the metadata database (or set TRACETOWER_DB)")
	cmd.Flags().StringVar(&o.urlTemplate, "url-template", "",
		"template for node hyperlinks; variables: {{.node_type}} and {{.id}}")
	cmd.Flags().StringVarP(&o.format, "format", "f", "dot", "output format: dot (default), svg")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout)")
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate lineage graphs in DOT or SVG form",
	}
	cmd.AddCommand(newGraphLineageCmd())
	cmd.AddCommand(newGraphIOCmd())
	return cmd
}

func newGraphLineageCmd() *cobra.Command {
	opts := graphOptions{}
	cmd := &cobra.Command{
		Use:   "lineage <artifact-id>",
		Short: "Graph the full lineage of an artifact",
		Long: `Graph the full lineage of an artifact.

Starting from the given artifact, the graph follows input events to the
executions that consumed it and output events to the artifacts those
executions produced, recursing in both directions until the reachable
subgraph is exhausted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("artifact ID must be an integer: %q", args[0])
			}
			origin := lineage.ArtifactNodeID(metadata.ArtifactID(id))
			return runGraph(cmd.Context(), origin, lineage.PolicyLineage, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func newGraphIOCmd() *cobra.Command {
	opts := graphOptions{}
	cmd := &cobra.Command{
		Use:   "io <execution-id>",
		Short: "Graph the inputs and outputs of an execution",
		Long: `Graph the inputs and outputs of an execution.

The graph is bounded to one hop: every artifact the execution consumed or
produced, and nothing beyond them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("execution ID must be an integer: %q", args[0])
			}
			origin := lineage.ExecutionNodeID(metadata.ExecutionID(id))
			return runGraph(cmd.Context(), origin, lineage.PolicyIO, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runGraph(ctx context.Context, origin lineage.NodeID, policy lineage.Policy, opts graphOptions) error {
	if opts.format != "dot" && opts.format != "svg" {
		return fmt.Errorf("unknown format %q (want dot or svg)", opts.format)
	}

	s, err := openStore(ctx, opts.db)
	if err != nil {
		return err
	}
	defer s.Close()

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	spinner := newSpinner(ctx, fmt.Sprintf("Tracing %s...", origin))
	spinner.Start()
	graph, err := lineage.Build(ctx, s, origin, policy, lineage.Options{
		URLTemplate: opts.urlTemplate,
	})
	if err != nil {
		spinner.StopWithError("Trace failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Discovered %d nodes, %d edges", len(graph.Nodes()), len(graph.Edges())))

	dot, err := graph.DOT()
	if err != nil {
		return err
	}

	out := []byte(dot)
	if opts.format == "svg" {
		out, err = lineage.RenderSVG(ctx, dot)
		if err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
	}

	if opts.output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Wrote %s (%d bytes)", opts.output, len(out))
	return nil
}
