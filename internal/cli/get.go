package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "List metadata records as JSON",
	}
	cmd.AddCommand(newGetArtifactsCmd())
	cmd.AddCommand(newGetExecutionsCmd())
	cmd.AddCommand(newGetContextsCmd())
	cmd.AddCommand(newGetEventsCmd())
	cmd.AddCommand(newGetTypesCmd("artifact-types", "List artifact types"))
	cmd.AddCommand(newGetTypesCmd("execution-types", "List execution types"))
	cmd.AddCommand(newGetTypesCmd("context-types", "List context types"))
	return cmd
}

// printJSON writes v to stdout as indented JSON followed by a newline.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func newGetArtifactsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := flags.artifactQuery()
			if err != nil {
				return err
			}
			s, err := openStore(ctx, flags.db)
			if err != nil {
				return err
			}
			defer s.Close()

			artifacts, err := s.GetArtifacts(ctx, q)
			if err != nil {
				return err
			}
			names, err := artifactTypeNames(ctx, s, artifacts)
			if err != nil {
				return err
			}
			records := make([]metadata.ArtifactRecord, 0, len(artifacts))
			for _, a := range artifacts {
				records = append(records, metadata.NewArtifactRecord(names[a.TypeID], a))
			}
			return printJSON(records)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().StringVar(&flags.uri, "uri", "", "filter by exact URI")
	cmd.Flags().Int64Var(&flags.contextID, "context", 0, "filter by attributed context ID")
	return cmd
}

func newGetExecutionsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "List executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := flags.executionQuery()
			if err != nil {
				return err
			}
			s, err := openStore(ctx, flags.db)
			if err != nil {
				return err
			}
			defer s.Close()

			executions, err := s.GetExecutions(ctx, q)
			if err != nil {
				return err
			}
			names, err := executionTypeNames(ctx, s, executions)
			if err != nil {
				return err
			}
			records := make([]metadata.ExecutionRecord, 0, len(executions))
			for _, e := range executions {
				records = append(records, metadata.NewExecutionRecord(names[e.TypeID], e))
			}
			return printJSON(records)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().Int64Var(&flags.contextID, "context", 0, "filter by associated context ID")
	return cmd
}

func newGetContextsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := flags.contextQuery()
			if err != nil {
				return err
			}
			s, err := openStore(ctx, flags.db)
			if err != nil {
				return err
			}
			defer s.Close()

			contexts, err := s.GetContexts(ctx, q)
			if err != nil {
				return err
			}
			names, err := contextTypeNames(ctx, s, contexts)
			if err != nil {
				return err
			}
			records := make([]metadata.ContextRecord, 0, len(contexts))
			for _, c := range contexts {
				records = append(records, metadata.NewContextRecord(names[c.TypeID], c))
			}
			return printJSON(records)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().Int64Var(&flags.artifactID, "artifact", 0, "filter by attributed artifact ID")
	cmd.Flags().Int64Var(&flags.executionID, "execution", 0, "filter by associated execution ID")
	return cmd
}

func newGetEventsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, flags.db)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := s.GetEvents(ctx, flags.eventQuery())
			if err != nil {
				return err
			}
			records, err := eventRecords(ctx, s, events)
			if err != nil {
				return err
			}
			return printJSON(records)
		},
	}
	flags.registerCommon(cmd)
	cmd.Flags().Int64Var(&flags.artifactID, "artifact", 0, "filter by artifact ID")
	cmd.Flags().Int64Var(&flags.executionID, "execution", 0, "filter by execution ID")
	cmd.Flags().BoolVar(&flags.asc, "asc", false, "sort ascending by time instead of descending")
	return cmd
}

// eventRecords builds the JSON projections of events, resolving the type
// names of both endpoints in two batch lookups.
func eventRecords(ctx context.Context, s store.Store, events []metadata.Event) ([]metadata.EventRecord, error) {
	var artifactIDs []metadata.ArtifactID
	var executionIDs []metadata.ExecutionID
	seenA := make(map[metadata.ArtifactID]bool)
	seenE := make(map[metadata.ExecutionID]bool)
	for _, ev := range events {
		if !seenA[ev.ArtifactID] {
			seenA[ev.ArtifactID] = true
			artifactIDs = append(artifactIDs, ev.ArtifactID)
		}
		if !seenE[ev.ExecutionID] {
			seenE[ev.ExecutionID] = true
			executionIDs = append(executionIDs, ev.ExecutionID)
		}
	}

	records := make([]metadata.EventRecord, 0, len(events))
	if len(events) == 0 {
		return records, nil
	}

	artifacts, err := s.GetArtifacts(ctx, store.ArtifactQuery{IDs: artifactIDs})
	if err != nil {
		return nil, err
	}
	executions, err := s.GetExecutions(ctx, store.ExecutionQuery{IDs: executionIDs})
	if err != nil {
		return nil, err
	}
	artifactNames, err := artifactTypeNames(ctx, s, artifacts)
	if err != nil {
		return nil, err
	}
	executionNames, err := executionTypeNames(ctx, s, executions)
	if err != nil {
		return nil, err
	}

	typeOfArtifact := make(map[metadata.ArtifactID]string, len(artifacts))
	for _, a := range artifacts {
		typeOfArtifact[a.ID] = artifactNames[a.TypeID]
	}
	typeOfExecution := make(map[metadata.ExecutionID]string, len(executions))
	for _, e := range executions {
		typeOfExecution[e.ID] = executionNames[e.TypeID]
	}

	for _, ev := range events {
		records = append(records, metadata.NewEventRecord(
			typeOfArtifact[ev.ArtifactID], typeOfExecution[ev.ExecutionID], ev))
	}
	return records, nil
}

// newGetTypesCmd builds one of the three type-listing subcommands. The three
// share flags and output shape and differ only in which table they read.
func newGetTypesCmd(use, short string) *cobra.Command {
	var db string
	var ids []int64
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, db)
			if err != nil {
				return err
			}
			defer s.Close()

			typeIDs := make([]metadata.TypeID, 0, len(ids))
			for _, id := range ids {
				typeIDs = append(typeIDs, metadata.TypeID(id))
			}

			var records []metadata.TypeRecord
			switch use {
			case "artifact-types":
				types, err := s.GetArtifactTypes(ctx, typeIDs)
				if err != nil {
					return err
				}
				for _, t := range types {
					records = append(records, typeRecord(t.ID, t.Name, t.Properties))
				}
			case "execution-types":
				types, err := s.GetExecutionTypes(ctx, typeIDs)
				if err != nil {
					return err
				}
				for _, t := range types {
					records = append(records, typeRecord(t.ID, t.Name, t.Properties))
				}
			case "context-types":
				types, err := s.GetContextTypes(ctx, typeIDs)
				if err != nil {
					return err
				}
				for _, t := range types {
					records = append(records, typeRecord(t.ID, t.Name, t.Properties))
				}
			}
			if records == nil {
				records = []metadata.TypeRecord{}
			}
			return printJSON(records)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "path to the metadata database (or set TRACETOWER_DB)")
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "filter by type ID (repeatable)")
	return cmd
}

func typeRecord(id metadata.TypeID, name string, props map[string]metadata.PropertyType) metadata.TypeRecord {
	if props == nil {
		props = map[string]metadata.PropertyType{}
	}
	return metadata.TypeRecord{ID: int64(id), Name: name, Properties: props}
}
