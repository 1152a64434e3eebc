package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count metadata records",
	}
	cmd.AddCommand(newCountArtifactsCmd())
	cmd.AddCommand(newCountExecutionsCmd())
	cmd.AddCommand(newCountContextsCmd())
	cmd.AddCommand(newCountEventsCmd())
	return cmd
}

func printCount(n int) error {
	_, err := fmt.Fprintln(os.Stdout, n)
	return err
}

func newCountArtifactsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Count artifacts matching the filters",
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

			n, err := s.CountArtifacts(ctx, q)
			if err != nil {
				return err
			}
			return printCount(n)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().StringVar(&flags.uri, "uri", "", "filter by exact URI")
	cmd.Flags().Int64Var(&flags.contextID, "context", 0, "filter by attributed context ID")
	return cmd
}

func newCountExecutionsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Count executions matching the filters",
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

			n, err := s.CountExecutions(ctx, q)
			if err != nil {
				return err
			}
			return printCount(n)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().Int64Var(&flags.contextID, "context", 0, "filter by associated context ID")
	return cmd
}

func newCountContextsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "Count contexts matching the filters",
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

			n, err := s.CountContexts(ctx, q)
			if err != nil {
				return err
			}
			return printCount(n)
		},
	}
	flags.registerEntity(cmd)
	cmd.Flags().Int64Var(&flags.artifactID, "artifact", 0, "filter by attributed artifact ID")
	cmd.Flags().Int64Var(&flags.executionID, "execution", 0, "filter by associated execution ID")
	return cmd
}

func newCountEventsCmd() *cobra.Command {
	flags := queryFlags{}
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Count events matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openStore(ctx, flags.db)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.CountEvents(ctx, flags.eventQuery())
			if err != nil {
				return err
			}
			return printCount(n)
		},
	}
	flags.registerCommon(cmd)
	cmd.Flags().Int64Var(&flags.artifactID, "artifact", 0, "filter by artifact ID")
	cmd.Flags().Int64Var(&flags.executionID, "execution", 0, "filter by execution ID")
	return cmd
}
