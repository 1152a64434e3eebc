package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// queryFlags collects the filter, ordering, and paging flags shared by the
// get and count subcommands. Each subcommand registers only the subset that
// applies to its entity.
type queryFlags struct {
	db          string
	ids         []int64
	typeName    string
	name        string
	namePattern string
	uri         string
	contextID   int64
	artifactID  int64
	executionID int64
	ctimeStart  float64
	ctimeEnd    float64
	mtimeStart  float64
	mtimeEnd    float64
	orderBy     string
	asc         bool
	limit       int
	offset      int
}

func (f *queryFlags) registerCommon(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.db, "db", "", "path to the metadata database (or set TRACETOWER_DB)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of results (0 = unlimited)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "number of results to skip")
}

func (f *queryFlags) registerEntity(cmd *cobra.Command) {
	f.registerCommon(cmd)
	cmd.Flags().Int64SliceVar(&f.ids, "id", nil, "filter by ID (repeatable)")
	cmd.Flags().StringVar(&f.typeName, "type", "", "filter by type name")
	cmd.Flags().StringVar(&f.name, "name", "", "filter by exact name (requires --type)")
	cmd.Flags().StringVar(&f.namePattern, "name-pattern", "", "filter by SQL LIKE name pattern (requires --type)")
	cmd.Flags().Float64Var(&f.ctimeStart, "ctime-start", 0, "minimum creation time, seconds since epoch")
	cmd.Flags().Float64Var(&f.ctimeEnd, "ctime-end", 0, "exclusive maximum creation time, seconds since epoch")
	cmd.Flags().Float64Var(&f.mtimeStart, "mtime-start", 0, "minimum update time, seconds since epoch")
	cmd.Flags().Float64Var(&f.mtimeEnd, "mtime-end", 0, "exclusive maximum update time, seconds since epoch")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "id", "sort field: id, name, ctime, mtime")
	cmd.Flags().BoolVar(&f.asc, "asc", false, "sort ascending instead of descending")
}

func (f *queryFlags) order() (store.OrderField, error) {
	switch f.orderBy {
	case "id":
		return store.OrderByID, nil
	case "name":
		return store.OrderByName, nil
	case "ctime":
		return store.OrderByCreateTime, nil
	case "mtime":
		return store.OrderByUpdateTime, nil
	default:
		return 0, fmt.Errorf("unknown sort field %q (want id, name, ctime, or mtime)", f.orderBy)
	}
}

func (f *queryFlags) paging() store.Paging {
	return store.Paging{Limit: f.limit, Offset: f.offset}
}

// epochTime converts a seconds-since-epoch flag value to a time.Time.
// Zero means unset, matching TimeRange's unbounded endpoints.
func epochTime(seconds float64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(seconds * 1000)).UTC()
}

func (f *queryFlags) ctimeRange() store.TimeRange {
	return store.TimeRange{Start: epochTime(f.ctimeStart), End: epochTime(f.ctimeEnd)}
}

func (f *queryFlags) mtimeRange() store.TimeRange {
	return store.TimeRange{Start: epochTime(f.mtimeStart), End: epochTime(f.mtimeEnd)}
}

func (f *queryFlags) artifactQuery() (store.ArtifactQuery, error) {
	order, err := f.order()
	if err != nil {
		return store.ArtifactQuery{}, err
	}
	ids := make([]metadata.ArtifactID, 0, len(f.ids))
	for _, id := range f.ids {
		ids = append(ids, metadata.ArtifactID(id))
	}
	return store.ArtifactQuery{
		IDs:         ids,
		TypeName:    f.typeName,
		Name:        f.name,
		NamePattern: f.namePattern,
		URI:         f.uri,
		ContextID:   metadata.ContextID(f.contextID),
		CreateTime:  f.ctimeRange(),
		UpdateTime:  f.mtimeRange(),
		OrderBy:     order,
		Ascending:   f.asc,
		Paging:      f.paging(),
	}, nil
}

func (f *queryFlags) executionQuery() (store.ExecutionQuery, error) {
	order, err := f.order()
	if err != nil {
		return store.ExecutionQuery{}, err
	}
	ids := make([]metadata.ExecutionID, 0, len(f.ids))
	for _, id := range f.ids {
		ids = append(ids, metadata.ExecutionID(id))
	}
	return store.ExecutionQuery{
		IDs:         ids,
		TypeName:    f.typeName,
		Name:        f.name,
		NamePattern: f.namePattern,
		ContextID:   metadata.ContextID(f.contextID),
		CreateTime:  f.ctimeRange(),
		UpdateTime:  f.mtimeRange(),
		OrderBy:     order,
		Ascending:   f.asc,
		Paging:      f.paging(),
	}, nil
}

func (f *queryFlags) contextQuery() (store.ContextQuery, error) {
	order, err := f.order()
	if err != nil {
		return store.ContextQuery{}, err
	}
	ids := make([]metadata.ContextID, 0, len(f.ids))
	for _, id := range f.ids {
		ids = append(ids, metadata.ContextID(id))
	}
	return store.ContextQuery{
		IDs:         ids,
		TypeName:    f.typeName,
		Name:        f.name,
		NamePattern: f.namePattern,
		ArtifactID:  metadata.ArtifactID(f.artifactID),
		ExecutionID: metadata.ExecutionID(f.executionID),
		CreateTime:  f.ctimeRange(),
		UpdateTime:  f.mtimeRange(),
		OrderBy:     order,
		Ascending:   f.asc,
		Paging:      f.paging(),
	}, nil
}

func (f *queryFlags) eventQuery() store.EventQuery {
	return store.EventQuery{
		ArtifactID:  metadata.ArtifactID(f.artifactID),
		ExecutionID: metadata.ExecutionID(f.executionID),
		Ascending:   f.asc,
		Paging:      f.paging(),
	}
}

// =============================================================================
// Type-Name Resolution
// =============================================================================

// artifactTypeNames resolves the type names of the given artifacts into a
// TypeID lookup map. Unknown type IDs resolve to the empty string.
func artifactTypeNames(ctx context.Context, s store.Store, artifacts []metadata.Artifact) (map[metadata.TypeID]string, error) {
	ids := make([]metadata.TypeID, 0, len(artifacts))
	seen := make(map[metadata.TypeID]bool)
	for _, a := range artifacts {
		if !seen[a.TypeID] {
			seen[a.TypeID] = true
			ids = append(ids, a.TypeID)
		}
	}
	types, err := s.GetArtifactTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[metadata.TypeID]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names, nil
}

func executionTypeNames(ctx context.Context, s store.Store, executions []metadata.Execution) (map[metadata.TypeID]string, error) {
	ids := make([]metadata.TypeID, 0, len(executions))
	seen := make(map[metadata.TypeID]bool)
	for _, e := range executions {
		if !seen[e.TypeID] {
			seen[e.TypeID] = true
			ids = append(ids, e.TypeID)
		}
	}
	types, err := s.GetExecutionTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[metadata.TypeID]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names, nil
}

func contextTypeNames(ctx context.Context, s store.Store, contexts []metadata.Context) (map[metadata.TypeID]string, error) {
	ids := make([]metadata.TypeID, 0, len(contexts))
	seen := make(map[metadata.TypeID]bool)
	for _, c := range contexts {
		if !seen[c.TypeID] {
			seen[c.TypeID] = true
			ids = append(ids, c.TypeID)
		}
	}
	types, err := s.GetContextTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[metadata.TypeID]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names, nil
}
