// Package store defines the read-only query surface over an ML metadata
// database and an in-memory implementation for tests and demos.
//
// The Store interface is the seam between the lineage engine and whatever
// backs the metadata: the SQLite implementation in pkg/store/sqlite speaks
// the standard MLMD table layout, while MemoryStore serves fixtures.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/matzehuels/tracetower/pkg/metadata"
)

var (
	// ErrNotFound is returned when a lookup by ID matches no record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned when a query combines options that the
	// store cannot satisfy (e.g. a name filter without a type name).
	ErrInvalidQuery = errors.New("invalid query")
)

// OrderField selects the sort column of a list query.
type OrderField int

const (
	OrderByID OrderField = iota
	OrderByName
	OrderByCreateTime
	OrderByUpdateTime
)

// TimeRange bounds a time column. Zero endpoints are unbounded.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unbounded on both ends.
func (r TimeRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// Paging bounds the size of a list result. A zero Limit means no limit.
type Paging struct {
	Limit  int
	Offset int
}

// ArtifactQuery filters an artifact list or count.
type ArtifactQuery struct {
	IDs         []metadata.ArtifactID
	TypeName    string
	Name        string
	NamePattern string // SQL LIKE pattern; requires TypeName
	URI         string
	ContextID   metadata.ContextID // 0 = no context filter
	CreateTime  TimeRange
	UpdateTime  TimeRange

	OrderBy   OrderField
	Ascending bool
	Paging
}

// ExecutionQuery filters an execution list or count.
type ExecutionQuery struct {
	IDs         []metadata.ExecutionID
	TypeName    string
	Name        string
	NamePattern string
	ContextID   metadata.ContextID
	CreateTime  TimeRange
	UpdateTime  TimeRange

	OrderBy   OrderField
	Ascending bool
	Paging
}

// ContextQuery filters a context list or count.
type ContextQuery struct {
	IDs         []metadata.ContextID
	TypeName    string
	Name        string
	NamePattern string
	ArtifactID  metadata.ArtifactID  // 0 = no attribution filter
	ExecutionID metadata.ExecutionID // 0 = no association filter
	CreateTime  TimeRange
	UpdateTime  TimeRange

	OrderBy   OrderField
	Ascending bool
	Paging
}

// EventQuery filters an event list or count. Events are always ordered by
// creation time.
type EventQuery struct {
	ArtifactID  metadata.ArtifactID  // 0 = no artifact filter
	ExecutionID metadata.ExecutionID // 0 = no execution filter

	Ascending bool
	Paging
}

// Store is the read-only query interface over a metadata database.
// Implementations must be safe for concurrent readers.
type Store interface {
	GetArtifacts(ctx context.Context, q ArtifactQuery) ([]metadata.Artifact, error)
	CountArtifacts(ctx context.Context, q ArtifactQuery) (int, error)

	GetExecutions(ctx context.Context, q ExecutionQuery) ([]metadata.Execution, error)
	CountExecutions(ctx context.Context, q ExecutionQuery) (int, error)

	GetContexts(ctx context.Context, q ContextQuery) ([]metadata.Context, error)
	CountContexts(ctx context.Context, q ContextQuery) (int, error)

	GetEvents(ctx context.Context, q EventQuery) ([]metadata.Event, error)
	CountEvents(ctx context.Context, q EventQuery) (int, error)

	// GetArtifactTypes resolves artifact type records by ID. Unknown IDs
	// are skipped, not errors; an empty ids slice returns all types.
	GetArtifactTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ArtifactType, error)

	// GetExecutionTypes resolves execution type records by ID with the
	// same semantics as GetArtifactTypes.
	GetExecutionTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ExecutionType, error)

	// GetContextTypes resolves context type records by ID with the same
	// semantics as GetArtifactTypes.
	GetContextTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ContextType, error)

	Close() error
}
