// Package metadata defines the record types stored in an ML metadata
// database: artifacts (data/model objects), executions (pipeline-step runs),
// contexts (groupings of runs), events (typed links between artifacts and
// executions) and the type records describing their property schemas.
//
// The types mirror the standard MLMD data model. They carry no behavior
// beyond identity and JSON projection; all querying lives in pkg/store.
package metadata

import "time"

// ArtifactID identifies an artifact. IDs are unique per record kind only,
// so an artifact and an execution may share the same numeric value.
type ArtifactID int64

// ExecutionID identifies an execution.
type ExecutionID int64

// ContextID identifies a context.
type ContextID int64

// EventID identifies an event.
type EventID int64

// TypeID identifies an artifact, execution, or context type.
type TypeID int64

// Properties holds the typed property values of a record. Values are
// int64, float64, or string, matching the INT/DOUBLE/STRING schema kinds.
type Properties map[string]any

// ArtifactState is the lifecycle state of an artifact.
type ArtifactState int

const (
	ArtifactStateUnknown ArtifactState = iota
	ArtifactStatePending
	ArtifactStateLive
	ArtifactStateMarkedForDeletion
	ArtifactStateDeleted
)

// ExecutionState is the last known lifecycle state of an execution.
type ExecutionState int

const (
	ExecutionStateUnknown ExecutionState = iota
	ExecutionStateNew
	ExecutionStateRunning
	ExecutionStateComplete
	ExecutionStateFailed
	ExecutionStateCached
	ExecutionStateCanceled
)

// Artifact is a tracked data or model object.
type Artifact struct {
	ID               ArtifactID
	TypeID           TypeID
	Name             string
	URI              string
	State            ArtifactState
	Properties       Properties
	CustomProperties Properties
	CreateTime       time.Time
	UpdateTime       time.Time
}

// Execution is a tracked pipeline-step run.
type Execution struct {
	ID               ExecutionID
	TypeID           TypeID
	Name             string
	LastKnownState   ExecutionState
	Properties       Properties
	CustomProperties Properties
	CreateTime       time.Time
	UpdateTime       time.Time
}

// Context groups related executions and artifacts (e.g. one pipeline run).
type Context struct {
	ID               ContextID
	TypeID           TypeID
	Name             string
	Properties       Properties
	CustomProperties Properties
	CreateTime       time.Time
	UpdateTime       time.Time
}

// EventType classifies the link an event records between an artifact and
// an execution. Input-class events flow artifact → execution; output-class
// events flow execution → artifact. Unknown events carry no direction.
type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeDeclaredOutput
	EventTypeDeclaredInput
	EventTypeInput
	EventTypeOutput
	EventTypeInternalInput
	EventTypeInternalOutput
)

// IsInput reports whether the event type is input-class
// (Input, DeclaredInput, or InternalInput).
func (t EventType) IsInput() bool {
	return t == EventTypeInput || t == EventTypeDeclaredInput || t == EventTypeInternalInput
}

// IsOutput reports whether the event type is output-class
// (Output, DeclaredOutput, or InternalOutput).
func (t EventType) IsOutput() bool {
	return t == EventTypeOutput || t == EventTypeDeclaredOutput || t == EventTypeInternalOutput
}

// StepKind discriminates the two forms of an event path step.
type StepKind int

const (
	// StepKindIndex marks a positional step (index into a list input/output).
	StepKindIndex StepKind = iota
	// StepKindKey marks a named step (key of a map input/output).
	StepKindKey
)

// EventStep is one step of an event's structured path: either an integer
// index or a string key. The zero value is the index step 0.
type EventStep struct {
	Kind  StepKind
	Index int64
	Key   string
}

// IndexStep returns a positional path step.
func IndexStep(i int64) EventStep { return EventStep{Kind: StepKindIndex, Index: i} }

// KeyStep returns a named path step.
func KeyStep(k string) EventStep { return EventStep{Kind: StepKindKey, Key: k} }

// Event is a typed, directed link between one artifact and one execution,
// optionally annotated with a structured path.
type Event struct {
	ArtifactID  ArtifactID
	ExecutionID ExecutionID
	Type        EventType
	Path        []EventStep
	CreateTime  time.Time
}

// PropertyType is the schema kind of a declared property.
type PropertyType int

const (
	PropertyTypeUnknown PropertyType = iota
	PropertyTypeInt
	PropertyTypeDouble
	PropertyTypeString
)

// ArtifactType describes the name and property schema of an artifact type.
type ArtifactType struct {
	ID         TypeID
	Name       string
	Properties map[string]PropertyType
}

// ExecutionType describes the name and property schema of an execution type.
type ExecutionType struct {
	ID         TypeID
	Name       string
	Properties map[string]PropertyType
}

// ContextType describes the name and property schema of a context type.
type ContextType struct {
	ID         TypeID
	Name       string
	Properties map[string]PropertyType
}
