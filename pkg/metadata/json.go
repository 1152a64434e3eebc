package metadata

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Enum Encoding
// =============================================================================

var artifactStateNames = map[ArtifactState]string{
	ArtifactStateUnknown:           "UNKNOWN",
	ArtifactStatePending:           "PENDING",
	ArtifactStateLive:              "LIVE",
	ArtifactStateMarkedForDeletion: "MARKED_FOR_DELETION",
	ArtifactStateDeleted:           "DELETED",
}

// String returns the UPPERCASE wire name of the state.
func (s ArtifactState) String() string {
	if name, ok := artifactStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the state as its UPPERCASE name.
func (s ArtifactState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

var executionStateNames = map[ExecutionState]string{
	ExecutionStateUnknown:  "UNKNOWN",
	ExecutionStateNew:      "NEW",
	ExecutionStateRunning:  "RUNNING",
	ExecutionStateComplete: "COMPLETE",
	ExecutionStateFailed:   "FAILED",
	ExecutionStateCached:   "CACHED",
	ExecutionStateCanceled: "CANCELED",
}

// String returns the UPPERCASE wire name of the state.
func (s ExecutionState) String() string {
	if name, ok := executionStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the state as its UPPERCASE name.
func (s ExecutionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

var eventTypeNames = map[EventType]string{
	EventTypeUnknown:        "unknown",
	EventTypeDeclaredOutput: "declared-output",
	EventTypeDeclaredInput:  "declared-input",
	EventTypeInput:          "input",
	EventTypeOutput:         "output",
	EventTypeInternalInput:  "internal-input",
	EventTypeInternalOutput: "internal-output",
}

// String returns the kebab-case wire name of the event type.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the event type as its kebab-case name.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

var propertyTypeNames = map[PropertyType]string{
	PropertyTypeUnknown: "UNKNOWN",
	PropertyTypeInt:     "INT",
	PropertyTypeDouble:  "DOUBLE",
	PropertyTypeString:  "STRING",
}

// String returns the UPPERCASE wire name of the property type.
func (t PropertyType) String() string {
	if name, ok := propertyTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the property type as its UPPERCASE name.
func (t PropertyType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MarshalJSON encodes the step as a bare JSON number (index step) or
// string (key step), not as a wrapped object.
func (s EventStep) MarshalJSON() ([]byte, error) {
	if s.Kind == StepKindKey {
		return json.Marshal(s.Key)
	}
	return json.Marshal(s.Index)
}

// UnmarshalJSON accepts a bare JSON number or string.
func (s *EventStep) UnmarshalJSON(data []byte) error {
	var index int64
	if err := json.Unmarshal(data, &index); err == nil {
		*s = IndexStep(index)
		return nil
	}
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*s = KeyStep(key)
		return nil
	}
	return fmt.Errorf("event path step must be an integer or a string: %s", data)
}

// =============================================================================
// Record Projections
// =============================================================================

// ArtifactRecord is the JSON projection of an artifact with its resolved
// type name. Used by query output and by graph tooltips.
type ArtifactRecord struct {
	Type             string        `json:"type"`
	ID               int64         `json:"id"`
	Name             string        `json:"name,omitempty"`
	URI              string        `json:"uri,omitempty"`
	State            ArtifactState `json:"state"`
	CreateTime       float64       `json:"ctime"`
	UpdateTime       float64       `json:"mtime"`
	Properties       Properties    `json:"properties"`
	CustomProperties Properties    `json:"custom_properties"`
}

// NewArtifactRecord builds the projection of a with the given type name.
func NewArtifactRecord(typeName string, a Artifact) ArtifactRecord {
	return ArtifactRecord{
		Type:             typeName,
		ID:               int64(a.ID),
		Name:             a.Name,
		URI:              a.URI,
		State:            a.State,
		CreateTime:       epochSeconds(a.CreateTime),
		UpdateTime:       epochSeconds(a.UpdateTime),
		Properties:       orEmpty(a.Properties),
		CustomProperties: orEmpty(a.CustomProperties),
	}
}

// ExecutionRecord is the JSON projection of an execution with its resolved
// type name.
type ExecutionRecord struct {
	Type             string         `json:"type"`
	ID               int64          `json:"id"`
	Name             string         `json:"name,omitempty"`
	State            ExecutionState `json:"state"`
	CreateTime       float64        `json:"ctime"`
	UpdateTime       float64        `json:"mtime"`
	Properties       Properties     `json:"properties"`
	CustomProperties Properties     `json:"custom_properties"`
}

// NewExecutionRecord builds the projection of e with the given type name.
func NewExecutionRecord(typeName string, e Execution) ExecutionRecord {
	return ExecutionRecord{
		Type:             typeName,
		ID:               int64(e.ID),
		Name:             e.Name,
		State:            e.LastKnownState,
		CreateTime:       epochSeconds(e.CreateTime),
		UpdateTime:       epochSeconds(e.UpdateTime),
		Properties:       orEmpty(e.Properties),
		CustomProperties: orEmpty(e.CustomProperties),
	}
}

// ContextRecord is the JSON projection of a context with its resolved
// type name.
type ContextRecord struct {
	Type             string     `json:"type"`
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CreateTime       float64    `json:"ctime"`
	UpdateTime       float64    `json:"mtime"`
	Properties       Properties `json:"properties"`
	CustomProperties Properties `json:"custom_properties"`
}

// NewContextRecord builds the projection of c with the given type name.
func NewContextRecord(typeName string, c Context) ContextRecord {
	return ContextRecord{
		Type:             typeName,
		ID:               int64(c.ID),
		Name:             c.Name,
		CreateTime:       epochSeconds(c.CreateTime),
		UpdateTime:       epochSeconds(c.UpdateTime),
		Properties:       orEmpty(c.Properties),
		CustomProperties: orEmpty(c.CustomProperties),
	}
}

// EventRecord is the JSON projection of an event with the type names of
// both endpoints resolved.
type EventRecord struct {
	Artifact      int64       `json:"artifact"`
	ArtifactType  string      `json:"artifact_type"`
	Execution     int64       `json:"execution"`
	ExecutionType string      `json:"execution_type"`
	EventType     EventType   `json:"event_type"`
	Path          []EventStep `json:"path"`
	Time          float64     `json:"time"`
}

// NewEventRecord builds the projection of ev with the given endpoint
// type names.
func NewEventRecord(artifactType, executionType string, ev Event) EventRecord {
	path := ev.Path
	if path == nil {
		path = []EventStep{}
	}
	return EventRecord{
		Artifact:      int64(ev.ArtifactID),
		ArtifactType:  artifactType,
		Execution:     int64(ev.ExecutionID),
		ExecutionType: executionType,
		EventType:     ev.Type,
		Path:          path,
		Time:          epochSeconds(ev.CreateTime),
	}
}

// TypeRecord is the JSON projection of an artifact, execution, or
// context type.
type TypeRecord struct {
	ID         int64                   `json:"id"`
	Name       string                  `json:"name"`
	Properties map[string]PropertyType `json:"properties"`
}

func epochSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMilli()) / 1000.0
}

func orEmpty(p Properties) Properties {
	if p == nil {
		return Properties{}
	}
	return p
}
