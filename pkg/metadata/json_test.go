package metadata

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEnumNames(t *testing.T) {
	tests := []struct {
		value interface{ String() string }
		want  string
	}{
		{ArtifactStateLive, "LIVE"},
		{ArtifactStateMarkedForDeletion, "MARKED_FOR_DELETION"},
		{ArtifactState(99), "UNKNOWN"},
		{ExecutionStateComplete, "COMPLETE"},
		{ExecutionStateCanceled, "CANCELED"},
		{EventTypeDeclaredInput, "declared-input"},
		{EventTypeInternalOutput, "internal-output"},
		{EventType(99), "unknown"},
		{PropertyTypeDouble, "DOUBLE"},
	}
	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEventType_Classes(t *testing.T) {
	inputs := []EventType{EventTypeInput, EventTypeDeclaredInput, EventTypeInternalInput}
	outputs := []EventType{EventTypeOutput, EventTypeDeclaredOutput, EventTypeInternalOutput}

	for _, ty := range inputs {
		if !ty.IsInput() || ty.IsOutput() {
			t.Errorf("%s should be input-class only", ty)
		}
	}
	for _, ty := range outputs {
		if !ty.IsOutput() || ty.IsInput() {
			t.Errorf("%s should be output-class only", ty)
		}
	}
	if EventTypeUnknown.IsInput() || EventTypeUnknown.IsOutput() {
		t.Error("unknown events carry no direction")
	}
}

func TestEventStep_JSON(t *testing.T) {
	tests := []struct {
		name string
		step EventStep
		want string
	}{
		{"index", IndexStep(3), "3"},
		{"zero index", IndexStep(0), "0"},
		{"key", KeyStep("model"), `"model"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.step)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var back EventStep
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if back != tt.step {
				t.Errorf("Unmarshal() = %+v, want %+v", back, tt.step)
			}
		})
	}
}

func TestEventStep_UnmarshalRejectsOther(t *testing.T) {
	var step EventStep
	if err := json.Unmarshal([]byte(`{"index":1}`), &step); err == nil {
		t.Error("Unmarshal() should reject an object step")
	}
}

func TestNewArtifactRecord(t *testing.T) {
	a := Artifact{
		ID:         7,
		TypeID:     10,
		URI:        "s3://data/train.csv",
		State:      ArtifactStateLive,
		CreateTime: time.UnixMilli(1500),
		UpdateTime: time.UnixMilli(2500),
	}
	rec := NewArtifactRecord("Dataset", a)

	if rec.Type != "Dataset" || rec.ID != 7 {
		t.Errorf("record = %+v, want type Dataset id 7", rec)
	}
	if rec.CreateTime != 1.5 || rec.UpdateTime != 2.5 {
		t.Errorf("times = %v/%v, want 1.5/2.5", rec.CreateTime, rec.UpdateTime)
	}
	if rec.Properties == nil || rec.CustomProperties == nil {
		t.Error("nil property maps should project as empty")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for _, want := range []string{`"state":"LIVE"`, `"ctime":1.5`, `"properties":{}`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s: %s", want, data)
		}
	}
}

func TestNewEventRecord(t *testing.T) {
	ev := Event{
		ArtifactID:  7,
		ExecutionID: 3,
		Type:        EventTypeOutput,
		Path:        []EventStep{IndexStep(0), KeyStep("model")},
		CreateTime:  time.UnixMilli(1500),
	}
	rec := NewEventRecord("Dataset", "Train", ev)

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"artifact":7,"artifact_type":"Dataset","execution":3,"execution_type":"Train","event_type":"output","path":[0,"model"],"time":1.5}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestNewEventRecord_EmptyPath(t *testing.T) {
	rec := NewEventRecord("", "", Event{Type: EventTypeInput})
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"path":[]`) {
		t.Errorf("empty path should project as [], got %s", data)
	}
}
