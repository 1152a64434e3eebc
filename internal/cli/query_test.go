package cli

import (
	"testing"
	"time"

	"github.com/matzehuels/tracetower/pkg/store"
)

func TestQueryFlags_Order(t *testing.T) {
	tests := []struct {
		orderBy string
		want    store.OrderField
		wantErr bool
	}{
		{"id", store.OrderByID, false},
		{"name", store.OrderByName, false},
		{"ctime", store.OrderByCreateTime, false},
		{"mtime", store.OrderByUpdateTime, false},
		{"size", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.orderBy, func(t *testing.T) {
			f := queryFlags{orderBy: tt.orderBy}
			got, err := f.order()
			if tt.wantErr {
				if err == nil {
					t.Error("order() should reject an unknown field")
				}
				return
			}
			if err != nil {
				t.Fatalf("order() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEpochTime(t *testing.T) {
	if !epochTime(0).IsZero() {
		t.Error("epochTime(0) should be the zero time")
	}
	got := epochTime(1.5)
	if got.UnixMilli() != 1500 {
		t.Errorf("epochTime(1.5) = %d ms, want 1500", got.UnixMilli())
	}
}

func TestQueryFlags_ArtifactQuery(t *testing.T) {
	f := queryFlags{
		ids:        []int64{1, 2},
		typeName:   "Dataset",
		uri:        "s3://data/train.csv",
		contextID:  5,
		ctimeStart: 1.0,
		ctimeEnd:   2.0,
		orderBy:    "ctime",
		asc:        true,
		limit:      10,
		offset:     20,
	}
	q, err := f.artifactQuery()
	if err != nil {
		t.Fatalf("artifactQuery() error: %v", err)
	}
	if len(q.IDs) != 2 || q.TypeName != "Dataset" || q.URI != "s3://data/train.csv" {
		t.Errorf("query = %+v", q)
	}
	if q.ContextID != 5 {
		t.Errorf("ContextID = %d, want 5", q.ContextID)
	}
	if q.CreateTime.Start != time.UnixMilli(1000).UTC() || q.CreateTime.End != time.UnixMilli(2000).UTC() {
		t.Errorf("CreateTime = %+v", q.CreateTime)
	}
	if q.OrderBy != store.OrderByCreateTime || !q.Ascending {
		t.Errorf("ordering = %v/%v", q.OrderBy, q.Ascending)
	}
	if q.Limit != 10 || q.Offset != 20 {
		t.Errorf("paging = %+v", q.Paging)
	}
}

func TestQueryFlags_EventQuery(t *testing.T) {
	f := queryFlags{artifactID: 7, executionID: 3, asc: true}
	q := f.eventQuery()
	if q.ArtifactID != 7 || q.ExecutionID != 3 || !q.Ascending {
		t.Errorf("eventQuery() = %+v", q)
	}
}
