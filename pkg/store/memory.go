package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/tracetower/pkg/metadata"
)

// MemoryStore is an in-memory Store backed by plain slices. It serves test
// fixtures and the server's demo mode; it is not meant to hold large stores.
//
// The zero value is not usable - use NewMemoryStore.
type MemoryStore struct {
	mu sync.RWMutex

	artifacts  []metadata.Artifact
	executions []metadata.Execution
	contexts   []metadata.Context
	events     []metadata.Event

	artifactTypes  []metadata.ArtifactType
	executionTypes []metadata.ExecutionType
	contextTypes   []metadata.ContextType

	// attribution/association membership: context ID -> record IDs
	attributions map[metadata.ContextID][]metadata.ArtifactID
	associations map[metadata.ContextID][]metadata.ExecutionID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attributions: map[metadata.ContextID][]metadata.ArtifactID{},
		associations: map[metadata.ContextID][]metadata.ExecutionID{},
	}
}

// PutArtifact adds or replaces an artifact record.
func (s *MemoryStore) PutArtifact(a metadata.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.artifacts {
		if s.artifacts[i].ID == a.ID {
			s.artifacts[i] = a
			return
		}
	}
	s.artifacts = append(s.artifacts, a)
}

// PutExecution adds or replaces an execution record.
func (s *MemoryStore) PutExecution(e metadata.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.executions {
		if s.executions[i].ID == e.ID {
			s.executions[i] = e
			return
		}
	}
	s.executions = append(s.executions, e)
}

// PutContext adds or replaces a context record.
func (s *MemoryStore) PutContext(c metadata.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contexts {
		if s.contexts[i].ID == c.ID {
			s.contexts[i] = c
			return
		}
	}
	s.contexts = append(s.contexts, c)
}

// PutEvent appends an event record. Events have no identity in the store,
// so repeated puts create duplicates, as in a real event log.
func (s *MemoryStore) PutEvent(ev metadata.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// PutArtifactType adds or replaces an artifact type record.
func (s *MemoryStore) PutArtifactType(t metadata.ArtifactType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.artifactTypes {
		if s.artifactTypes[i].ID == t.ID {
			s.artifactTypes[i] = t
			return
		}
	}
	s.artifactTypes = append(s.artifactTypes, t)
}

// PutExecutionType adds or replaces an execution type record.
func (s *MemoryStore) PutExecutionType(t metadata.ExecutionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.executionTypes {
		if s.executionTypes[i].ID == t.ID {
			s.executionTypes[i] = t
			return
		}
	}
	s.executionTypes = append(s.executionTypes, t)
}

// PutContextType adds or replaces a context type record.
func (s *MemoryStore) PutContextType(t metadata.ContextType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contextTypes {
		if s.contextTypes[i].ID == t.ID {
			s.contextTypes[i] = t
			return
		}
	}
	s.contextTypes = append(s.contextTypes, t)
}

// Attribute records that an artifact belongs to a context.
func (s *MemoryStore) Attribute(ctxID metadata.ContextID, artifactID metadata.ArtifactID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributions[ctxID] = append(s.attributions[ctxID], artifactID)
}

// Associate records that an execution belongs to a context.
func (s *MemoryStore) Associate(ctxID metadata.ContextID, executionID metadata.ExecutionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations[ctxID] = append(s.associations[ctxID], executionID)
}

// GetArtifacts returns artifacts matching q.
func (s *MemoryStore) GetArtifacts(ctx context.Context, q ArtifactQuery) ([]metadata.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.Artifact
	for _, a := range s.artifacts {
		if s.matchArtifact(a, q) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y metadata.Artifact) int {
		return orderCmp(q.OrderBy, q.Ascending,
			int64(x.ID), int64(y.ID), x.Name, y.Name,
			x.CreateTime.UnixMilli(), y.CreateTime.UnixMilli(),
			x.UpdateTime.UnixMilli(), y.UpdateTime.UnixMilli())
	})
	return page(out, q.Paging), nil
}

// CountArtifacts returns the number of artifacts matching q. Paging and
// ordering options are ignored.
func (s *MemoryStore) CountArtifacts(ctx context.Context, q ArtifactQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.artifacts {
		if s.matchArtifact(a, q) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) matchArtifact(a metadata.Artifact, q ArtifactQuery) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, a.ID) {
		return false
	}
	if q.TypeName != "" {
		t, ok := s.artifactTypeByID(a.TypeID)
		if !ok || t.Name != q.TypeName {
			return false
		}
	}
	if q.Name != "" && a.Name != q.Name {
		return false
	}
	if q.NamePattern != "" && !likeMatch(q.NamePattern, a.Name) {
		return false
	}
	if q.URI != "" && a.URI != q.URI {
		return false
	}
	if q.ContextID != 0 && !slices.Contains(s.attributions[q.ContextID], a.ID) {
		return false
	}
	if !q.CreateTime.IsZero() && !q.CreateTime.Contains(a.CreateTime) {
		return false
	}
	if !q.UpdateTime.IsZero() && !q.UpdateTime.Contains(a.UpdateTime) {
		return false
	}
	return true
}

// GetExecutions returns executions matching q.
func (s *MemoryStore) GetExecutions(ctx context.Context, q ExecutionQuery) ([]metadata.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.Execution
	for _, e := range s.executions {
		if s.matchExecution(e, q) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(x, y metadata.Execution) int {
		return orderCmp(q.OrderBy, q.Ascending,
			int64(x.ID), int64(y.ID), x.Name, y.Name,
			x.CreateTime.UnixMilli(), y.CreateTime.UnixMilli(),
			x.UpdateTime.UnixMilli(), y.UpdateTime.UnixMilli())
	})
	return page(out, q.Paging), nil
}

// CountExecutions returns the number of executions matching q.
func (s *MemoryStore) CountExecutions(ctx context.Context, q ExecutionQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.executions {
		if s.matchExecution(e, q) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) matchExecution(e metadata.Execution, q ExecutionQuery) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, e.ID) {
		return false
	}
	if q.TypeName != "" {
		t, ok := s.executionTypeByID(e.TypeID)
		if !ok || t.Name != q.TypeName {
			return false
		}
	}
	if q.Name != "" && e.Name != q.Name {
		return false
	}
	if q.NamePattern != "" && !likeMatch(q.NamePattern, e.Name) {
		return false
	}
	if q.ContextID != 0 && !slices.Contains(s.associations[q.ContextID], e.ID) {
		return false
	}
	if !q.CreateTime.IsZero() && !q.CreateTime.Contains(e.CreateTime) {
		return false
	}
	if !q.UpdateTime.IsZero() && !q.UpdateTime.Contains(e.UpdateTime) {
		return false
	}
	return true
}

// GetContexts returns contexts matching q.
func (s *MemoryStore) GetContexts(ctx context.Context, q ContextQuery) ([]metadata.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.Context
	for _, c := range s.contexts {
		if s.matchContext(c, q) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(x, y metadata.Context) int {
		return orderCmp(q.OrderBy, q.Ascending,
			int64(x.ID), int64(y.ID), x.Name, y.Name,
			x.CreateTime.UnixMilli(), y.CreateTime.UnixMilli(),
			x.UpdateTime.UnixMilli(), y.UpdateTime.UnixMilli())
	})
	return page(out, q.Paging), nil
}

// CountContexts returns the number of contexts matching q.
func (s *MemoryStore) CountContexts(ctx context.Context, q ContextQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.contexts {
		if s.matchContext(c, q) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) matchContext(c metadata.Context, q ContextQuery) bool {
	if len(q.IDs) > 0 && !slices.Contains(q.IDs, c.ID) {
		return false
	}
	if q.TypeName != "" {
		t, ok := s.contextTypeByID(c.TypeID)
		if !ok || t.Name != q.TypeName {
			return false
		}
	}
	if q.Name != "" && c.Name != q.Name {
		return false
	}
	if q.NamePattern != "" && !likeMatch(q.NamePattern, c.Name) {
		return false
	}
	if q.ArtifactID != 0 && !slices.Contains(s.attributions[c.ID], q.ArtifactID) {
		return false
	}
	if q.ExecutionID != 0 && !slices.Contains(s.associations[c.ID], q.ExecutionID) {
		return false
	}
	if !q.CreateTime.IsZero() && !q.CreateTime.Contains(c.CreateTime) {
		return false
	}
	if !q.UpdateTime.IsZero() && !q.UpdateTime.Contains(c.UpdateTime) {
		return false
	}
	return true
}

// GetEvents returns events matching q, ordered by creation time.
func (s *MemoryStore) GetEvents(ctx context.Context, q EventQuery) ([]metadata.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.Event
	for _, ev := range s.events {
		if matchEvent(ev, q) {
			out = append(out, ev)
		}
	}
	slices.SortFunc(out, func(x, y metadata.Event) int {
		c := x.CreateTime.Compare(y.CreateTime)
		if !q.Ascending {
			c = -c
		}
		return c
	})
	return page(out, q.Paging), nil
}

// CountEvents returns the number of events matching q.
func (s *MemoryStore) CountEvents(ctx context.Context, q EventQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ev := range s.events {
		if matchEvent(ev, q) {
			n++
		}
	}
	return n, nil
}

func matchEvent(ev metadata.Event, q EventQuery) bool {
	if q.ArtifactID != 0 && ev.ArtifactID != q.ArtifactID {
		return false
	}
	if q.ExecutionID != 0 && ev.ExecutionID != q.ExecutionID {
		return false
	}
	return true
}

// GetArtifactTypes resolves artifact types by ID; an empty ids slice
// returns all types.
func (s *MemoryStore) GetArtifactTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ArtifactType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.ArtifactType
	for _, t := range s.artifactTypes {
		if len(ids) == 0 || slices.Contains(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetExecutionTypes resolves execution types by ID; an empty ids slice
// returns all types.
func (s *MemoryStore) GetExecutionTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ExecutionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.ExecutionType
	for _, t := range s.executionTypes {
		if len(ids) == 0 || slices.Contains(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetContextTypes resolves context types by ID; an empty ids slice
// returns all types.
func (s *MemoryStore) GetContextTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ContextType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []metadata.ContextType
	for _, t := range s.contextTypes {
		if len(ids) == 0 || slices.Contains(ids, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) artifactTypeByID(id metadata.TypeID) (metadata.ArtifactType, bool) {
	for _, t := range s.artifactTypes {
		if t.ID == id {
			return t, true
		}
	}
	return metadata.ArtifactType{}, false
}

func (s *MemoryStore) executionTypeByID(id metadata.TypeID) (metadata.ExecutionType, bool) {
	for _, t := range s.executionTypes {
		if t.ID == id {
			return t, true
		}
	}
	return metadata.ExecutionType{}, false
}

func (s *MemoryStore) contextTypeByID(id metadata.TypeID) (metadata.ContextType, bool) {
	for _, t := range s.contextTypes {
		if t.ID == id {
			return t, true
		}
	}
	return metadata.ContextType{}, false
}

// orderCmp compares two records on the selected field, falling back to ID
// so that sorting is total.
func orderCmp(field OrderField, asc bool, idA, idB int64, nameA, nameB string, ctA, ctB, utA, utB int64) int {
	var c int
	switch field {
	case OrderByName:
		c = strings.Compare(nameA, nameB)
	case OrderByCreateTime:
		c = cmpInt64(ctA, ctB)
	case OrderByUpdateTime:
		c = cmpInt64(utA, utB)
	default:
		c = cmpInt64(idA, idB)
	}
	if c == 0 {
		c = cmpInt64(idA, idB)
	}
	if !asc {
		c = -c
	}
	return c
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func page[T any](items []T, p Paging) []T {
	if p.Offset > 0 {
		if p.Offset >= len(items) {
			return nil
		}
		items = items[p.Offset:]
	}
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	return items
}

// likeMatch implements SQL LIKE semantics with % (any run) and _ (any one).
func likeMatch(pattern, s string) bool {
	return likeMatchRunes([]rune(pattern), []rune(s))
}

func likeMatchRunes(p, s []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRunes(p[1:], s[i:]) {
				return true
			}
		}
		return false
	case '_':
		return len(s) > 0 && likeMatchRunes(p[1:], s[1:])
	default:
		return len(s) > 0 && s[0] == p[0] && likeMatchRunes(p[1:], s[1:])
	}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
