// Package sqlite implements the store.Store query surface over a SQLite
// metadata database laid out in the standard MLMD schema (Artifact,
// Execution, Context, Event, EventPath, Type, TypeProperty, the per-record
// property tables, and the Attribution/Association membership tables).
//
// The store is read-only: tracetower queries and visualizes metadata that
// pipelines wrote through their own metadata client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/tracetower/pkg/metadata"
	"github.com/matzehuels/tracetower/pkg/store"
)

// Type kinds in the MLMD Type table.
const (
	typeKindExecution = 0
	typeKindArtifact  = 1
	typeKindContext   = 2
)

// Property schema kinds in the MLMD TypeProperty table.
const (
	dataTypeInt    = 1
	dataTypeDouble = 2
	dataTypeString = 3
)

// Store is a read-only store.Store over a SQLite MLMD database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and verifies the connection.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle. The caller keeps ownership
// of the handle's lifetime unless Close is called.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// Query Builder
// =============================================================================

// cond accumulates WHERE clauses and their arguments.
type cond struct {
	clauses []string
	args    []any
}

func (c *cond) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *cond) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (c *cond) addTimeRange(column string, r store.TimeRange) {
	if !r.Start.IsZero() {
		c.add(column+" >= ?", r.Start.UnixMilli())
	}
	if !r.End.IsZero() {
		c.add(column+" < ?", r.End.UnixMilli())
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func orderClause(field store.OrderField, asc bool) string {
	column := "id"
	switch field {
	case store.OrderByName:
		column = "name"
	case store.OrderByCreateTime:
		column = "create_time_since_epoch"
	case store.OrderByUpdateTime:
		column = "last_update_time_since_epoch"
	}
	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, dir)
}

func pagingClause(p store.Paging) string {
	if p.Limit <= 0 && p.Offset <= 0 {
		return ""
	}
	limit := p.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit, offset still applies
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)
}

// =============================================================================
// Artifacts
// =============================================================================

func artifactCond(q store.ArtifactQuery) (*cond, error) {
	c := &cond{}
	if len(q.IDs) > 0 {
		args := make([]any, len(q.IDs))
		for i, id := range q.IDs {
			args[i] = int64(id)
		}
		c.add("id IN ("+placeholders(len(q.IDs))+")", args...)
	}
	if q.NamePattern != "" && q.TypeName == "" {
		return nil, fmt.Errorf("name pattern requires a type name: %w", store.ErrInvalidQuery)
	}
	if q.TypeName != "" {
		c.add("type_id IN (SELECT id FROM Type WHERE type_kind = ? AND name = ?)", typeKindArtifact, q.TypeName)
	}
	if q.Name != "" {
		c.add("name = ?", q.Name)
	}
	if q.NamePattern != "" {
		c.add("name LIKE ?", q.NamePattern)
	}
	if q.URI != "" {
		c.add("uri = ?", q.URI)
	}
	if q.ContextID != 0 {
		c.add("id IN (SELECT artifact_id FROM Attribution WHERE context_id = ?)", int64(q.ContextID))
	}
	c.addTimeRange("create_time_since_epoch", q.CreateTime)
	c.addTimeRange("last_update_time_since_epoch", q.UpdateTime)
	return c, nil
}

// GetArtifacts returns artifacts matching q.
func (s *Store) GetArtifacts(ctx context.Context, q store.ArtifactQuery) ([]metadata.Artifact, error) {
	c, err := artifactCond(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, type_id, name, uri, state, create_time_since_epoch, last_update_time_since_epoch FROM Artifact" +
		c.where() + orderClause(q.OrderBy, q.Ascending) + pagingClause(q.Paging)

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []metadata.Artifact
	var ids []int64
	for rows.Next() {
		var (
			a           metadata.Artifact
			id          int64
			name, uri   sql.NullString
			state       sql.NullInt64
			ctime, mtime int64
		)
		if err := rows.Scan(&id, &a.TypeID, &name, &uri, &state, &ctime, &mtime); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.ID = metadata.ArtifactID(id)
		a.Name = name.String
		a.URI = uri.String
		a.State = metadata.ArtifactState(state.Int64)
		a.CreateTime = time.UnixMilli(ctime)
		a.UpdateTime = time.UnixMilli(mtime)
		artifacts = append(artifacts, a)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}

	props, custom, err := s.loadProperties(ctx, "ArtifactProperty", "artifact_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range artifacts {
		artifacts[i].Properties = props[int64(artifacts[i].ID)]
		artifacts[i].CustomProperties = custom[int64(artifacts[i].ID)]
	}
	return artifacts, nil
}

// CountArtifacts returns the number of artifacts matching q.
func (s *Store) CountArtifacts(ctx context.Context, q store.ArtifactQuery) (int, error) {
	c, err := artifactCond(q)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, "SELECT COUNT(*) FROM Artifact"+c.where(), c.args)
}

// =============================================================================
// Executions
// =============================================================================

func executionCond(q store.ExecutionQuery) (*cond, error) {
	c := &cond{}
	if len(q.IDs) > 0 {
		args := make([]any, len(q.IDs))
		for i, id := range q.IDs {
			args[i] = int64(id)
		}
		c.add("id IN ("+placeholders(len(q.IDs))+")", args...)
	}
	if q.NamePattern != "" && q.TypeName == "" {
		return nil, fmt.Errorf("name pattern requires a type name: %w", store.ErrInvalidQuery)
	}
	if q.TypeName != "" {
		c.add("type_id IN (SELECT id FROM Type WHERE type_kind = ? AND name = ?)", typeKindExecution, q.TypeName)
	}
	if q.Name != "" {
		c.add("name = ?", q.Name)
	}
	if q.NamePattern != "" {
		c.add("name LIKE ?", q.NamePattern)
	}
	if q.ContextID != 0 {
		c.add("id IN (SELECT execution_id FROM Association WHERE context_id = ?)", int64(q.ContextID))
	}
	c.addTimeRange("create_time_since_epoch", q.CreateTime)
	c.addTimeRange("last_update_time_since_epoch", q.UpdateTime)
	return c, nil
}

// GetExecutions returns executions matching q.
func (s *Store) GetExecutions(ctx context.Context, q store.ExecutionQuery) ([]metadata.Execution, error) {
	c, err := executionCond(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, type_id, name, last_known_state, create_time_since_epoch, last_update_time_since_epoch FROM Execution" +
		c.where() + orderClause(q.OrderBy, q.Ascending) + pagingClause(q.Paging)

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var executions []metadata.Execution
	var ids []int64
	for rows.Next() {
		var (
			e           metadata.Execution
			id          int64
			name        sql.NullString
			state       sql.NullInt64
			ctime, mtime int64
		)
		if err := rows.Scan(&id, &e.TypeID, &name, &state, &ctime, &mtime); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.ID = metadata.ExecutionID(id)
		e.Name = name.String
		e.LastKnownState = metadata.ExecutionState(state.Int64)
		e.CreateTime = time.UnixMilli(ctime)
		e.UpdateTime = time.UnixMilli(mtime)
		executions = append(executions, e)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}

	props, custom, err := s.loadProperties(ctx, "ExecutionProperty", "execution_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range executions {
		executions[i].Properties = props[int64(executions[i].ID)]
		executions[i].CustomProperties = custom[int64(executions[i].ID)]
	}
	return executions, nil
}

// CountExecutions returns the number of executions matching q.
func (s *Store) CountExecutions(ctx context.Context, q store.ExecutionQuery) (int, error) {
	c, err := executionCond(q)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, "SELECT COUNT(*) FROM Execution"+c.where(), c.args)
}

// =============================================================================
// Contexts
// =============================================================================

func contextCond(q store.ContextQuery) (*cond, error) {
	c := &cond{}
	if len(q.IDs) > 0 {
		args := make([]any, len(q.IDs))
		for i, id := range q.IDs {
			args[i] = int64(id)
		}
		c.add("id IN ("+placeholders(len(q.IDs))+")", args...)
	}
	if q.NamePattern != "" && q.TypeName == "" {
		return nil, fmt.Errorf("name pattern requires a type name: %w", store.ErrInvalidQuery)
	}
	if q.TypeName != "" {
		c.add("type_id IN (SELECT id FROM Type WHERE type_kind = ? AND name = ?)", typeKindContext, q.TypeName)
	}
	if q.Name != "" {
		c.add("name = ?", q.Name)
	}
	if q.NamePattern != "" {
		c.add("name LIKE ?", q.NamePattern)
	}
	if q.ArtifactID != 0 {
		c.add("id IN (SELECT context_id FROM Attribution WHERE artifact_id = ?)", int64(q.ArtifactID))
	}
	if q.ExecutionID != 0 {
		c.add("id IN (SELECT context_id FROM Association WHERE execution_id = ?)", int64(q.ExecutionID))
	}
	c.addTimeRange("create_time_since_epoch", q.CreateTime)
	c.addTimeRange("last_update_time_since_epoch", q.UpdateTime)
	return c, nil
}

// GetContexts returns contexts matching q.
func (s *Store) GetContexts(ctx context.Context, q store.ContextQuery) ([]metadata.Context, error) {
	c, err := contextCond(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT id, type_id, name, create_time_since_epoch, last_update_time_since_epoch FROM Context" +
		c.where() + orderClause(q.OrderBy, q.Ascending) + pagingClause(q.Paging)

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("query contexts: %w", err)
	}
	defer rows.Close()

	var contexts []metadata.Context
	var ids []int64
	for rows.Next() {
		var (
			rec         metadata.Context
			id          int64
			name        sql.NullString
			ctime, mtime int64
		)
		if err := rows.Scan(&id, &rec.TypeID, &name, &ctime, &mtime); err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		rec.ID = metadata.ContextID(id)
		rec.Name = name.String
		rec.CreateTime = time.UnixMilli(ctime)
		rec.UpdateTime = time.UnixMilli(mtime)
		contexts = append(contexts, rec)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query contexts: %w", err)
	}

	props, custom, err := s.loadProperties(ctx, "ContextProperty", "context_id", ids)
	if err != nil {
		return nil, err
	}
	for i := range contexts {
		contexts[i].Properties = props[int64(contexts[i].ID)]
		contexts[i].CustomProperties = custom[int64(contexts[i].ID)]
	}
	return contexts, nil
}

// CountContexts returns the number of contexts matching q.
func (s *Store) CountContexts(ctx context.Context, q store.ContextQuery) (int, error) {
	c, err := contextCond(q)
	if err != nil {
		return 0, err
	}
	return s.count(ctx, "SELECT COUNT(*) FROM Context"+c.where(), c.args)
}

// =============================================================================
// Events
// =============================================================================

func eventCond(q store.EventQuery) *cond {
	c := &cond{}
	if q.ArtifactID != 0 {
		c.add("artifact_id = ?", int64(q.ArtifactID))
	}
	if q.ExecutionID != 0 {
		c.add("execution_id = ?", int64(q.ExecutionID))
	}
	return c
}

// GetEvents returns events matching q ordered by creation time, with
// their structured paths loaded from EventPath.
func (s *Store) GetEvents(ctx context.Context, q store.EventQuery) ([]metadata.Event, error) {
	c := eventCond(q)
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	query := "SELECT id, artifact_id, execution_id, type, milliseconds_since_epoch FROM Event" +
		c.where() + " ORDER BY milliseconds_since_epoch " + dir + pagingClause(q.Paging)

	rows, err := s.db.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []metadata.Event
	var eventIDs []int64
	for rows.Next() {
		var (
			ev     metadata.Event
			id     int64
			evType sql.NullInt64
			millis int64
		)
		if err := rows.Scan(&id, &ev.ArtifactID, &ev.ExecutionID, &evType, &millis); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = metadata.EventType(evType.Int64)
		ev.CreateTime = time.UnixMilli(millis)
		events = append(events, ev)
		eventIDs = append(eventIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	paths, err := s.loadEventPaths(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Path = paths[eventIDs[i]]
	}
	return events, nil
}

// CountEvents returns the number of events matching q.
func (s *Store) CountEvents(ctx context.Context, q store.EventQuery) (int, error) {
	c := eventCond(q)
	return s.count(ctx, "SELECT COUNT(*) FROM Event"+c.where(), c.args)
}

func (s *Store) loadEventPaths(ctx context.Context, eventIDs []int64) (map[int64][]metadata.EventStep, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}
	query := "SELECT event_id, is_index_step, step_index, step_key FROM EventPath WHERE event_id IN (" +
		placeholders(len(eventIDs)) + ") ORDER BY event_id, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query event paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[int64][]metadata.EventStep)
	for rows.Next() {
		var (
			eventID   int64
			isIndex   bool
			stepIndex sql.NullInt64
			stepKey   sql.NullString
		)
		if err := rows.Scan(&eventID, &isIndex, &stepIndex, &stepKey); err != nil {
			return nil, fmt.Errorf("scan event path: %w", err)
		}
		if isIndex {
			paths[eventID] = append(paths[eventID], metadata.IndexStep(stepIndex.Int64))
		} else {
			paths[eventID] = append(paths[eventID], metadata.KeyStep(stepKey.String))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query event paths: %w", err)
	}
	return paths, nil
}

// =============================================================================
// Types
// =============================================================================

// GetArtifactTypes resolves artifact types by ID; an empty ids slice
// returns all artifact types.
func (s *Store) GetArtifactTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ArtifactType, error) {
	types, err := s.loadTypes(ctx, typeKindArtifact, ids)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.ArtifactType, len(types))
	for i, t := range types {
		out[i] = metadata.ArtifactType(t)
	}
	return out, nil
}

// GetExecutionTypes resolves execution types by ID; an empty ids slice
// returns all execution types.
func (s *Store) GetExecutionTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ExecutionType, error) {
	types, err := s.loadTypes(ctx, typeKindExecution, ids)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.ExecutionType, len(types))
	for i, t := range types {
		out[i] = metadata.ExecutionType(t)
	}
	return out, nil
}

// GetContextTypes resolves context types by ID; an empty ids slice
// returns all context types.
func (s *Store) GetContextTypes(ctx context.Context, ids []metadata.TypeID) ([]metadata.ContextType, error) {
	return s.loadTypes(ctx, typeKindContext, ids)
}

// loadTypes fetches type rows of one kind plus their property schemas.
// All three public type records share this shape.
func (s *Store) loadTypes(ctx context.Context, kind int, ids []metadata.TypeID) ([]metadata.ContextType, error) {
	c := &cond{}
	c.add("type_kind = ?", kind)
	if len(ids) > 0 {
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = int64(id)
		}
		c.add("id IN ("+placeholders(len(ids))+")", args...)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM Type"+c.where()+" ORDER BY id ASC", c.args...)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	var types []metadata.ContextType
	for rows.Next() {
		var t metadata.ContextType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		t.Properties = map[string]metadata.PropertyType{}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}

	for i := range types {
		if err := s.loadTypeProperties(ctx, &types[i]); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func (s *Store) loadTypeProperties(ctx context.Context, t *metadata.ContextType) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, data_type FROM TypeProperty WHERE type_id = ?", int64(t.ID))
	if err != nil {
		return fmt.Errorf("query type properties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name     string
			dataType int
		)
		if err := rows.Scan(&name, &dataType); err != nil {
			return fmt.Errorf("scan type property: %w", err)
		}
		switch dataType {
		case dataTypeInt:
			t.Properties[name] = metadata.PropertyTypeInt
		case dataTypeDouble:
			t.Properties[name] = metadata.PropertyTypeDouble
		case dataTypeString:
			t.Properties[name] = metadata.PropertyTypeString
		default:
			t.Properties[name] = metadata.PropertyTypeUnknown
		}
	}
	return rows.Err()
}

// =============================================================================
// Shared Helpers
// =============================================================================

func (s *Store) count(ctx context.Context, query string, args []any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// loadProperties fetches the property rows of all the given record IDs in
// one query, split into declared and custom maps.
func (s *Store) loadProperties(ctx context.Context, table, fk string, ids []int64) (props, custom map[int64]metadata.Properties, err error) {
	props = make(map[int64]metadata.Properties)
	custom = make(map[int64]metadata.Properties)
	if len(ids) == 0 {
		return props, custom, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(
		"SELECT %s, name, is_custom_property, int_value, double_value, string_value FROM %s WHERE %s IN (%s)",
		fk, table, fk, placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			name        string
			isCustom    bool
			intValue    sql.NullInt64
			doubleValue sql.NullFloat64
			stringValue sql.NullString
		)
		if err := rows.Scan(&id, &name, &isCustom, &intValue, &doubleValue, &stringValue); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", table, err)
		}

		var value any
		switch {
		case intValue.Valid:
			value = intValue.Int64
		case doubleValue.Valid:
			value = doubleValue.Float64
		case stringValue.Valid:
			value = stringValue.String
		default:
			continue
		}

		target := props
		if isCustom {
			target = custom
		}
		if target[id] == nil {
			target[id] = metadata.Properties{}
		}
		target[id][name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", table, err)
	}
	return props, custom, nil
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
