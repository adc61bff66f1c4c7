package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/search"
)

// Instance sources recorded with each stored instance.
const (
	SourceFile   = "file"
	SourceSearch = "search"
	SourceXES    = "xes"
)

// SaveSchema stores the schema definition and returns its hash.
// Uses ON CONFLICT(hash) DO NOTHING for idempotency.
func (s *Store) SaveSchema(ctx context.Context, sch *model.Schema) (string, error) {
	return saveSchema(ctx, s.db, sch)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveSchema(ctx context.Context, db execer, sch *model.Schema) (string, error) {
	hash, err := model.SchemaHash(sch)
	if err != nil {
		return "", fmt.Errorf("save schema: %w", err)
	}
	def, err := marshalSchemaDef(sch.Def())
	if err != nil {
		return "", fmt.Errorf("save schema: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO schemas (hash, definition) VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, def)
	if err != nil {
		return "", fmt.Errorf("save schema: %w", err)
	}
	return hash, nil
}

// SaveInstance stores in with its schema and returns the instance id, the
// content hash. Saving an instance that is already stored is a no-op.
func (s *Store) SaveInstance(ctx context.Context, in *model.Instance, source string) (string, error) {
	id, err := in.Hash()
	if err != nil {
		return "", fmt.Errorf("save instance: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save instance: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	schemaHash, err := saveSchema(ctx, tx, in.Schema())
	if err != nil {
		return "", err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO instances (id, schema_hash, source, format_version, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM instances))
		ON CONFLICT(id) DO NOTHING
	`, id, schemaHash, source, model.FormatVersion)
	if err != nil {
		return "", fmt.Errorf("save instance: insert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("save instance: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Same content already stored
		return id, tx.Commit()
	}

	if err := insertTables(ctx, tx, id, in); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save instance: commit: %w", err)
	}
	return id, nil
}

func insertTables(ctx context.Context, tx *sql.Tx, id string, in *model.Instance) error {
	t := in.Time()
	for pos, name := range t.Names() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO instants (instance_id, pos, name) VALUES (?, ?, ?)
		`, id, pos, name); err != nil {
			return fmt.Errorf("save instance: instant %s: %w", name, err)
		}
	}

	for pos, o := range in.Objects() {
		attrs, err := marshalAttrs(o.Attrs, t)
		if err != nil {
			return fmt.Errorf("save instance: object %s: %w", o.ID, err)
		}
		var deleted sql.NullInt64
		if o.IsDeleted() {
			deleted = sql.NullInt64{Int64: int64(o.Deleted), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO objects (instance_id, pos, id, type, created, deleted, attributes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, pos, o.ID, o.Type, int64(o.Created), deleted, attrs); err != nil {
			return fmt.Errorf("save instance: object %s: %w", o.ID, err)
		}
	}

	for pos, e := range in.Events() {
		attrs, err := marshalAttrs(e.Attrs, t)
		if err != nil {
			return fmt.Errorf("save instance: event %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (instance_id, pos, id, type, timestamp, attributes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, pos, e.ID, e.Type, int64(e.Timestamp), attrs); err != nil {
			return fmt.Errorf("save instance: event %s: %w", e.ID, err)
		}
	}

	for pos, x := range in.Observes() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO observes (instance_id, pos, id, object_id, event_id, relation)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, pos, x.ID, x.Object, x.Event, x.Relation); err != nil {
			return fmt.Errorf("save instance: observe %s: %w", x.ID, err)
		}
	}
	return nil
}

// SaveViolations replaces the stored violations of an instance.
// The instance must already be stored (foreign key constraint).
func (s *Store) SaveViolations(ctx context.Context, instanceID string, vs []evaluator.Violation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save violations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM violations WHERE instance_id = ?`, instanceID); err != nil {
		return fmt.Errorf("save violations: clear: %w", err)
	}
	for pos, v := range vs {
		entities, err := marshalEntities(v.Entities)
		if err != nil {
			return fmt.Errorf("save violations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO violations (instance_id, pos, invariant, number, code, reason, entities)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, instanceID, pos, string(v.Invariant), v.Number, v.Code, v.Reason, entities); err != nil {
			return fmt.Errorf("save violations: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save violations: commit: %w", err)
	}
	return nil
}

// Run is one stored search or check.
type Run struct {
	ID         string
	SchemaHash string
	Goal       string
	Kind       string
	Status     string
	Bound      string
	Steps      int64
	Units      int
	Completed  int
	Reason     string
	ElapsedMS  int64
	InstanceID string // empty when nothing was found
}

// SaveRun stores a search outcome, and its instance when one was found.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) SaveRun(ctx context.Context, sch *model.Schema, out *search.Outcome) (Run, error) {
	run := Run{
		ID:        out.RunID,
		Goal:      out.Goal,
		Kind:      string(out.Kind),
		Status:    string(out.Status),
		Bound:     out.Bound.String(),
		Steps:     out.Steps,
		Units:     out.Units,
		Completed: out.Completed,
		Reason:    out.Reason,
		ElapsedMS: out.Elapsed.Milliseconds(),
	}
	if out.Instance != nil {
		id, err := s.SaveInstance(ctx, out.Instance, SourceSearch)
		if err != nil {
			return Run{}, fmt.Errorf("save run: %w", err)
		}
		run.InstanceID = id
	}

	hash, err := s.SaveSchema(ctx, sch)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	run.SchemaHash = hash

	var instanceID sql.NullString
	if run.InstanceID != "" {
		instanceID = sql.NullString{String: run.InstanceID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, schema_hash, goal, kind, status, bound, steps, units, completed, reason, elapsed_ms, instance_id, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID, run.SchemaHash, run.Goal, run.Kind, run.Status, run.Bound,
		run.Steps, run.Units, run.Completed, run.Reason, run.ElapsedMS, instanceID,
	)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}
