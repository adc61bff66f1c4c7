package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/model"
)

// InstanceInfo summarizes a stored instance.
type InstanceInfo struct {
	ID         string `json:"id"`
	SchemaHash string `json:"schema_hash"`
	Source     string `json:"source"`
	Objects    int    `json:"objects"`
	Events     int    `json:"events"`
	Observes   int    `json:"observes"`
	Violations int    `json:"violations"`
}

// ListInstances returns every stored instance in insertion order.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListInstances(ctx context.Context) ([]InstanceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.schema_hash, i.source,
			(SELECT COUNT(*) FROM objects o WHERE o.instance_id = i.id),
			(SELECT COUNT(*) FROM events e WHERE e.instance_id = i.id),
			(SELECT COUNT(*) FROM observes x WHERE x.instance_id = i.id),
			(SELECT COUNT(*) FROM violations v WHERE v.instance_id = i.id)
		FROM instances i
		ORDER BY i.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	infos := []InstanceInfo{}
	for rows.Next() {
		var info InstanceInfo
		if err := rows.Scan(&info.ID, &info.SchemaHash, &info.Source,
			&info.Objects, &info.Events, &info.Observes, &info.Violations); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	return infos, nil
}

// ResolveInstanceID expands a unique id prefix to the full instance id.
// Returns sql.ErrNoRows if nothing matches.
func (s *Store) ResolveInstanceID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM instances WHERE substr(id, 1, ?) = ? ORDER BY seq ASC LIMIT 2
	`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("resolve instance: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("resolve instance: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve instance: %w", err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("resolve instance %q: %w", prefix, sql.ErrNoRows)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("resolve instance: prefix %q is ambiguous", prefix)
	}
}

// LoadSchema rebuilds a stored schema.
// Returns sql.ErrNoRows if not found.
func (s *Store) LoadSchema(ctx context.Context, hash string) (*model.Schema, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM schemas WHERE hash = ?`, hash).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	def, err := unmarshalSchemaDef(data)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return model.NewSchema(def)
}

// LoadInstance rebuilds a stored instance against its stored schema.
// Returns sql.ErrNoRows if not found.
func (s *Store) LoadInstance(ctx context.Context, id string) (*model.Instance, error) {
	var schemaHash, version string
	err := s.db.QueryRowContext(ctx, `
		SELECT schema_hash, format_version FROM instances WHERE id = ?
	`, id).Scan(&schemaHash, &version)
	if err != nil {
		return nil, fmt.Errorf("load instance: %w", err)
	}
	sch, err := s.LoadSchema(ctx, schemaHash)
	if err != nil {
		return nil, err
	}

	doc := &instanceio.Document{FormatVersion: version}
	if doc.Time, err = s.readInstants(ctx, id); err != nil {
		return nil, err
	}
	if doc.Objects, err = s.readObjects(ctx, id, doc.Time); err != nil {
		return nil, err
	}
	if doc.Events, err = s.readEvents(ctx, id, doc.Time); err != nil {
		return nil, err
	}
	if doc.Observes, err = s.readObserves(ctx, id); err != nil {
		return nil, err
	}
	in, err := instanceio.ToInstance(sch, doc)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", id, err)
	}
	return in, nil
}

func (s *Store) readInstants(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM instants WHERE instance_id = ? ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query instants: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan instant: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instants: %w", err)
	}
	return names, nil
}

// instantName maps a stored position back to its name.
func instantName(names []string, pos int64) (string, error) {
	if pos < 0 || pos >= int64(len(names)) {
		return "", fmt.Errorf("instant position %d outside time order of %d", pos, len(names))
	}
	return names[pos], nil
}

func (s *Store) readObjects(ctx context.Context, id string, names []string) ([]instanceio.ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, created, deleted, attributes
		FROM objects WHERE instance_id = ? ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	recs := []instanceio.ObjectRecord{}
	for rows.Next() {
		var (
			rec     instanceio.ObjectRecord
			created int64
			deleted sql.NullInt64
			attrs   string
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &created, &deleted, &attrs); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		if rec.Created, err = instantName(names, created); err != nil {
			return nil, fmt.Errorf("object %s: %w", rec.ID, err)
		}
		if deleted.Valid {
			if rec.Deleted, err = instantName(names, deleted.Int64); err != nil {
				return nil, fmt.Errorf("object %s: %w", rec.ID, err)
			}
		}
		if rec.Attributes, err = unmarshalAttrs(attrs); err != nil {
			return nil, fmt.Errorf("object %s: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return recs, nil
}

func (s *Store) readEvents(ctx context.Context, id string, names []string) ([]instanceio.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, timestamp, attributes
		FROM events WHERE instance_id = ? ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	recs := []instanceio.EventRecord{}
	for rows.Next() {
		var (
			rec   instanceio.EventRecord
			ts    int64
			attrs string
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &ts, &attrs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if rec.Timestamp, err = instantName(names, ts); err != nil {
			return nil, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		if rec.Attributes, err = unmarshalAttrs(attrs); err != nil {
			return nil, fmt.Errorf("event %s: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return recs, nil
}

func (s *Store) readObserves(ctx context.Context, id string) ([]instanceio.ObserveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, object_id, event_id, relation
		FROM observes WHERE instance_id = ? ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query observes: %w", err)
	}
	defer rows.Close()

	recs := []instanceio.ObserveRecord{}
	for rows.Next() {
		var rec instanceio.ObserveRecord
		if err := rows.Scan(&rec.ID, &rec.Object, &rec.Event, &rec.Relation); err != nil {
			return nil, fmt.Errorf("scan observe: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observes: %w", err)
	}
	return recs, nil
}

// ReadViolations returns the stored violations of an instance in the
// order they were saved.
func (s *Store) ReadViolations(ctx context.Context, instanceID string) ([]evaluator.Violation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT invariant, number, code, reason, entities
		FROM violations WHERE instance_id = ? ORDER BY pos ASC
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	vs := []evaluator.Violation{}
	for rows.Next() {
		var (
			v         evaluator.Violation
			invariant string
			entities  string
		)
		if err := rows.Scan(&invariant, &v.Number, &v.Code, &v.Reason, &entities); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Invariant = evaluator.InvariantID(invariant)
		if v.Entities, err = unmarshalEntities(entities); err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return vs, nil
}

// ReadRun retrieves a run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, schema_hash, goal, kind, status, bound, steps, units, completed, reason, elapsed_ms, instance_id
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns every stored run in insertion order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_hash, goal, kind, status, bound, steps, units, completed, reason, elapsed_ms, instance_id
		FROM runs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		instanceID sql.NullString
	)
	err := row.Scan(&run.ID, &run.SchemaHash, &run.Goal, &run.Kind, &run.Status, &run.Bound,
		&run.Steps, &run.Units, &run.Completed, &run.Reason, &run.ElapsedMS, &instanceID)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.InstanceID = instanceID.String
	return run, nil
}
