package store

import (
	"context"
	"fmt"
	"strings"
)

// ActivityFrequency counts events per event type.
type ActivityFrequency struct {
	Activity  string `json:"activity"`
	Frequency int    `json:"frequency"`
}

// ObjectInteraction counts the distinct events two objects share.
// Object1 sorts before Object2.
type ObjectInteraction struct {
	Object1 string `json:"object1"`
	Object2 string `json:"object2"`
	Events  int    `json:"events"`
}

// TemporalPattern gives the first and last instant an activity occurs at.
type TemporalPattern struct {
	Activity    string `json:"activity"`
	First       string `json:"first"`
	Last        string `json:"last"`
	Occurrences int    `json:"occurrences"`
}

// ProcessVariant is a distinct sequence of event types observed on an
// object, ordered by timestamp, with the number of objects following it.
type ProcessVariant struct {
	Sequence  []string `json:"sequence"`
	Frequency int      `json:"frequency"`
}

// Analysis bundles the analytical queries over one instance.
type Analysis struct {
	InstanceID         string              `json:"instance_id"`
	ActivityFrequency  []ActivityFrequency `json:"activity_frequency"`
	ObjectInteractions []ObjectInteraction `json:"object_interactions"`
	TemporalPatterns   []TemporalPattern   `json:"temporal_patterns"`
	ProcessVariants    []ProcessVariant    `json:"process_variants"`
}

// Analyze runs every analytical query over a stored instance. All result
// lists are ordered by count descending, then by name, so output is
// deterministic.
func (s *Store) Analyze(ctx context.Context, instanceID string) (*Analysis, error) {
	a := &Analysis{InstanceID: instanceID}
	var err error
	if a.ActivityFrequency, err = s.activityFrequency(ctx, instanceID); err != nil {
		return nil, err
	}
	if a.ObjectInteractions, err = s.objectInteractions(ctx, instanceID); err != nil {
		return nil, err
	}
	if a.TemporalPatterns, err = s.temporalPatterns(ctx, instanceID); err != nil {
		return nil, err
	}
	if a.ProcessVariants, err = s.processVariants(ctx, instanceID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) activityFrequency(ctx context.Context, id string) ([]ActivityFrequency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) AS frequency
		FROM events WHERE instance_id = ?
		GROUP BY type
		ORDER BY frequency DESC, type COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("activity frequency: %w", err)
	}
	defer rows.Close()

	out := []ActivityFrequency{}
	for rows.Next() {
		var r ActivityFrequency
		if err := rows.Scan(&r.Activity, &r.Frequency); err != nil {
			return nil, fmt.Errorf("activity frequency: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity frequency: %w", err)
	}
	return out, nil
}

func (s *Store) objectInteractions(ctx context.Context, id string) ([]ObjectInteraction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x1.object_id, x2.object_id, COUNT(DISTINCT x1.event_id) AS shared
		FROM observes x1
		JOIN observes x2
			ON x2.instance_id = x1.instance_id
			AND x2.event_id = x1.event_id
			AND x2.object_id > x1.object_id COLLATE BINARY
		WHERE x1.instance_id = ?
		GROUP BY x1.object_id, x2.object_id
		ORDER BY shared DESC, x1.object_id COLLATE BINARY ASC, x2.object_id COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("object interactions: %w", err)
	}
	defer rows.Close()

	out := []ObjectInteraction{}
	for rows.Next() {
		var r ObjectInteraction
		if err := rows.Scan(&r.Object1, &r.Object2, &r.Events); err != nil {
			return nil, fmt.Errorf("object interactions: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("object interactions: %w", err)
	}
	return out, nil
}

func (s *Store) temporalPatterns(ctx context.Context, id string) ([]TemporalPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.type, lo.name, hi.name, e.occurrences
		FROM (
			SELECT type, MIN(timestamp) AS first_pos, MAX(timestamp) AS last_pos, COUNT(*) AS occurrences
			FROM events WHERE instance_id = ?
			GROUP BY type
		) e
		JOIN instants lo ON lo.instance_id = ? AND lo.pos = e.first_pos
		JOIN instants hi ON hi.instance_id = ? AND hi.pos = e.last_pos
		ORDER BY e.first_pos ASC, e.type COLLATE BINARY ASC
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("temporal patterns: %w", err)
	}
	defer rows.Close()

	out := []TemporalPattern{}
	for rows.Next() {
		var r TemporalPattern
		if err := rows.Scan(&r.Activity, &r.First, &r.Last, &r.Occurrences); err != nil {
			return nil, fmt.Errorf("temporal patterns: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("temporal patterns: %w", err)
	}
	return out, nil
}

// processVariants groups objects by the event types observing them, in
// timestamp order. Objects no event observes have no variant.
func (s *Store) processVariants(ctx context.Context, id string) ([]ProcessVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, COUNT(*) AS frequency
		FROM (
			SELECT x.object_id,
				group_concat(e.type, ',' ORDER BY e.timestamp ASC, e.pos ASC) AS sequence
			FROM observes x
			JOIN events e ON e.instance_id = x.instance_id AND e.id = x.event_id
			WHERE x.instance_id = ?
			GROUP BY x.object_id
		)
		GROUP BY sequence
		ORDER BY frequency DESC, sequence COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("process variants: %w", err)
	}
	defer rows.Close()

	out := []ProcessVariant{}
	for rows.Next() {
		var (
			seq string
			r   ProcessVariant
		)
		if err := rows.Scan(&seq, &r.Frequency); err != nil {
			return nil, fmt.Errorf("process variants: %w", err)
		}
		r.Sequence = strings.Split(seq, ",")
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("process variants: %w", err)
	}
	return out, nil
}
