package evaluator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/oced/internal/model"
)

func buildSingle(s *model.Schema, instants int, created, deleted, ts model.Instant) (*model.Instance, error) {
	b := model.NewBuilder(s, model.SequentialTime(instants))
	if err := b.AddObject(model.Object{ID: "O", Type: "case", Created: created, Deleted: deleted}); err != nil {
		return nil, err
	}
	if err := b.AddEvent(model.Event{ID: "E", Type: "start", Timestamp: ts}); err != nil {
		return nil, err
	}
	if err := b.AddObserve(model.Observe{ID: "X", Object: "O", Event: "E", Relation: "involves"}); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// Property: deletion-before-creation is reported exactly when the deletion
// instant is not strictly after creation.
func TestProperty_DeletionBeforeCreation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	s := testSchema()

	properties.Property("invariant 1 fires iff deleted <= created", prop.ForAll(
		func(created, deleted, ts int) bool {
			in, err := buildSingle(s, 8, model.Instant(created), model.Instant(deleted), model.Instant(ts))
			if err != nil {
				return false
			}
			got := len(byInvariant(Evaluate(s, in), DeletedAfterCreated)) > 0
			want := deleted != -1 && deleted <= created
			return got == want
		},
		gen.IntRange(0, 7),
		gen.IntRange(-1, 7),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t)
}

// Property: an event at or after the deletion instant of an object it
// observes yields exactly one referential violation naming both.
func TestProperty_ObservedAfterDeletion(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	s := testSchema()

	properties.Property("one violation names (O, E)", prop.ForAll(
		func(created, gap, late int) bool {
			deleted := created + gap
			in, err := buildSingle(s, 12, model.Instant(created), model.Instant(deleted), model.Instant(deleted+late))
			if err != nil {
				return false
			}
			vs := byInvariant(Evaluate(s, in), ObservedBeforeDeletion)
			return len(vs) == 1 && vs[0].Involves(KindObject, "O") && vs[0].Involves(KindEvent, "E")
		},
		gen.IntRange(0, 4),
		gen.IntRange(1, 3),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

// Property: Evaluate is deterministic, order included.
func TestProperty_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	s := testSchema()

	properties.Property("evaluating twice gives identical lists", prop.ForAll(
		func(created, deleted, ts int) bool {
			in, err := buildSingle(s, 6, model.Instant(created), model.Instant(deleted), model.Instant(ts))
			if err != nil {
				return false
			}
			a, b := Evaluate(s, in), Evaluate(s, in)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i].String() != b[i].String() {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 5),
		gen.IntRange(-1, 5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
