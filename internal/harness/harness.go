package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/oced/internal/compiler"
	"github.com/roach88/oced/internal/evaluator"
	"github.com/roach88/oced/internal/instanceio"
	"github.com/roach88/oced/internal/model"
	"github.com/roach88/oced/internal/search"
	"github.com/roach88/oced/internal/store"
	"github.com/roach88/oced/internal/testutil"
)

// Harness executes the steps of one scenario.
type Harness struct {
	store  *store.Store
	model  *compiler.Model
	schema *model.Schema
	clock  *testutil.DeterministicClock
	runIDs *testutil.SequentialRunIDs
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the CUE model
// 3. Execute steps with expect validation, persisting every outcome
// 4. Evaluate assertions against the trace and store
//
// Step failures (unmet expect clauses, failed assertions) are reported in
// Result.Errors. The returned error is reserved for failures to run at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step progress logged to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	m, err := LoadModel(scenario.Model)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		model:  m,
		schema: m.Schema.WithMaxObserves(scenario.MaxObserves),
		clock:  testutil.NewDeterministicClock(),
		runIDs: testutil.NewSequentialRunIDs(scenario.Name),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// LoadModel loads and compiles the CUE package in dir.
func LoadModel(dir string) (*compiler.Model, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load model %s: no CUE instances loaded", dir)
	}
	if err := instances[0].Err; err != nil {
		return nil, fmt.Errorf("load model %s: %w", dir, err)
	}
	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("load model %s: %w", dir, err)
	}
	m, err := compiler.Compile(value)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", dir, err)
	}
	return m, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var (
		ev  TraceEvent
		err error
	)
	switch step.Kind() {
	case KindValidate:
		ev, err = h.validate(ctx, step)
	default:
		ev, err = h.search(ctx, step)
	}
	if err != nil {
		return err
	}
	ev.Seq = h.clock.Next()
	result.AddTrace(ev)

	h.logger.Info("step completed",
		"step", i,
		"kind", ev.Kind,
		"target", ev.Target,
		"status", ev.Status,
		"violations", len(ev.Codes),
	)

	if step.Expect != nil {
		for _, msg := range checkExpect(i, step.Expect, ev) {
			result.AddError(msg)
		}
	}
	return nil
}

// validate reads and evaluates one instance file. An instance that cannot
// be built against the schema is a "malformed" outcome, not a harness error.
func (h *Harness) validate(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Kind: KindValidate, Target: step.Target()}

	in, err := instanceio.ReadFile(h.schema, step.Validate)
	if err != nil {
		if model.IsSchemaError(err) || model.IsMalformedInstance(err) || instanceio.IsFormatError(err) {
			ev.Status = StatusMalformed
			return ev, nil
		}
		return ev, err
	}

	vs := evaluator.Evaluate(h.schema, in)
	ev.Codes = violationCodes(vs)
	ev.Status = StatusValid
	if len(vs) > 0 {
		ev.Status = StatusInvalid
	}

	id, err := h.store.SaveInstance(ctx, in, store.SourceFile)
	if err != nil {
		return ev, err
	}
	if err := h.store.SaveViolations(ctx, id, vs); err != nil {
		return ev, err
	}
	ev.InstanceHash = id
	return ev, nil
}

// search runs a witness search or an assertion check with one worker, so
// the outcome does not depend on scheduling.
func (h *Harness) search(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Kind: step.Kind(), Target: step.Target()}

	var (
		goal search.Goal
		err  error
	)
	if ev.Kind == KindSearch {
		goal, err = h.model.WitnessGoal(step.Search)
	} else {
		goal, err = h.model.AssertionGoal(step.Check)
	}
	if err != nil {
		return ev, err
	}

	var bound search.Bound
	if step.Bound != "" {
		bound, err = search.ParseBound(step.Bound)
		if err != nil {
			return ev, err
		}
	}
	bound = h.model.BoundOr(bound)

	opts := []search.Option{
		search.WithWorkers(1),
		search.WithRunIDGenerator(h.runIDs),
	}
	if step.StepBudget > 0 {
		opts = append(opts, search.WithStepBudget(step.StepBudget))
	}
	out, err := search.Search(ctx, h.schema, bound, goal, opts...)
	if err != nil {
		return ev, err
	}

	run, err := h.store.SaveRun(ctx, h.schema, out)
	if err != nil {
		return ev, err
	}
	ev.Status = string(out.Status)
	ev.RunID = run.ID
	ev.InstanceHash = run.InstanceID
	if out.Instance != nil {
		ev.Codes = violationCodes(evaluator.Evaluate(h.schema, out.Instance))
	}
	return ev, nil
}

func violationCodes(vs []evaluator.Violation) []string {
	if len(vs) == 0 {
		return nil
	}
	codes := make([]string, len(vs))
	for i, v := range vs {
		codes[i] = v.Code
	}
	return codes
}

func checkExpect(i int, expect *ExpectClause, ev TraceEvent) []string {
	var errs []string
	if ev.Status != expect.Status {
		errs = append(errs, fmt.Sprintf("steps[%d]: %s %s: expected status %q, got %q",
			i, ev.Kind, ev.Target, expect.Status, ev.Status))
	}
	for _, code := range expect.Codes {
		if !slices.Contains(ev.Codes, code) {
			errs = append(errs, fmt.Sprintf("steps[%d]: %s %s: expected violation %s, got %v",
				i, ev.Kind, ev.Target, code, ev.Codes))
		}
	}
	return errs
}
