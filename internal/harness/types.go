package harness

// Step kinds recorded in the trace.
const (
	KindValidate = "validate"
	KindSearch   = "search"
	KindCheck    = "check"
)

// Validate step statuses. Search and check steps use search.Status values.
const (
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
	StatusMalformed = "malformed"
)

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Target string `json:"target"` // instance path or goal name
	Status string `json:"status"`

	// Codes lists the violation codes reported, one entry per violation,
	// in report order. For a check it describes the counterexample.
	Codes []string `json:"codes,omitempty"`

	InstanceHash string `json:"instance_hash,omitempty"`
	RunID        string `json:"run_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
